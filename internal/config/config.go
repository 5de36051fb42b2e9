// Package config holds the process-wide handles and CLI-derived options
// that every later compilation stage (internal/module, internal/sema,
// internal/ir, internal/asm) is threaded through, mirroring the teacher's
// own config.Options: a single struct built once from flags and passed by
// pointer everywhere instead of globals.
package config

import (
	"runtime"
	"sync"

	"github.com/nn-lang/nnc/internal/helpers"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/types"
)

// Target names the word width nnc compiles for; it drives types.Table's
// PointerWidth (spec.md §3.2). The assembler does not read it.
type Target uint8

const (
	Target64 Target = iota
	Target32
)

func (t Target) PointerWidth() int {
	if t == Target32 {
		return 4
	}
	return 8
}

// OptimizationLevel names an optimization setting (spec.md names no
// optimizer). No cmd/nnc flag sets it and no pass reads it, so every build
// runs the mandatory lowering only.
type OptimizationLevel uint8

const (
	OptimizationNone OptimizationLevel = iota
	OptimizationSize
	OptimizationSpeed
)

// Options is everything the CLI (cmd/nnc) can set. It is immutable once a
// Session is built from it.
type Options struct {
	Target       Target
	Optimization OptimizationLevel

	// EntryPoint is the root module path resolved by internal/module.
	EntryPoint string

	// OutputPath names an output file, "" meaning stdout. No driver reads
	// it: nnasm derives its output path itself.
	OutputPath string

	EmitAssembly bool // not read by any driver or pass
	EmitIR       bool // stop after internal/sema -> internal/ir, dump the IR listing

	MaxWorkers int // module parser-pool size; 0 = GOMAXPROCS

	LogLevel logger.LogLevel
	Color    logger.UseColor
}

// StringPool interns strings so that equal strings share one copy. A
// Session carries one (Strings); no other package calls it.
type StringPool struct {
	mu     sync.Mutex
	byText map[string]string
}

func NewStringPool() *StringPool {
	return &StringPool{byText: make(map[string]string)}
}

func (p *StringPool) Intern(s string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.byText[s]; ok {
		return existing
	}
	p.byText[s] = s
	return s
}

// Session is the process-wide set of handles threaded through every
// compilation stage: the interned type table, the string pool, the
// diagnostic sink, a shared build timer, and the resolved Options. One
// Session is built per invocation of nnc/nnasm/nnvm and is safe for
// concurrent use by the module parser pool and the sema fiber scheduler
// (spec.md §5 "Shared resources").
type Session struct {
	Options Options
	Log     logger.Log
	Types   *types.Table
	Strings *StringPool
	Timer   *helpers.Timer
}

// NewSession builds a Session from CLI-resolved Options. log is normally
// logger.NewStderrLog, but tests pass logger.NewDeferLog to inspect
// messages without touching stdio.
func NewSession(options Options, log logger.Log) *Session {
	if options.MaxWorkers <= 0 {
		options.MaxWorkers = runtime.GOMAXPROCS(0)
	}
	return &Session{
		Options: options,
		Log:     log,
		Types:   types.NewTable(options.Target.PointerWidth()),
		Strings: NewStringPool(),
		Timer:   &helpers.Timer{},
	}
}
