// Command nnc is the NN compiler driver (spec.md §6 "nnc <source.nn>
// compile one file -> stdout diagnostics"). It loads the entry module and
// everything it imports (internal/module), runs semantic analysis over the
// whole graph in dependency order (internal/sema), and optionally lowers
// each compiled function to IR (internal/ir) for inspection with
// --emit-ir. Mirrors the teacher's cmd/esbuild/main.go shape: a colorized,
// NO_COLOR-aware help text, logger.OutputOptionsForArgs-driven diagnostic
// printing, and an exitcode.Exit at the very end.
//
// spec.md's own data-flow note describes the assembler as "a consumer of
// textual assembly, independent path" rather than something IR feeds
// automatically, and the Non-goals exclude any real-CPU codegen; nnc
// therefore stops at IR; there is no flag to lower straight through to a
// .nnep image. Use nnasm for that, fed by hand- or tool-written .nnasm text.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/exitcode"
	"github.com/nn-lang/nnc/internal/ir"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/module"
	"github.com/nn-lang/nnc/internal/sema"
)

var helpText = func(colors logger.Colors) string {
	for _, key := range os.Environ() {
		if strings.HasPrefix(key, "NO_COLOR=") {
			colors = logger.Colors{}
			break
		}
	}

	return `
` + colors.Bold + `Usage:` + colors.Reset + `
  nnc [options] <source.nn>

` + colors.Bold + `Options:` + colors.Reset + `
  --emit-ir             Print the lowered IR for every function instead of
                        just diagnostics
  --target=32|64        Pointer width the compiled program assumes (default 64)
  --max-workers=N       Module parser pool size (default: number of CPUs)
  --color=true|false    Force-enable or force-disable colored diagnostics
  --log-level=...       verbose | info | warning | error | silent
  -h, --help            Show this help text

` + colors.Bold + `Exit codes:` + colors.Reset + `
  0 success, 1 a diagnostic was recorded, 2 an I/O failure occurred.
`
}

func run(osArgs []string) error {
	fs := flag.NewFlagSet("nnc", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder)) // we print our own usage on -h
	emitIR := fs.Bool("emit-ir", false, "")
	target := fs.String("target", "64", "")
	maxWorkers := fs.Int("max-workers", 0, "")
	colorFlag := fs.String("color", "", "")
	logLevel := fs.String("log-level", "", "")
	help := fs.Bool("help", false, "")
	fs.BoolVar(help, "h", false, "")
	if err := fs.Parse(osArgs); err != nil {
		logger.PrintText(os.Stdout, logger.LevelSilent, osArgs, helpText)
		return nil
	}
	if *help {
		logger.PrintText(os.Stdout, logger.LevelSilent, osArgs, helpText)
		return nil
	}

	args := fs.Args()
	if len(args) != 1 {
		logger.PrintText(os.Stdout, logger.LevelSilent, osArgs, helpText)
		return fmt.Errorf("nnc expects exactly one source file")
	}
	sourcePath := args[0]

	outOptions := logger.OutputOptionsForArgs(osArgs)
	switch *colorFlag {
	case "true":
		outOptions.Color = logger.ColorAlways
	case "false":
		outOptions.Color = logger.ColorNever
	}
	switch *logLevel {
	case "verbose", "debug":
		outOptions.LogLevel = logger.LevelNone
	case "info":
		outOptions.LogLevel = logger.LevelInfo
	case "warning":
		outOptions.LogLevel = logger.LevelWarning
	case "error":
		outOptions.LogLevel = logger.LevelError
	case "silent":
		outOptions.LogLevel = logger.LevelSilent
	}
	log := logger.NewStderrLog(outOptions)

	opts := config.Options{
		Target:     config.Target64,
		EmitIR:     *emitIR,
		MaxWorkers: *maxWorkers,
		LogLevel:   outOptions.LogLevel,
		Color:      outOptions.Color,
	}
	if *target == "32" {
		opts.Target = config.Target32
	}

	sess := config.NewSession(opts, log)
	sess.Timer.Begin("compile")
	defer sess.Timer.End("compile")

	registry := module.NewRegistry(sess)
	entry := registry.Load(sourcePath)
	if entry.ReadErr != nil {
		log.Done()
		return exitcode.Set(fmt.Errorf("nnc: %w", entry.ReadErr), 2)
	}

	for _, m := range registry.DependencyOrder(entry) {
		if m.ReadErr != nil || m.AST == nil {
			continue
		}
		sema.NewCompiler(sess, &m.Source).CompileModule(m.AST, m.Scope)
	}

	if opts.EmitIR {
		for _, m := range registry.DependencyOrder(entry) {
			if m.AST == nil {
				continue
			}
			for _, fn := range buildModuleIR(sess, m) {
				fmt.Println(ir.Dump(fn))
			}
		}
	}

	sess.Timer.Log(log)
	log.AlmostDone()
	msgs := log.Done()

	hasError := false
	for _, msg := range msgs {
		if msg.Kind == logger.Error || msg.Kind == logger.Warning {
			hasError = true
		}
	}
	if hasError {
		return exitcode.Set(fmt.Errorf("build failed"), 1)
	}
	return nil
}

func main() {
	exitcode.Exit(run(os.Args[1:]))
}
