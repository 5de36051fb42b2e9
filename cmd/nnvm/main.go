// Command nnvm executes a .nnep image (spec.md §6 "nnvm <image.nnep>
// execute an image") on internal/vm's register machine. It prints the final
// register file only when --registers is given, and maps the trap to an
// exit code: 0 for HLT, 2 if the image itself could not be loaded, 1 for
// every other trap (illegal read/write, stack over/underflow, illegal jump,
// illegal builtin, illegal instruction, and a manual BRK).
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nn-lang/nnc/internal/exitcode"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/vm"
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
  nnvm [options] <image.nnep>

` + colors.Bold + `Options:` + colors.Reset + `
  --registers           Print the general register file after the run
  -h, --help             Show this help text
`
}

func trapName(trap int64) string {
	switch trap {
	case vm.TrapHalt:
		return "halt"
	case vm.TrapBreak:
		return "break"
	case vm.TrapIllegalRead:
		return "illegal_read"
	case vm.TrapIllegalWrite:
		return "illegal_write"
	case vm.TrapStackOverflow:
		return "stack_overflow"
	case vm.TrapStackUnderflow:
		return "stack_underflow"
	case vm.TrapIllegalJump:
		return "illegal_jump"
	case vm.TrapIllegalBuiltin:
		return "illegal_btin"
	case vm.TrapIllegalInstruction:
		return "illegal_instruction"
	default:
		return fmt.Sprintf("unknown(%d)", trap)
	}
}

func run(osArgs []string) error {
	fs := flag.NewFlagSet("nnvm", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))
	printRegisters := fs.Bool("registers", false, "")
	help := fs.Bool("help", false, "")
	fs.BoolVar(help, "h", false, "")
	if err := fs.Parse(osArgs); err != nil || *help {
		logger.PrintText(os.Stdout, logger.LevelSilent, osArgs, helpText)
		return nil
	}

	args := fs.Args()
	if len(args) != 1 {
		logger.PrintText(os.Stdout, logger.LevelSilent, osArgs, helpText)
		return exitcode.Set(fmt.Errorf("nnvm expects exactly one image file"), 2)
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		return exitcode.Set(fmt.Errorf("nnvm: %w", err), 2)
	}

	m, err := vm.New(image)
	if err != nil {
		return exitcode.Set(fmt.Errorf("nnvm: %w", err), 2)
	}

	trap := m.Run()

	if *printRegisters {
		for i := 0; i < 16; i++ {
			fmt.Printf("r%d = %d\n", i, m.Register(i))
		}
	}

	if trap == vm.TrapHalt {
		return nil
	}
	fmt.Fprintf(os.Stderr, "nnvm: trapped: %s\n", trapName(trap))
	return exitcode.Set(fmt.Errorf("trap %s", trapName(trap)), 1)
}

func main() {
	exitcode.Exit(run(os.Args[1:]))
}
