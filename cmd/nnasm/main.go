// Command nnasm is the NN assembler driver (spec.md §6 "nnasm <source.nnasm>
// assemble -> out.nnep") plus its disassembly counterpart, -d, which is the
// consumer side of the assembler invariant (SPEC_FULL.md component O):
// feeding an assembled image back through internal/asm.Disassemble must
// reproduce semantically equivalent text.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nn-lang/nnc/internal/asm"
	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/exitcode"
	"github.com/nn-lang/nnc/internal/fs"
	"github.com/nn-lang/nnc/internal/logger"
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
  nnasm [options] <source.nnasm>
  nnasm -d <image.nnep>

` + colors.Bold + `Options:` + colors.Reset + `
  -o <path>             Output path (default: replace .nnasm with .nnep)
  -d                     Disassemble an image instead of assembling one
  --color=true|false    Force-enable or force-disable colored diagnostics
  -h, --help             Show this help text
`
}

func defaultOutputPath(sourcePath string) string {
	base := strings.TrimSuffix(fs.Base(sourcePath), ".nnasm")
	return filepath.Join(fs.Dir(sourcePath), base+".nnep")
}

func run(osArgs []string) error {
	fsFlags := flag.NewFlagSet("nnasm", flag.ContinueOnError)
	fsFlags.SetOutput(new(strings.Builder))
	outPath := fsFlags.String("o", "", "")
	disassemble := fsFlags.Bool("d", false, "")
	colorFlag := fsFlags.String("color", "", "")
	help := fsFlags.Bool("help", false, "")
	fsFlags.BoolVar(help, "h", false, "")
	if err := fsFlags.Parse(osArgs); err != nil || *help {
		logger.PrintText(os.Stdout, logger.LevelSilent, osArgs, helpText)
		return nil
	}

	args := fsFlags.Args()
	if len(args) != 1 {
		logger.PrintText(os.Stdout, logger.LevelSilent, osArgs, helpText)
		return exitcode.Set(fmt.Errorf("nnasm expects exactly one input file"), 2)
	}
	inputPath := args[0]

	outOptions := logger.OutputOptionsForArgs(osArgs)
	switch *colorFlag {
	case "true":
		outOptions.Color = logger.ColorAlways
	case "false":
		outOptions.Color = logger.ColorNever
	}
	log := logger.NewStderrLog(outOptions)

	if *disassemble {
		image, err := os.ReadFile(inputPath)
		if err != nil {
			return exitcode.Set(fmt.Errorf("nnasm: %w", err), 2)
		}
		text, err := asm.Disassemble(image)
		if err != nil {
			return exitcode.Set(fmt.Errorf("nnasm: %w", err), 1)
		}
		fmt.Print(text)
		return nil
	}

	contents, err := fs.ReadFile(inputPath)
	if err != nil {
		return exitcode.Set(fmt.Errorf("nnasm: %w", err), 2)
	}
	source := logger.Source{
		Index:          0,
		KeyPath:        logger.Path{Text: inputPath},
		PrettyPath:     inputPath,
		IdentifierName: fs.Base(inputPath),
		Contents:       contents,
	}

	sess := config.NewSession(config.Options{Target: config.Target64}, log)
	image, ok := asm.Assemble(sess, &source)

	log.AlmostDone()
	log.Done()
	if !ok {
		return exitcode.Set(fmt.Errorf("assembly failed"), 1)
	}

	dest := *outPath
	if dest == "" {
		dest = defaultOutputPath(inputPath)
	}
	if err := os.WriteFile(dest, image, 0o644); err != nil {
		return exitcode.Set(fmt.Errorf("nnasm: %w", err), 2)
	}
	return nil
}

func main() {
	exitcode.Exit(run(os.Args[1:]))
}
