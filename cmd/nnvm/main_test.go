package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nn-lang/nnc/internal/asm"
	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/exitcode"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/test"
)

func writeImage(t *testing.T, dir, name, asmSource string) string {
	t.Helper()
	sess := config.NewSession(config.Options{Target: config.Target64}, logger.NewDeferLog())
	src := test.SourceForTest(asmSource)
	image, ok := asm.Assemble(sess, &src)
	if !ok {
		t.Fatalf("assembling fixture %q failed", name)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestRunHaltExitsZero(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "halt.nnep", "MOV $r0, 42\nHLT\n")

	if err := run([]string{path}); err != nil {
		t.Fatalf("expected a clean halt to exit 0, got %v", err)
	}
}

func TestRunPrintsRegistersWhenAsked(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "halt.nnep", "MOV $r0, 42\nHLT\n")

	if err := run([]string{"--registers", path}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunMissingImageExitsTwo(t *testing.T) {
	dir := t.TempDir()
	err := run([]string{filepath.Join(dir, "nope.nnep")})
	if exitcode.Get(err) != 2 {
		t.Fatalf("expected exit code 2, got %d (%v)", exitcode.Get(err), err)
	}
}

func TestRunGarbageImageExitsTwo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.nnep")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("writing garbage image: %v", err)
	}

	err := run([]string{path})
	if exitcode.Get(err) != 2 {
		t.Fatalf("expected exit code 2 for an undecodable image, got %d (%v)", exitcode.Get(err), err)
	}
}

func TestRunIllegalJumpTrapsExitsOne(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "badjump.nnasm.nnep", "JMP 99999\n")

	err := run([]string{path})
	if exitcode.Get(err) != 1 {
		t.Fatalf("expected exit code 1 on an illegal jump trap, got %d (%v)", exitcode.Get(err), err)
	}
}
