package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nn-lang/nnc/internal/exitcode"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefaultOutputPathReplacesExtension(t *testing.T) {
	got := defaultOutputPath(filepath.Join("a", "b", "prog.nnasm"))
	want := filepath.Join("a", "b", "prog.nnep")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRunAssemblesToDefaultPath(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "prog.nnasm", "MOV $r0, 42\nADD $r0, $r0, 1\nRET\n")

	if err := run([]string{src}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	image, err := os.ReadFile(defaultOutputPath(src))
	if err != nil {
		t.Fatalf("expected output image to exist: %v", err)
	}
	if len(image) == 0 {
		t.Fatalf("expected a non-empty image")
	}
}

func TestRunHonorsOutputFlag(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "prog.nnasm", "RET\n")
	dest := filepath.Join(dir, "custom.nnep")

	if err := run([]string{"-o", dest, src}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("expected %s to exist: %v", dest, err)
	}
}

func TestRunDisassembleRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "prog.nnasm", "MOV $r0, 42\nRET\n")
	image := filepath.Join(dir, "prog.nnep")

	if err := run([]string{"-o", image, src}); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if err := run([]string{"-d", image}); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
}

func TestRunUnknownMnemonicExitsOne(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "bad.nnasm", "FROBNICATE $r0\n")

	err := run([]string{src})
	if exitcode.Get(err) != 1 {
		t.Fatalf("expected exit code 1, got %d (%v)", exitcode.Get(err), err)
	}
}

func TestRunMissingInputExitsTwo(t *testing.T) {
	dir := t.TempDir()
	err := run([]string{filepath.Join(dir, "nope.nnasm")})
	if exitcode.Get(err) != 2 {
		t.Fatalf("expected exit code 2, got %d (%v)", exitcode.Get(err), err)
	}
}
