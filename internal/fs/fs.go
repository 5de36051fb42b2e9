// Package fs is a small real-filesystem helper used by internal/module to
// resolve and read import paths, and by internal/test to pick a diff color
// scheme. The teacher's own internal/fs is a full virtual-filesystem
// abstraction (mock FS, zip overlay, watch-mode change tracking) built for a
// bundler that re-reads a directory tree on every rebuild; NN's module graph
// is a one-shot path-based import resolver (spec.md §4.7 Non-goals exclude a
// real module system), so this trims that down to path join/abs/read and the
// Windows check the teacher's own internal/test depends on.
package fs

import (
	"os"
	"path/filepath"
	"runtime"
)

func CheckIfWindows() bool {
	return runtime.GOOS == "windows"
}

// ReadFile loads path's contents as the source text for one module.
func ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ResolveImport turns an import spelled relative to fromDir into an absolute,
// cleaned path the module registry can key on (spec.md §4.7 "modules keyed
// by absolute path").
func ResolveImport(fromDir string, spelling string) string {
	if filepath.IsAbs(spelling) {
		return filepath.Clean(spelling)
	}
	return filepath.Clean(filepath.Join(fromDir, spelling))
}

func Dir(path string) string  { return filepath.Dir(path) }
func Base(path string) string { return filepath.Base(path) }

func Abs(path string) (string, error) {
	return filepath.Abs(path)
}
