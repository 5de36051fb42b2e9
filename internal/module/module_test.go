package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nn-lang/nnc/internal/config"
	"github.com/nn-lang/nnc/internal/logger"
	"github.com/nn-lang/nnc/internal/test"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func newTestSession() *config.Session {
	return config.NewSession(config.Options{Target: config.Target64}, logger.NewDeferLog())
}

func TestLoadResolvesDirectImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dep.nn", "var x = 1;\n")
	entryPath := writeFile(t, dir, "entry.nn", "import \"dep.nn\"\nvar y = 2;\n")

	sess := newTestSession()
	reg := NewRegistry(sess)
	entry := reg.Load(entryPath)

	if entry.ReadErr != nil {
		t.Fatalf("unexpected read error: %v", entry.ReadErr)
	}
	deps := entry.DependencyPaths()
	if len(deps) != 1 {
		t.Fatalf("expected 1 dependency, got %d", len(deps))
	}
	test.AssertEqual(t, deps[0], filepath.Join(dir, "dep.nn"))
	test.AssertEqual(t, len(reg.Modules()), 2)
	if sess.Log.HasErrors() {
		t.Fatalf("unexpected diagnostics")
	}
}

func TestLoadDedupsSharedDependency(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.nn", "var s = 1;\n")
	writeFile(t, dir, "a.nn", "import \"shared.nn\"\n")
	entryPath := writeFile(t, dir, "entry.nn", "import \"a.nn\"\nimport \"shared.nn\"\n")

	sess := newTestSession()
	reg := NewRegistry(sess)
	reg.Load(entryPath)

	// shared.nn is reachable through two different import edges but must
	// only be parsed once (spec.md §4.7 get_or_add dedup).
	test.AssertEqual(t, len(reg.Modules()), 3)
}

func TestLoadReportsMissingFile(t *testing.T) {
	dir := t.TempDir()
	entryPath := writeFile(t, dir, "entry.nn", "import \"missing.nn\"\n")

	sess := newTestSession()
	reg := NewRegistry(sess)
	entry := reg.Load(entryPath)

	deps := entry.Dependencies
	if len(deps) != 1 {
		t.Fatalf("expected 1 dependency edge, got %d", len(deps))
	}
	if deps[0].ReadErr == nil {
		t.Fatalf("expected a read error for the missing import")
	}
	if !sess.Log.HasErrors() {
		t.Fatalf("expected a diagnostic for the missing import")
	}
}

func TestDependencyOrderPlacesDepsFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dep.nn", "var x = 1;\n")
	entryPath := writeFile(t, dir, "entry.nn", "import \"dep.nn\"\n")

	sess := newTestSession()
	reg := NewRegistry(sess)
	entry := reg.Load(entryPath)

	order := reg.DependencyOrder(entry)
	if len(order) != 2 {
		t.Fatalf("expected 2 modules in order, got %d", len(order))
	}
	test.AssertEqual(t, order[0].Path, filepath.Join(dir, "dep.nn"))
	test.AssertEqual(t, order[1].Path, entryPath)
}

func TestDependencyOrderBreaksCycles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.nn", "import \"b.nn\"\n")
	writeFile(t, dir, "b.nn", "import \"a.nn\"\n")
	entryPath := filepath.Join(dir, "a.nn")

	sess := newTestSession()
	reg := NewRegistry(sess)
	entry := reg.Load(entryPath)

	// Must terminate (the onStack check breaks the cycle) and still
	// surface both modules.
	order := reg.DependencyOrder(entry)
	test.AssertEqual(t, len(order), 2)
}
