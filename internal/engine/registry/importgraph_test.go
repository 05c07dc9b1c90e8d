package registry

import (
	"testing"

	"unravel/internal/engine/semantic"
)

// chain: app.js imports mid.js, mid.js imports core.js.
func chainGraph() (*ImportGraph, *project) {
	p := newProject(
		buildIndex("core.js", 100, nil),
		addImport(buildIndex("mid.js", 100, nil),
			semantic.Import{Name: "c", Path: "./core", Kind: semantic.ImportNamed}),
		addImport(buildIndex("app.js", 100, nil),
			semantic.Import{Name: "m", Path: "./mid", Kind: semantic.ImportNamed}),
	)
	g := NewImportGraph()
	for _, idx := range p.indices {
		g.AddFile(idx, p.imports)
	}
	return g, p
}

func TestImportGraphEdges(t *testing.T) {
	g, _ := chainGraph()

	if got := g.Imports("mid.js"); len(got) != 1 || got[0] != "core.js" {
		t.Errorf("mid.js imports = %v, want [core.js]", got)
	}
	if got := g.Imports("core.js"); len(got) != 0 {
		t.Errorf("core.js imports = %v, want none", got)
	}
	if n := g.EdgeCount(); n != 2 {
		t.Errorf("edge count = %d, want 2", n)
	}
}

func TestDependentsOfIsTransitive(t *testing.T) {
	g, _ := chainGraph()

	deps := g.DependentsOf("core.js")
	if len(deps) != 2 || deps[0] != "app.js" || deps[1] != "mid.js" {
		t.Fatalf("dependents of core.js = %v, want [app.js mid.js]", deps)
	}
	if deps := g.DependentsOf("app.js"); len(deps) != 0 {
		t.Errorf("dependents of app.js = %v, want none", deps)
	}
}

func TestAddFileReplacesContribution(t *testing.T) {
	g, p := chainGraph()

	// mid.js drops its import of core.js.
	mid := buildIndex("mid.js", 100, nil)
	g.AddFile(mid, p.imports)

	if deps := g.DependentsOf("core.js"); len(deps) != 0 {
		t.Errorf("dependents after edit = %v, want none", deps)
	}
	if n := g.EdgeCount(); n != 1 {
		t.Errorf("edge count after edit = %d, want 1", n)
	}
}

func TestRemoveFile(t *testing.T) {
	g, _ := chainGraph()

	g.RemoveFile("app.js")
	if deps := g.DependentsOf("mid.js"); len(deps) != 0 {
		t.Errorf("dependents after removal = %v, want none", deps)
	}
	if n := g.EdgeCount(); n != 1 {
		t.Errorf("edge count after removal = %d, want 1", n)
	}
}

func TestUnresolvedImportsAddNoEdges(t *testing.T) {
	p := newProject(
		addImport(buildIndex("solo.js", 100, nil),
			semantic.Import{Name: "x", Path: "lodash", Kind: semantic.ImportNamed}),
	)
	g := NewImportGraph()
	g.AddFile(p.indices["solo.js"], p.imports)
	if n := g.EdgeCount(); n != 0 {
		t.Errorf("external package produced %d edges, want 0", n)
	}
}
