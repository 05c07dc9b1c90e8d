package registry

import (
	"testing"

	"unravel/internal/engine/semantic"
)

func addImport(idx *semantic.FileIndex, imp semantic.Import) *semantic.FileIndex {
	idx.Imports = append(idx.Imports, imp)
	return idx
}

func resolutionFor(t *testing.T, p *project, file, name string) Resolution {
	t.Helper()
	for _, res := range p.res.ResolveNames() {
		if res.File == file && res.Ref.Name == name {
			return res
		}
	}
	t.Fatalf("no resolution for %s in %s", name, file)
	return Resolution{}
}

func TestResolveInnermostShadowsOuter(t *testing.T) {
	p := newProject(buildIndex("m.js", 300, nil,
		scopeCap("m.js", "function", 50, 200),
		defCap("m.js", "variable", "x", 10, 15),
		defCap("m.js", "parameter", "x", 55, 58),
		refCap("m.js", "call", "x", 100, 103, ""),
	))

	res := resolutionFor(t, p, "m.js", "x")
	if res.Status != StatusResolved {
		t.Fatalf("x unresolved: %+v", res)
	}
	param := p.indices["m.js"].DefinitionsNamed("x")
	var want semantic.SymbolID
	for _, d := range param {
		if d.Kind == semantic.DefParameter {
			want = d.Symbol
		}
	}
	if res.Symbol != want {
		t.Errorf("x resolved to outer definition, want the shadowing parameter")
	}
}

func TestResolveSiblingScopeInvisible(t *testing.T) {
	p := newProject(buildIndex("m.js", 300, nil,
		scopeCap("m.js", "block", 20, 80),
		scopeCap("m.js", "block", 100, 200),
		defCap("m.js", "variable", "y", 30, 33),
		refCap("m.js", "call", "y", 150, 153, ""),
	))

	res := resolutionFor(t, p, "m.js", "y")
	if res.Status != StatusUnresolved || res.Reason != ReasonNotFound {
		t.Fatalf("sibling-scoped y should be invisible, got %+v", res)
	}
}

func TestResolveLocalBeatsImported(t *testing.T) {
	p := newProject(
		buildIndex("lib.js", 100, nil, defCap("lib.js", "function.exported", "run", 0, 50)),
		addImport(buildIndex("m.js", 300, nil,
			defCap("m.js", "function", "run", 10, 80),
			refCap("m.js", "call", "run", 200, 203, ""),
		), semantic.Import{Name: "run", Path: "./lib", Kind: semantic.ImportNamed}),
	)

	res := resolutionFor(t, p, "m.js", "run")
	if res.Status != StatusResolved || res.Target != "m.js" {
		t.Fatalf("run should resolve to the local definition, got %+v", res)
	}
}

func TestResolveThroughImport(t *testing.T) {
	p := newProject(
		buildIndex("utils.js", 100, nil, defCap("utils.js", "function.exported", "helper", 0, 50)),
		addImport(buildIndex("main.js", 300, nil,
			refCap("main.js", "call", "helper", 100, 106, ""),
		), semantic.Import{Name: "helper", Path: "./utils", Kind: semantic.ImportNamed}),
	)

	res := resolutionFor(t, p, "main.js", "helper")
	if res.Status != StatusResolved {
		t.Fatalf("helper unresolved: %+v", res)
	}
	if res.Target != "utils.js" {
		t.Errorf("target = %s, want utils.js", res.Target)
	}
	want := p.indices["utils.js"].DefinitionsNamed("helper")[0].Symbol
	if res.Symbol != want {
		t.Errorf("symbol mismatch: got %d want %d", res.Symbol, want)
	}
}

func TestResolveImportAlias(t *testing.T) {
	p := newProject(
		buildIndex("utils.js", 100, nil, defCap("utils.js", "function.exported", "helper", 0, 50)),
		addImport(buildIndex("main.js", 300, nil,
			refCap("main.js", "call", "h", 100, 101, ""),
		), semantic.Import{Name: "helper", Alias: "h", Path: "./utils", Kind: semantic.ImportNamed}),
	)

	res := resolutionFor(t, p, "main.js", "h")
	if res.Status != StatusResolved || res.Target != "utils.js" {
		t.Fatalf("aliased import unresolved: %+v", res)
	}
}

func TestResolveDefaultImport(t *testing.T) {
	p := newProject(
		buildIndex("app.js", 200, nil, defCap("app.js", "class.exported_default", "App", 0, 150)),
		addImport(buildIndex("main.js", 300, nil,
			refCap("main.js", "call", "Application", 100, 111, ""),
		), semantic.Import{Name: "Application", Path: "./app", Kind: semantic.ImportDefault}),
	)

	res := resolutionFor(t, p, "main.js", "Application")
	if res.Status != StatusResolved || res.Target != "app.js" {
		t.Fatalf("default import unresolved: %+v", res)
	}
	if want := p.indices["app.js"].DefinitionsNamed("App")[0].Symbol; res.Symbol != want {
		t.Errorf("default import resolved to %d, want App (%d)", res.Symbol, want)
	}
}

func TestResolveImportUnresolvedPath(t *testing.T) {
	p := newProject(
		addImport(buildIndex("main.js", 300, nil,
			refCap("main.js", "call", "gone", 100, 104, ""),
		), semantic.Import{Name: "gone", Path: "./missing", Kind: semantic.ImportNamed}),
	)

	res := resolutionFor(t, p, "main.js", "gone")
	if res.Status != StatusUnresolved || res.Reason != ReasonImportUnresolved {
		t.Fatalf("want import_unresolved, got %+v", res)
	}
	if res.Target != "./missing" {
		t.Errorf("target = %q, want the raw path", res.Target)
	}
}

func TestResolveTieBreakIsLowConfidence(t *testing.T) {
	p := newProject(buildIndex("m.py", 300, nil,
		defCap("m.py", "variable", "state", 10, 15),
		defCap("m.py", "variable", "state", 50, 55),
		refCap("m.py", "call", "state", 200, 205, ""),
	))

	res := resolutionFor(t, p, "m.py", "state")
	if res.Status != StatusResolved {
		t.Fatalf("state unresolved: %+v", res)
	}
	if !res.LowConfidence {
		t.Error("tie-break between equal candidates must be low confidence")
	}
	first := p.indices["m.py"].DefinitionsNamed("state")[0]
	if res.Symbol != first.Symbol {
		t.Error("tie-break should pick the first definition in source order")
	}
}

func TestResolveReceiverViaConstructorBinding(t *testing.T) {
	ex := &stubExtractors{
		ctors:     map[string]string{"calc": "Calculator"},
		receivers: map[string]semantic.Receiver{"callnode": {Name: "calc"}},
	}
	p := newProject(buildIndex("m.js", 400, ex,
		defCap("m.js", "class", "Calculator", 10, 100),
		defCap("m.js", "method", "add", 20, 60),
		defCap("m.js", "variable", "calc", 150, 180),
		refCap("m.js", "call", "add", 200, 203, "callnode"),
	))

	res := resolutionFor(t, p, "m.js", "add")
	if res.Status != StatusResolved {
		t.Fatalf("calc.add unresolved: %+v", res)
	}
	if want := methodSymbol(t, p, "m.js", "add"); res.Symbol != want {
		t.Errorf("resolved to %d, want add (%d)", res.Symbol, want)
	}
}

func TestResolveReceiverViaAnnotation(t *testing.T) {
	ex := &stubExtractors{
		annots:    map[string]string{"calc": "Calculator"},
		receivers: map[string]semantic.Receiver{"callnode": {Name: "calc"}},
	}
	p := newProject(buildIndex("m.ts", 400, ex,
		defCap("m.ts", "class", "Calculator", 10, 100),
		defCap("m.ts", "method", "add", 20, 60),
		defCap("m.ts", "variable", "calc", 150, 180),
		refCap("m.ts", "call", "add", 200, 203, "callnode"),
	))

	res := resolutionFor(t, p, "m.ts", "add")
	if res.Status != StatusResolved {
		t.Fatalf("annotated receiver unresolved: %+v", res)
	}
}

func TestResolveTypeNameAsReceiver(t *testing.T) {
	ex := &stubExtractors{
		receivers: map[string]semantic.Receiver{"callnode": {Name: "Calculator"}},
	}
	p := newProject(buildIndex("m.rs", 400, ex,
		defCap("m.rs", "class", "Calculator", 10, 100),
		defCap("m.rs", "method", "new", 20, 60),
		refCap("m.rs", "call", "new", 200, 203, "callnode"),
	))

	res := resolutionFor(t, p, "m.rs", "new")
	if res.Status != StatusResolved {
		t.Fatalf("Calculator::new unresolved: %+v", res)
	}
}

func TestResolveSelfReceiver(t *testing.T) {
	ex := &stubExtractors{
		receivers: map[string]semantic.Receiver{"callnode": {Name: "self"}},
	}
	p := newProject(buildIndex("m.py", 400, ex,
		defCap("m.py", "class", "Calculator", 10, 300),
		defCap("m.py", "method", "add", 20, 60),
		defCap("m.py", "method", "total", 100, 250),
		refCap("m.py", "call", "add", 150, 153, "callnode"),
	))

	res := resolutionFor(t, p, "m.py", "add")
	if res.Status != StatusResolved {
		t.Fatalf("self.add unresolved: %+v", res)
	}
	if want := methodSymbol(t, p, "m.py", "add"); res.Symbol != want {
		t.Errorf("resolved to %d, want add (%d)", res.Symbol, want)
	}
}

func TestResolveInheritedMember(t *testing.T) {
	ex := &stubExtractors{
		meta:      map[string]semantic.DefMeta{"Derived": {Extends: []string{"Base"}}},
		receivers: map[string]semantic.Receiver{"callnode": {Name: "d"}},
		ctors:     map[string]string{"d": "Derived"},
	}
	p := newProject(buildIndex("m.js", 500, ex,
		defCap("m.js", "class", "Base", 10, 100),
		defCap("m.js", "method", "greet", 20, 60),
		defCap("m.js", "class", "Derived", 150, 250),
		defCap("m.js", "variable", "d", 300, 330),
		refCap("m.js", "call", "greet", 400, 405, "callnode"),
	))

	res := resolutionFor(t, p, "m.js", "greet")
	if res.Status != StatusResolved {
		t.Fatalf("inherited greet unresolved: %+v", res)
	}
	if want := methodSymbol(t, p, "m.js", "greet"); res.Symbol != want {
		t.Errorf("resolved to %d, want Base.greet (%d)", res.Symbol, want)
	}
}

func TestResolveNamespaceImportMember(t *testing.T) {
	ex := &stubExtractors{
		receivers: map[string]semantic.Receiver{"callnode": {Name: "utils"}},
	}
	p := newProject(
		buildIndex("utils.py", 100, nil, defCap("utils.py", "function.exported_implicit", "parse", 0, 50)),
		addImport(buildIndex("main.py", 300, ex,
			refCap("main.py", "call", "parse", 100, 105, "callnode"),
		), semantic.Import{Name: "utils", Path: "utils", Kind: semantic.ImportNamespace}),
	)

	res := resolutionFor(t, p, "main.py", "parse")
	if res.Status != StatusResolved || res.Target != "utils.py" {
		t.Fatalf("utils.parse unresolved: %+v", res)
	}
}

func methodSymbol(t *testing.T, p *project, file, name string) semantic.SymbolID {
	t.Helper()
	for _, d := range p.indices[file].DefinitionsNamed(name) {
		if d.Kind == semantic.DefMethod {
			return d.Symbol
		}
	}
	t.Fatalf("no method %s in %s", name, file)
	return semantic.NoSymbol
}
