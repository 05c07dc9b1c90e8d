package callgraph

import (
	"testing"

	"unravel/internal/engine/capture"
	"unravel/internal/engine/registry"
	"unravel/internal/engine/semantic"
)

func loc(start, end uint32) capture.Location {
	return capture.Location{File: "m.js", StartByte: start, EndByte: end}
}

// chainIndex defines three functions where a calls b and b calls c, plus an
// optional top-level call site at byte 350.
func chainIndex(topLevelCall bool) *semantic.FileIndex {
	caps := []capture.Capture{
		{Kind: capture.KindDefinition, Subtype: "function", Location: loc(0, 100), Text: "a"},
		{Kind: capture.KindScope, Subtype: "function", Location: loc(10, 100)},
		{Kind: capture.KindDefinition, Subtype: "function", Location: loc(110, 200), Text: "b"},
		{Kind: capture.KindScope, Subtype: "function", Location: loc(120, 200)},
		{Kind: capture.KindDefinition, Subtype: "function", Location: loc(210, 300), Text: "c"},
		{Kind: capture.KindScope, Subtype: "function", Location: loc(220, 300)},
		{Kind: capture.KindReference, Subtype: "call", Location: loc(50, 51), Text: "b"},
		{Kind: capture.KindReference, Subtype: "call", Location: loc(150, 151), Text: "c"},
	}
	if topLevelCall {
		caps = append(caps, capture.Capture{
			Kind: capture.KindReference, Subtype: "call", Location: loc(350, 351), Text: "a",
		})
	}
	return semantic.Build(semantic.BuildInput{
		Path:     "m.js",
		Language: "javascript",
		FileSpan: loc(0, 400),
		Captures: caps,
	})
}

func symbolNamed(t *testing.T, idx *semantic.FileIndex, name string) semantic.SymbolID {
	t.Helper()
	defs := idx.DefinitionsNamed(name)
	if len(defs) != 1 {
		t.Fatalf("%s: %d definitions", name, len(defs))
	}
	return defs[0].Symbol
}

// resolveAll pairs every call reference with the definition of the same
// name, standing in for the resolution registry.
func resolveAll(idx *semantic.FileIndex) []registry.Resolution {
	var out []registry.Resolution
	for i := range idx.References {
		ref := &idx.References[i]
		defs := idx.DefinitionsNamed(ref.Name)
		if len(defs) == 0 {
			continue
		}
		out = append(out, registry.Resolution{
			File:   "m.js",
			Ref:    ref,
			Status: registry.StatusResolved,
			Symbol: defs[0].Symbol,
			Target: "m.js",
		})
	}
	return out
}

func TestBuildEdgesAndEntryPoints(t *testing.T) {
	idx := chainIndex(false)
	indices := map[string]*semantic.FileIndex{"m.js": idx}
	g := Build(indices, resolveAll(idx))

	a := symbolNamed(t, idx, "a")
	b := symbolNamed(t, idx, "b")
	c := symbolNamed(t, idx, "c")

	if len(g.Nodes) != 3 {
		t.Fatalf("%d nodes, want 3", len(g.Nodes))
	}
	if len(g.Edges) != 2 {
		t.Fatalf("%d edges, want 2", len(g.Edges))
	}

	wantEdges := map[semantic.SymbolID]semantic.SymbolID{a: b, b: c}
	for _, e := range g.Edges {
		if wantEdges[e.Caller] != e.Callee {
			t.Errorf("unexpected edge %d -> %d", e.Caller, e.Callee)
		}
	}

	if len(g.EntryPoints) != 1 || g.EntryPoints[0] != a {
		t.Errorf("entry points = %v, want [a]", g.EntryPoints)
	}
	if g.Incoming(b) != 1 || g.Incoming(a) != 0 {
		t.Errorf("incoming degrees wrong: a=%d b=%d", g.Incoming(a), g.Incoming(b))
	}
	if out := g.Callees(a); len(out) != 1 || out[0] != b {
		t.Errorf("callees of a = %v, want [b]", out)
	}
}

func TestModuleLevelCallSuppressesEntryPoint(t *testing.T) {
	idx := chainIndex(true)
	indices := map[string]*semantic.FileIndex{"m.js": idx}
	g := Build(indices, resolveAll(idx))

	a := symbolNamed(t, idx, "a")

	if len(g.ModuleCalls) != 1 {
		t.Fatalf("%d module calls, want 1", len(g.ModuleCalls))
	}
	if g.ModuleCalls[0].Callee != a {
		t.Errorf("module call callee = %d, want a", g.ModuleCalls[0].Callee)
	}
	// The top-level call contributes no edge but a is no longer an entry
	// point.
	if g.Incoming(a) != 0 {
		t.Errorf("incoming(a) = %d, want 0", g.Incoming(a))
	}
	if len(g.EntryPoints) != 0 {
		t.Errorf("entry points = %v, want none", g.EntryPoints)
	}
}

// mutualIndex defines a and b calling only each other, with an optional main
// that calls a from its body.
func mutualIndex(withMain bool) *semantic.FileIndex {
	caps := []capture.Capture{
		{Kind: capture.KindDefinition, Subtype: "function", Location: loc(0, 100), Text: "a"},
		{Kind: capture.KindScope, Subtype: "function", Location: loc(10, 100)},
		{Kind: capture.KindDefinition, Subtype: "function", Location: loc(110, 200), Text: "b"},
		{Kind: capture.KindScope, Subtype: "function", Location: loc(120, 200)},
		{Kind: capture.KindReference, Subtype: "call", Location: loc(50, 51), Text: "b"},
		{Kind: capture.KindReference, Subtype: "call", Location: loc(150, 151), Text: "a"},
	}
	if withMain {
		caps = append(caps,
			capture.Capture{Kind: capture.KindDefinition, Subtype: "function", Location: loc(210, 300), Text: "main"},
			capture.Capture{Kind: capture.KindScope, Subtype: "function", Location: loc(220, 300)},
			capture.Capture{Kind: capture.KindReference, Subtype: "call", Location: loc(250, 251), Text: "a"},
		)
	}
	return semantic.Build(semantic.BuildInput{
		Path:     "m.js",
		Language: "javascript",
		FileSpan: loc(0, 400),
		Captures: caps,
	})
}

func TestMutualRecursionReportsBothAsEntryPoints(t *testing.T) {
	idx := mutualIndex(false)
	indices := map[string]*semantic.FileIndex{"m.js": idx}
	g := Build(indices, resolveAll(idx))

	a := symbolNamed(t, idx, "a")
	b := symbolNamed(t, idx, "b")

	if len(g.Edges) != 2 {
		t.Fatalf("%d edges, want 2", len(g.Edges))
	}
	// Intra-cluster calls must not hide the cluster: with no external
	// caller, both members are independent entry points.
	if len(g.EntryPoints) != 2 {
		t.Fatalf("entry points = %v, want both cluster members", g.EntryPoints)
	}
	got := map[semantic.SymbolID]bool{g.EntryPoints[0]: true, g.EntryPoints[1]: true}
	if !got[a] || !got[b] {
		t.Errorf("entry points = %v, want a and b", g.EntryPoints)
	}
}

func TestReachedRecursiveClusterIsNotEntryPoint(t *testing.T) {
	idx := mutualIndex(true)
	indices := map[string]*semantic.FileIndex{"m.js": idx}
	g := Build(indices, resolveAll(idx))

	main := symbolNamed(t, idx, "main")

	// main reaches a, and a reaches b inside the cluster: only main
	// remains unreached.
	if len(g.EntryPoints) != 1 || g.EntryPoints[0] != main {
		t.Errorf("entry points = %v, want [main]", g.EntryPoints)
	}
}

func TestUnresolvedCallsIgnored(t *testing.T) {
	idx := chainIndex(false)
	indices := map[string]*semantic.FileIndex{"m.js": idx}

	var unresolved []registry.Resolution
	for i := range idx.References {
		unresolved = append(unresolved, registry.Resolution{
			File:   "m.js",
			Ref:    &idx.References[i],
			Status: registry.StatusUnresolved,
			Reason: registry.ReasonNotFound,
		})
	}
	g := Build(indices, unresolved)

	if len(g.Edges) != 0 {
		t.Fatalf("%d edges from unresolved calls, want 0", len(g.Edges))
	}
	// Every callable stays an entry point when nothing resolves.
	if len(g.EntryPoints) != 3 {
		t.Errorf("%d entry points, want 3", len(g.EntryPoints))
	}
}

func TestNonCallResolutionsIgnored(t *testing.T) {
	idx := semantic.Build(semantic.BuildInput{
		Path:     "m.js",
		Language: "javascript",
		FileSpan: loc(0, 200),
		Captures: []capture.Capture{
			{Kind: capture.KindDefinition, Subtype: "function", Location: loc(0, 100), Text: "f"},
			{Kind: capture.KindScope, Subtype: "function", Location: loc(10, 100)},
			{Kind: capture.KindReference, Subtype: "member_access", Location: loc(150, 151), Text: "f"},
		},
	})
	indices := map[string]*semantic.FileIndex{"m.js": idx}
	g := Build(indices, resolveAll(idx))

	if len(g.Edges) != 0 || len(g.ModuleCalls) != 0 {
		t.Fatal("member access reference produced call graph entries")
	}
	// A name mention outside a call does not suppress entry status.
	if len(g.EntryPoints) != 1 {
		t.Errorf("%d entry points, want 1", len(g.EntryPoints))
	}
}

func TestNestedScopesAttributeToNearestCallable(t *testing.T) {
	// A call inside a block nested in b's body must attribute to b.
	idx := semantic.Build(semantic.BuildInput{
		Path:     "m.js",
		Language: "javascript",
		FileSpan: loc(0, 400),
		Captures: []capture.Capture{
			{Kind: capture.KindDefinition, Subtype: "function", Location: loc(0, 100), Text: "helper"},
			{Kind: capture.KindScope, Subtype: "function", Location: loc(10, 100)},
			{Kind: capture.KindDefinition, Subtype: "function", Location: loc(110, 300), Text: "b"},
			{Kind: capture.KindScope, Subtype: "function", Location: loc(120, 300)},
			{Kind: capture.KindScope, Subtype: "block", Location: loc(150, 250)},
			{Kind: capture.KindReference, Subtype: "call", Location: loc(200, 201), Text: "helper"},
		},
	})
	indices := map[string]*semantic.FileIndex{"m.js": idx}
	g := Build(indices, resolveAll(idx))

	if len(g.Edges) != 1 {
		t.Fatalf("%d edges, want 1", len(g.Edges))
	}
	if want := symbolNamed(t, idx, "b"); g.Edges[0].Caller != want {
		t.Errorf("caller = %d, want b (%d)", g.Edges[0].Caller, want)
	}
}
