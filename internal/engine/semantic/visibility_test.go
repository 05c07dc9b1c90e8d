package semantic

import (
	"testing"

	"unravel/internal/engine/capture"
	"unravel/internal/engine/scope"
)

func vloc(start, end uint32) capture.Location {
	return capture.Location{File: "a.py", StartByte: start, EndByte: end}
}

func TestComputeVisibility(t *testing.T) {
	cases := []struct {
		name       string
		exported   bool
		exportKind ExportKind
		topLevel   bool
		paramLocal bool
		want       VisibilityKind
	}{
		{"exported top level", true, ExportNamed, true, false, VisExported},
		{"exported wins over local", true, ExportImplicit, false, true, VisExported},
		{"plain top level", false, "", true, false, VisFile},
		{"parameter", false, "", false, true, VisScopeChildren},
		{"nested non-local", false, "", false, false, VisScopeChildren},
	}
	for _, tc := range cases {
		got := ComputeVisibility(tc.exported, tc.exportKind, tc.topLevel, tc.paramLocal)
		if got.Kind != tc.want {
			t.Errorf("%s: kind = %s, want %s", tc.name, got.Kind, tc.want)
		}
		if tc.exported && got.Export != tc.exportKind {
			t.Errorf("%s: export kind = %s, want %s", tc.name, got.Export, tc.exportKind)
		}
	}
}

// Tree layout: root spans the file; scope 1 is a function body containing
// scope 2 (a nested block); scope 3 is a sibling block at top level.
func visibilityTree() *scope.Tree {
	return scope.Build("a.py", vloc(0, 200), []capture.Capture{
		{Kind: capture.KindScope, Subtype: "function", Location: vloc(10, 100)},
		{Kind: capture.KindScope, Subtype: "block", Location: vloc(40, 80)},
		{Kind: capture.KindScope, Subtype: "block", Location: vloc(120, 160)},
	})
}

func TestIsVisible(t *testing.T) {
	tree := visibilityTree()
	def := func(kind VisibilityKind, definingScope scope.ID) *Definition {
		return &Definition{
			Name:          "x",
			Location:      vloc(12, 15),
			DefiningScope: definingScope,
			Visibility:    Visibility{Kind: kind},
		}
	}

	cases := []struct {
		name     string
		def      *Definition
		refScope scope.ID
		refFile  string
		want     bool
	}{
		{"scope_local from same scope", def(VisScopeLocal, 1), 1, "a.py", true},
		{"scope_local from child", def(VisScopeLocal, 1), 2, "a.py", false},
		{"scope_children from same scope", def(VisScopeChildren, 1), 1, "a.py", true},
		{"scope_children from child", def(VisScopeChildren, 1), 2, "a.py", true},
		{"scope_children from sibling", def(VisScopeChildren, 1), 3, "a.py", false},
		{"scope_children from parent", def(VisScopeChildren, 1), scope.Root, "a.py", false},
		{"file from anywhere in file", def(VisFile, scope.Root), 3, "a.py", true},
		{"file from other file", def(VisFile, scope.Root), scope.Root, "b.py", false},
		{"exported cross-file", def(VisExported, scope.Root), scope.Root, "b.py", true},
		{"scope_children cross-file", def(VisScopeChildren, 1), 2, "b.py", false},
	}
	for _, tc := range cases {
		if got := IsVisible(tc.def, tree, tc.refScope, tc.refFile); got != tc.want {
			t.Errorf("%s: visible = %v, want %v", tc.name, got, tc.want)
		}
	}
}
