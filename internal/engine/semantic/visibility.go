package semantic

import "unravel/internal/engine/scope"

// VisibilityKind is reference-centric: it is evaluated relative to the
// location doing the asking, not stored as an absolute property.
type VisibilityKind string

const (
	// VisScopeLocal: visible only from the exact defining scope.
	VisScopeLocal VisibilityKind = "scope_local"
	// VisScopeChildren: visible from the defining scope and all descendants.
	VisScopeChildren VisibilityKind = "scope_children"
	// VisFile: visible anywhere in the same file.
	VisFile VisibilityKind = "file"
	// VisExported: visible from other files, subject to import resolution.
	VisExported VisibilityKind = "exported"
)

type Visibility struct {
	Kind   VisibilityKind `json:"kind"`
	Export ExportKind     `json:"export,omitempty"`
}

// ComputeVisibility maps a declaration's syntactic situation to its
// visibility. Parameters and block locals are visible to the defining scope
// and everything nested inside it; a reference in a sibling block must not
// see them. ScopeLocal is never produced here; adapters assign it directly
// for constructs whose binding does not extend into child scopes.
func ComputeVisibility(isExported bool, exportKind ExportKind, isTopLevel, isParamOrBlockLocal bool) Visibility {
	switch {
	case isExported:
		return Visibility{Kind: VisExported, Export: exportKind}
	case isTopLevel:
		return Visibility{Kind: VisFile}
	case isParamOrBlockLocal:
		return Visibility{Kind: VisScopeChildren}
	default:
		return Visibility{Kind: VisScopeChildren}
	}
}

// IsVisible evaluates def's visibility from the perspective of a reference
// in refScope of refFile. For exported definitions this answers "could be
// visible"; whether the referencing file actually imports the symbol is
// enforced by the resolution registry, not here.
func IsVisible(def *Definition, tree *scope.Tree, refScope scope.ID, refFile string) bool {
	switch def.Visibility.Kind {
	case VisScopeLocal:
		return refFile == def.Location.File && refScope == def.DefiningScope
	case VisScopeChildren:
		return refFile == def.Location.File && tree != nil && tree.IsAncestor(def.DefiningScope, refScope)
	case VisFile:
		return refFile == def.Location.File
	case VisExported:
		return true
	default:
		return false
	}
}
