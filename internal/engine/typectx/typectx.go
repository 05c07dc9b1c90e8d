// Package typectx maintains the project-wide map from declaration locations
// and symbols to type names, and resolves those names to type symbols on
// demand. It carries just enough type information to resolve method
// receivers; it is not a type checker.
package typectx

import (
	"unravel/internal/engine/capture"
	"unravel/internal/engine/scope"
	"unravel/internal/engine/semantic"
)

// NameResolver resolves a raw type name through scope ascent, file-level
// definitions and imports. Implemented by the resolution registry; injected
// here to keep this package free of resolution policy.
type NameResolver interface {
	ResolveTypeName(name string, sc scope.ID, file string) (semantic.SymbolID, bool)
}

type locKey struct {
	file  string
	start uint32
}

type defRef struct {
	file string
	def  *semantic.Definition
}

// TypeContext is an immutable snapshot built from all per-file indices.
type TypeContext struct {
	bindings map[locKey][]semantic.TypeBinding
	symbols  map[semantic.SymbolID]defRef
	resolver NameResolver
}

// Build collects every file's type bindings and definitions into one
// queryable context. The resolver may be nil until SetResolver is called;
// queries before that resolve nothing.
func Build(indices map[string]*semantic.FileIndex) *TypeContext {
	tc := &TypeContext{
		bindings: make(map[locKey][]semantic.TypeBinding),
		symbols:  make(map[semantic.SymbolID]defRef),
	}
	for path, idx := range indices {
		if idx == nil {
			continue
		}
		for _, b := range idx.Bindings {
			k := locKey{path, b.Location.StartByte}
			tc.bindings[k] = append(tc.bindings[k], b)
		}
		for i := range idx.Definitions {
			d := &idx.Definitions[i]
			tc.symbols[d.Symbol] = defRef{file: path, def: d}
		}
	}
	return tc
}

func (tc *TypeContext) SetResolver(r NameResolver) { tc.resolver = r }

// bindingAt returns the binding at a location, preferring an explicit
// annotation over a constructor inference when both exist.
func (tc *TypeContext) bindingAt(loc capture.Location) (semantic.TypeBinding, bool) {
	bs := tc.bindings[locKey{loc.File, loc.StartByte}]
	if len(bs) == 0 {
		return semantic.TypeBinding{}, false
	}
	for _, b := range bs {
		if b.Source == semantic.BindingAnnotation {
			return b, true
		}
	}
	return bs[0], true
}

// SymbolType returns the declared or inferred type of a symbol from the
// nearest type binding at its declaration.
func (tc *TypeContext) SymbolType(sym semantic.SymbolID) (semantic.SymbolID, bool) {
	ref, ok := tc.symbols[sym]
	if !ok {
		return semantic.NoSymbol, false
	}
	// A typelike definition is its own type: Calculator in Calculator.add()
	// needs no binding.
	if ref.def.Kind.Typelike() {
		return sym, true
	}
	b, ok := tc.bindingAt(ref.def.Location)
	if !ok {
		if ref.def.Meta.TypeName != "" {
			return tc.resolveName(ref.def.Meta.TypeName, ref.def.DefiningScope, ref.file)
		}
		return semantic.NoSymbol, false
	}
	return tc.resolveName(b.TypeName, ref.def.DefiningScope, ref.file)
}

// TypeAtLocation looks up the type binding at loc. The binding stores a raw
// type name; it is resolved through the scope chain rooted at sc in loc's
// file. This is what lets Type::method() and Type.method() call shapes be
// receiver-resolved without any property-chain metadata for that node.
func (tc *TypeContext) TypeAtLocation(loc capture.Location, sc scope.ID) (semantic.SymbolID, bool) {
	b, ok := tc.bindingAt(loc)
	if !ok {
		return semantic.NoSymbol, false
	}
	return tc.resolveName(b.TypeName, sc, loc.File)
}

// Definition returns the definition behind a symbol, with its file.
func (tc *TypeContext) Definition(sym semantic.SymbolID) (*semantic.Definition, string, bool) {
	ref, ok := tc.symbols[sym]
	if !ok {
		return nil, "", false
	}
	return ref.def, ref.file, true
}

func (tc *TypeContext) resolveName(name string, sc scope.ID, file string) (semantic.SymbolID, bool) {
	if name == "" || tc.resolver == nil {
		return semantic.NoSymbol, false
	}
	return tc.resolver.ResolveTypeName(name, sc, file)
}
