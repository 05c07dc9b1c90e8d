package registry

import (
	"sort"

	"unravel/internal/engine/scope"
	"unravel/internal/engine/semantic"
	"unravel/internal/engine/typectx"
)

// maxInheritanceDepth bounds the base-type walk during member lookup.
const maxInheritanceDepth = 8

type Status string

const (
	StatusResolved   Status = "resolved"
	StatusUnresolved Status = "unresolved"
)

type Reason string

const (
	ReasonNotFound         Reason = "not_found"
	ReasonAmbiguous        Reason = "ambiguous"
	ReasonImportUnresolved Reason = "import_unresolved"
	ReasonCircularReexport Reason = "circular_reexport"
)

// Resolution is the tagged outcome of matching one reference to a
// definition. It is a value, never an error: "not found" stays
// distinguishable from "not yet analyzed".
type Resolution struct {
	File   string              `json:"file"`
	Ref    *semantic.Reference `json:"-"`
	Status Status              `json:"status"`
	Symbol semantic.SymbolID   `json:"symbol,omitempty"`
	Target string              `json:"target,omitempty"`
	Reason Reason              `json:"reason,omitempty"`
	// LowConfidence marks tie-breaks between equal candidates, decided by
	// source order.
	LowConfidence bool `json:"low_confidence,omitempty"`
	// Chain is the traversed re-export chain, when one was followed.
	Chain []string `json:"chain,omitempty"`
}

func resolved(file string, ref *semantic.Reference, sym semantic.SymbolID, target string) Resolution {
	return Resolution{File: file, Ref: ref, Status: StatusResolved, Symbol: sym, Target: target}
}

func unresolved(file string, ref *semantic.Reference, reason Reason) Resolution {
	return Resolution{File: file, Ref: ref, Status: StatusUnresolved, Reason: reason}
}

// ResolutionRegistry resolves references against the merged project state.
type ResolutionRegistry struct {
	indices map[string]*semantic.FileIndex
	symbols *SymbolRegistry
	imports *ImportRegistry
	exports *ExportRegistry
	types   *typectx.TypeContext
}

func NewResolutionRegistry(
	indices map[string]*semantic.FileIndex,
	symbols *SymbolRegistry,
	imports *ImportRegistry,
	exports *ExportRegistry,
	types *typectx.TypeContext,
) *ResolutionRegistry {
	r := &ResolutionRegistry{
		indices: indices,
		symbols: symbols,
		imports: imports,
		exports: exports,
		types:   types,
	}
	if types != nil {
		types.SetResolver(r)
	}
	return r
}

// ResolveNames resolves every reference of every indexed file, files in
// sorted order, references in source order.
func (r *ResolutionRegistry) ResolveNames() []Resolution {
	paths := make([]string, 0, len(r.indices))
	for p := range r.indices {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []Resolution
	for _, p := range paths {
		idx := r.indices[p]
		if idx == nil {
			continue
		}
		for i := range idx.References {
			ref := &idx.References[i]
			out = append(out, r.Resolve(ref, ref.EnclosingScope, p))
		}
	}
	return out
}

// Resolve matches one reference to a definition. Order: receiver-typed
// member lookup, scope ascent (innermost shadows outer), file-level
// definitions, imports with transitive re-export chains. Local always beats
// imported.
func (r *ResolutionRegistry) Resolve(ref *semantic.Reference, sc scope.ID, file string) Resolution {
	if ref.Receiver != nil {
		return r.resolveMember(ref, sc, file)
	}

	if e, low, ok := r.lookupLexical(ref.Name, sc, file); ok {
		res := resolved(file, ref, e.Def.Symbol, e.File)
		res.LowConfidence = low
		return res
	}

	if e, ok := r.lookupFileLevel(ref.Name, file); ok {
		return resolved(file, ref, e.Def.Symbol, e.File)
	}

	return r.lookupImported(ref, file)
}

// lookupLexical walks scope ancestry outward; at each level the first
// same-named visible definition wins.
func (r *ResolutionRegistry) lookupLexical(name string, sc scope.ID, file string) (Entry, bool, bool) {
	idx := r.indices[file]
	if idx == nil || idx.Scopes == nil {
		return Entry{}, false, false
	}
	for _, level := range idx.Scopes.Ancestry(sc) {
		var cands []*semantic.Definition
		for _, d := range idx.DefinitionsNamed(name) {
			if d.DefiningScope != level {
				continue
			}
			if !semantic.IsVisible(d, idx.Scopes, sc, file) {
				continue
			}
			cands = append(cands, d)
		}
		if len(cands) == 0 {
			continue
		}
		sort.Slice(cands, func(i, j int) bool {
			return cands[i].Location.StartByte < cands[j].Location.StartByte
		})
		return Entry{File: file, Def: cands[0]}, len(cands) > 1, true
	}
	return Entry{}, false, false
}

// lookupFileLevel finds file-visible or exported same-file definitions the
// scope ascent did not reach (the ascent already covers root-scope
// declarations; this catches file-visible definitions anchored elsewhere).
func (r *ResolutionRegistry) lookupFileLevel(name, file string) (Entry, bool) {
	idx := r.indices[file]
	if idx == nil {
		return Entry{}, false
	}
	for _, d := range idx.DefinitionsNamed(name) {
		switch d.Visibility.Kind {
		case semantic.VisFile, semantic.VisExported:
			return Entry{File: file, Def: d}, true
		}
	}
	return Entry{}, false
}

// lookupImported matches the name against the file's import bindings and
// follows the export chain of the target file. The result is the original
// definition at the end of the chain, not the import statement.
func (r *ResolutionRegistry) lookupImported(ref *semantic.Reference, file string) Resolution {
	idx := r.indices[file]
	if idx == nil {
		return unresolved(file, ref, ReasonNotFound)
	}
	for i := range idx.Imports {
		imp := &idx.Imports[i]
		if imp.Kind == semantic.ImportSideEffect || imp.LocalName() != ref.Name {
			continue
		}
		target, ok := r.imports.Resolve(file, imp.Path)
		if !ok {
			res := unresolved(file, ref, ReasonImportUnresolved)
			res.Target = imp.Path
			return res
		}
		exportedName := imp.Name
		if imp.Kind == semantic.ImportDefault {
			exportedName = "default"
		}
		chain := r.exports.Lookup(target, exportedName)
		return r.fromChain(file, ref, chain)
	}
	return unresolved(file, ref, ReasonNotFound)
}

func (r *ResolutionRegistry) fromChain(file string, ref *semantic.Reference, chain ChainResult) Resolution {
	switch {
	case chain.Circular:
		res := unresolved(file, ref, ReasonCircularReexport)
		res.Chain = chain.Chain
		return res
	case chain.Found:
		res := resolved(file, ref, chain.Symbol, chain.File)
		res.Chain = chain.Chain
		return res
	default:
		res := unresolved(file, ref, ReasonNotFound)
		res.Chain = chain.Chain
		return res
	}
}

// resolveMember resolves a reference with a receiver: type the receiver,
// then look the member up on that type and its bases.
func (r *ResolutionRegistry) resolveMember(ref *semantic.Reference, sc scope.ID, file string) Resolution {
	recv := ref.Receiver

	// self/this bind to the innermost enclosing typelike declaration.
	if recv.Name == "self" || recv.Name == "this" || recv.Name == "Self" || recv.Name == "cls" {
		if typeSym, ok := r.enclosingType(ref, file); ok {
			return r.memberOn(typeSym, ref, sc, file)
		}
		return unresolved(file, ref, ReasonNotFound)
	}

	// Namespace imports: ns.member resolves through the target file's
	// exports rather than through a type.
	if res, handled := r.namespaceMember(ref, file); handled {
		return res
	}

	typeSym, ok := r.receiverType(recv, sc, file)
	if !ok {
		return unresolved(file, ref, ReasonNotFound)
	}
	return r.memberOn(typeSym, ref, sc, file)
}

// receiverType resolves the receiver name to its type symbol. A receiver
// that names a type directly (Type.method() / Type::method()) is its own
// type; otherwise the receiver's declaration is found lexically and its
// type comes from the type binding at that declaration. This path needs no
// property-chain metadata.
func (r *ResolutionRegistry) receiverType(recv *semantic.Receiver, sc scope.ID, file string) (semantic.SymbolID, bool) {
	if e, _, ok := r.lookupLexical(recv.Name, sc, file); ok {
		if e.Def.Kind.Typelike() {
			return e.Def.Symbol, true
		}
		if sym, ok := r.types.SymbolType(e.Def.Symbol); ok {
			return sym, true
		}
		// Declaration found but untyped: try the binding at its location
		// from the defining scope's perspective.
		return r.types.TypeAtLocation(e.Def.Location, e.Def.DefiningScope)
	}
	if e, ok := r.lookupFileLevel(recv.Name, file); ok && e.Def.Kind.Typelike() {
		return e.Def.Symbol, true
	}
	// Imported receiver: an imported class used as value or type.
	imported := r.lookupImported(&semantic.Reference{Name: recv.Name}, file)
	if imported.Status == StatusResolved {
		if e, ok := r.symbols.Definition(imported.Symbol); ok {
			if e.Def.Kind.Typelike() {
				return e.Def.Symbol, true
			}
			if sym, ok := r.types.SymbolType(e.Def.Symbol); ok {
				return sym, true
			}
		}
	}
	return semantic.NoSymbol, false
}

// memberOn finds a member by name on a type, walking declared base types
// breadth-first to bounded depth. Members are visible when they are
// themselves visible from the reference, or when their owner is: a public
// method travels with its exported class.
func (r *ResolutionRegistry) memberOn(typeSym semantic.SymbolID, ref *semantic.Reference, sc scope.ID, file string) Resolution {
	seen := map[semantic.SymbolID]struct{}{}
	level := []semantic.SymbolID{typeSym}

	for depth := 0; depth <= maxInheritanceDepth && len(level) > 0; depth++ {
		var matches []Entry
		var next []semantic.SymbolID
		for _, t := range level {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			owner, ownerOK := r.symbols.Definition(t)
			for _, m := range r.symbols.Members(t) {
				if m.Def.Name != ref.Name {
					continue
				}
				midx := r.indices[m.File]
				var tree = (*scope.Tree)(nil)
				if midx != nil {
					tree = midx.Scopes
				}
				visible := semantic.IsVisible(m.Def, tree, sc, file)
				if !visible && ownerOK {
					var otree = (*scope.Tree)(nil)
					if oidx := r.indices[owner.File]; oidx != nil {
						otree = oidx.Scopes
					}
					visible = semantic.IsVisible(owner.Def, otree, sc, file) &&
						m.Def.Visibility.Kind != semantic.VisScopeLocal
				}
				if visible {
					matches = append(matches, m)
				}
			}
			if ownerOK {
				next = append(next, r.baseTypes(owner)...)
			}
		}
		if len(matches) == 1 {
			return resolved(file, ref, matches[0].Def.Symbol, matches[0].File)
		}
		if len(matches) > 1 {
			distinct := map[semantic.SymbolID]struct{}{}
			for _, m := range matches {
				distinct[m.Def.Symbol] = struct{}{}
			}
			if len(distinct) == 1 {
				return resolved(file, ref, matches[0].Def.Symbol, matches[0].File)
			}
			// Same name inherited from unrelated bases at equal depth.
			return unresolved(file, ref, ReasonAmbiguous)
		}
		level = next
	}
	return unresolved(file, ref, ReasonNotFound)
}

// baseTypes resolves the declared base type names of a type definition from
// its own defining scope.
func (r *ResolutionRegistry) baseTypes(owner Entry) []semantic.SymbolID {
	names := make([]string, 0, len(owner.Def.Meta.Extends)+len(owner.Def.Meta.Implements))
	names = append(names, owner.Def.Meta.Extends...)
	names = append(names, owner.Def.Meta.Implements...)
	var out []semantic.SymbolID
	for _, n := range names {
		if sym, ok := r.ResolveTypeName(n, owner.Def.DefiningScope, owner.File); ok {
			out = append(out, sym)
		}
	}
	return out
}

// namespaceMember handles ns.member where ns is a namespace import.
func (r *ResolutionRegistry) namespaceMember(ref *semantic.Reference, file string) (Resolution, bool) {
	idx := r.indices[file]
	if idx == nil {
		return Resolution{}, false
	}
	for i := range idx.Imports {
		imp := &idx.Imports[i]
		if imp.Kind != semantic.ImportNamespace || imp.LocalName() != ref.Receiver.Name {
			continue
		}
		target, ok := r.imports.Resolve(file, imp.Path)
		if !ok {
			res := unresolved(file, ref, ReasonImportUnresolved)
			res.Target = imp.Path
			return res, true
		}
		return r.fromChain(file, ref, r.exports.Lookup(target, ref.Name)), true
	}
	return Resolution{}, false
}

// enclosingType finds the smallest typelike definition whose span contains
// the reference, for self/this receivers.
func (r *ResolutionRegistry) enclosingType(ref *semantic.Reference, file string) (semantic.SymbolID, bool) {
	idx := r.indices[file]
	if idx == nil {
		return semantic.NoSymbol, false
	}
	best := semantic.NoSymbol
	bestSpan := uint32(0)
	for i := range idx.Definitions {
		d := &idx.Definitions[i]
		if !d.Kind.Typelike() || !d.Location.Contains(ref.Location) {
			continue
		}
		if best == semantic.NoSymbol || d.Location.Span() < bestSpan {
			best = d.Symbol
			bestSpan = d.Location.Span()
		}
	}
	if best != semantic.NoSymbol {
		return best, true
	}
	// Members declared in impl blocks carry an owner even though the type's
	// span does not contain them.
	for i := range idx.Definitions {
		d := &idx.Definitions[i]
		if d.Kind.Callable() && d.Meta.Owner != semantic.NoSymbol && d.Location.Contains(ref.Location) {
			return d.Meta.Owner, true
		}
	}
	return semantic.NoSymbol, false
}

// ResolveTypeName implements typectx.NameResolver: resolve a raw type name
// through the scope chain, file level, then imports, accepting only
// typelike or alias definitions.
func (r *ResolutionRegistry) ResolveTypeName(name string, sc scope.ID, file string) (semantic.SymbolID, bool) {
	if name == "" {
		return semantic.NoSymbol, false
	}
	if e, _, ok := r.lookupLexical(name, sc, file); ok && typeNameKind(e.Def.Kind) {
		return e.Def.Symbol, true
	}
	if e, ok := r.lookupFileLevel(name, file); ok && typeNameKind(e.Def.Kind) {
		return e.Def.Symbol, true
	}
	res := r.lookupImported(&semantic.Reference{Name: name, Kind: semantic.RefTypeAnnotation}, file)
	if res.Status == StatusResolved {
		if e, ok := r.symbols.Definition(res.Symbol); ok && typeNameKind(e.Def.Kind) {
			return e.Def.Symbol, true
		}
	}
	return semantic.NoSymbol, false
}

func typeNameKind(k semantic.DefKind) bool {
	return k.Typelike() || k == semantic.DefTypeAlias
}
