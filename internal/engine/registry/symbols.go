// Package registry merges all per-file semantic indices into project-wide
// lookup structures and resolves references through scope ascent, receiver
// types, imports and re-export chains. Registries are immutable snapshots:
// a file change rebuilds and swaps them instead of mutating in place.
package registry

import (
	"sort"

	"unravel/internal/engine/semantic"
)

// Entry pairs a definition with the file that declares it.
type Entry struct {
	File string
	Def  *semantic.Definition
}

// SymbolRegistry maps names to every definition sharing that name across the
// project, and type symbols to their members.
type SymbolRegistry struct {
	byName   map[string][]Entry
	bySymbol map[semantic.SymbolID]Entry
	members  map[semantic.SymbolID][]Entry
	// membersByTypeName catches members whose owner could not be linked to
	// a symbol in their own file (rust impl blocks for out-of-file types).
	membersByTypeName map[string][]Entry
}

// BuildSymbols merges the definitions of every index. Files are processed
// in sorted order so entry lists have a deterministic source order, which
// the tie-break rules depend on.
func BuildSymbols(indices map[string]*semantic.FileIndex) *SymbolRegistry {
	r := &SymbolRegistry{
		byName:            make(map[string][]Entry),
		bySymbol:          make(map[semantic.SymbolID]Entry),
		members:           make(map[semantic.SymbolID][]Entry),
		membersByTypeName: make(map[string][]Entry),
	}

	paths := make([]string, 0, len(indices))
	for p := range indices {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		idx := indices[p]
		if idx == nil {
			continue
		}
		for i := range idx.Definitions {
			d := &idx.Definitions[i]
			e := Entry{File: p, Def: d}
			r.byName[d.Name] = append(r.byName[d.Name], e)
			r.bySymbol[d.Symbol] = e
			if d.Meta.Owner != semantic.NoSymbol {
				r.members[d.Meta.Owner] = append(r.members[d.Meta.Owner], e)
			} else if d.Meta.OwnerName != "" {
				r.membersByTypeName[d.Meta.OwnerName] = append(r.membersByTypeName[d.Meta.OwnerName], e)
			}
		}
	}
	return r
}

// Lookup returns all project definitions with the given name, in
// file-then-source order.
func (r *SymbolRegistry) Lookup(name string) []Entry {
	return r.byName[name]
}

// Definition returns the entry for a symbol id.
func (r *SymbolRegistry) Definition(sym semantic.SymbolID) (Entry, bool) {
	e, ok := r.bySymbol[sym]
	return e, ok
}

// Members returns the direct members of a type symbol. Inherited members
// are the resolution registry's concern.
func (r *SymbolRegistry) Members(typeSym semantic.SymbolID) []Entry {
	out := r.members[typeSym]
	if e, ok := r.bySymbol[typeSym]; ok {
		for _, m := range r.membersByTypeName[e.Def.Name] {
			out = append(out, m)
		}
	}
	return out
}
