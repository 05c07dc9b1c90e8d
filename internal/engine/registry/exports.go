package registry

import (
	"strings"

	"unravel/internal/engine/semantic"
)

// maxReexportDepth bounds re-export chain traversal. Deeper chains than
// this are treated as circular.
const maxReexportDepth = 16

// ChainResult is the outcome of following an export (and any re-export
// hops) to its original definition.
type ChainResult struct {
	Found    bool
	Circular bool
	Symbol   semantic.SymbolID
	Def      *semantic.Definition
	File     string
	// Chain lists the traversed files, importing side first. For circular
	// results it is the loop as walked before detection.
	Chain []string
}

// ExportRegistry maps each file to its exported names and follows re-export
// chains to the original definition.
type ExportRegistry struct {
	indices map[string]*semantic.FileIndex
	imports *ImportRegistry
	// exports: file → exported name → export record
	exports map[string]map[string]*semantic.Export
	// wildcards: file → raw source paths of `export * from` records
	wildcards map[string][]string
}

func BuildExports(indices map[string]*semantic.FileIndex, imports *ImportRegistry) *ExportRegistry {
	r := &ExportRegistry{
		indices:   indices,
		imports:   imports,
		exports:   make(map[string]map[string]*semantic.Export),
		wildcards: make(map[string][]string),
	}
	for path, idx := range indices {
		if idx == nil {
			continue
		}
		named := make(map[string]*semantic.Export, len(idx.Exports))
		for i := range idx.Exports {
			exp := &idx.Exports[i]
			if exp.Kind == semantic.ExportWildcard {
				r.wildcards[path] = append(r.wildcards[path], exp.From)
				continue
			}
			named[exp.ExportedName()] = exp
		}
		r.exports[path] = named
	}
	return r
}

// Lookup resolves an exported name in a file, following re-export chains
// transitively: the returned definition is the original one at the end of
// the chain, never an intermediate export record. Cycles halt with
// Circular=true and the traversed chain instead of looping.
func (r *ExportRegistry) Lookup(file, name string) ChainResult {
	visited := make(map[string]struct{})
	return r.lookup(file, name, nil, visited, 0)
}

func (r *ExportRegistry) lookup(file, name string, chain []string, visited map[string]struct{}, depth int) ChainResult {
	chain = append(chain, file)
	if depth > maxReexportDepth {
		return ChainResult{Circular: true, Chain: chain}
	}
	visitKey := file + "\x00" + name
	if _, seen := visited[visitKey]; seen {
		return ChainResult{Circular: true, Chain: chain}
	}
	visited[visitKey] = struct{}{}

	exp, ok := r.exports[file][name]
	if !ok {
		// Namespace member access through a namespace re-export:
		// ns.member looks up ns, then member in its source module.
		if dot := strings.IndexByte(name, '.'); dot > 0 {
			if nsExp, nsOK := r.exports[file][name[:dot]]; nsOK && nsExp.Kind == semantic.ExportNamespace && nsExp.From != "" {
				if target, resolved := r.imports.Resolve(file, nsExp.From); resolved {
					return r.lookup(target, name[dot+1:], chain, visited, depth+1)
				}
				return ChainResult{Chain: chain}
			}
		}
		// Wildcard re-exports: probe each source module in order.
		for _, from := range r.wildcards[file] {
			target, resolved := r.imports.Resolve(file, from)
			if !resolved {
				continue
			}
			res := r.lookup(target, name, chain, visited, depth+1)
			if res.Found || res.Circular {
				return res
			}
		}
		return ChainResult{Chain: chain}
	}

	if exp.From != "" {
		target, resolved := r.imports.Resolve(file, exp.From)
		if !resolved {
			return ChainResult{Chain: chain}
		}
		// `export {orig as alias} from mod` re-exports mod's orig.
		next := exp.Name
		if next == "" {
			next = name
		}
		return r.lookup(target, next, chain, visited, depth+1)
	}

	if exp.Symbol == semantic.NoSymbol {
		return ChainResult{Chain: chain}
	}
	idx := r.indices[file]
	if idx == nil {
		return ChainResult{Chain: chain}
	}
	def, ok := idx.Definition(exp.Symbol)
	if !ok {
		return ChainResult{Chain: chain}
	}
	return ChainResult{
		Found:  true,
		Symbol: def.Symbol,
		Def:    def,
		File:   file,
		Chain:  chain,
	}
}

// Exports returns the exported names of a file, for diagnostics.
func (r *ExportRegistry) Exports(file string) []string {
	names := make([]string, 0, len(r.exports[file]))
	for n := range r.exports[file] {
		names = append(names, n)
	}
	return names
}
