// Package callgraph derives callable nodes and call edges from resolved
// references, and computes entry points: callables no resolved call in the
// project ever reaches.
package callgraph

import (
	"sort"

	"unravel/internal/engine/capture"
	"unravel/internal/engine/registry"
	"unravel/internal/engine/scope"
	"unravel/internal/engine/semantic"
)

type Node struct {
	Symbol semantic.SymbolID    `json:"symbol"`
	Name   string               `json:"name"`
	Kind   semantic.DefKind     `json:"kind"`
	File   string               `json:"file"`
	Def    *semantic.Definition `json:"-"`
}

type Edge struct {
	Caller semantic.SymbolID `json:"caller"`
	Callee semantic.SymbolID `json:"callee"`
	Site   capture.Location  `json:"site"`
}

// ModuleCall is a resolved call with no enclosing callable: top-level code.
// It counts as "this callee was called" but contributes no edge.
type ModuleCall struct {
	File   string            `json:"file"`
	Callee semantic.SymbolID `json:"callee"`
	Site   capture.Location  `json:"site"`
}

type Graph struct {
	Nodes       map[semantic.SymbolID]*Node `json:"nodes"`
	Edges       []Edge                      `json:"edges"`
	ModuleCalls []ModuleCall                `json:"module_calls,omitempty"`
	// EntryPoints are nodes with zero resolved edges arriving from outside
	// their own recursive cluster that no module-level call names either.
	// A mutually-recursive cluster nothing external reaches is reported as
	// multiple independent entry points. A callee whose every call site
	// failed to resolve still appears here; that asymmetry is documented
	// behavior, not something to paper over by guessing.
	EntryPoints []semantic.SymbolID `json:"entry_points"`

	incoming map[semantic.SymbolID]int
}

// Build constructs the graph from the merged indices and the project's
// resolutions.
func Build(indices map[string]*semantic.FileIndex, resolutions []registry.Resolution) *Graph {
	g := &Graph{
		Nodes:    make(map[semantic.SymbolID]*Node),
		incoming: make(map[semantic.SymbolID]int),
	}

	paths := make([]string, 0, len(indices))
	for p := range indices {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	callers := make(map[string]map[scope.ID]semantic.SymbolID, len(indices))
	for _, p := range paths {
		idx := indices[p]
		if idx == nil {
			continue
		}
		for i := range idx.Definitions {
			d := &idx.Definitions[i]
			if !d.Kind.Callable() {
				continue
			}
			g.Nodes[d.Symbol] = &Node{
				Symbol: d.Symbol,
				Name:   d.Name,
				Kind:   d.Kind,
				File:   p,
				Def:    d,
			}
		}
		callers[p] = bodyScopes(idx)
	}

	named := make(map[semantic.SymbolID]bool)
	for _, res := range resolutions {
		if res.Status != registry.StatusResolved || res.Ref == nil || res.Ref.Kind != semantic.RefCall {
			continue
		}
		callee, isCallable := g.Nodes[res.Symbol]
		if !isCallable {
			continue
		}

		caller, ok := callerOf(indices[res.File], callers[res.File], res.Ref.EnclosingScope)
		if !ok {
			g.ModuleCalls = append(g.ModuleCalls, ModuleCall{
				File:   res.File,
				Callee: callee.Symbol,
				Site:   res.Ref.Location,
			})
			named[callee.Symbol] = true
			continue
		}
		g.Edges = append(g.Edges, Edge{
			Caller: caller,
			Callee: callee.Symbol,
			Site:   res.Ref.Location,
		})
		g.incoming[callee.Symbol]++
	}

	// Edges that stay inside a recursive cluster must not hide the cluster:
	// a strongly connected component counts as reached only when an edge
	// arrives from outside it or a module-level call names a member. Every
	// callable in an unreached component is reported as its own entry point.
	comp := components(g.Nodes, g.Edges)
	reached := make(map[int]bool)
	for _, e := range g.Edges {
		if comp[e.Caller] != comp[e.Callee] {
			reached[comp[e.Callee]] = true
		}
	}
	for sym := range named {
		reached[comp[sym]] = true
	}
	for sym, node := range g.Nodes {
		if !reached[comp[sym]] {
			g.EntryPoints = append(g.EntryPoints, node.Symbol)
		}
	}
	sort.Slice(g.EntryPoints, func(i, j int) bool {
		a, b := g.Nodes[g.EntryPoints[i]], g.Nodes[g.EntryPoints[j]]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Def.Location.StartByte < b.Def.Location.StartByte
	})
	return g
}

// Incoming returns the resolved in-degree of a node.
func (g *Graph) Incoming(sym semantic.SymbolID) int { return g.incoming[sym] }

// Callees returns the distinct outgoing targets of a node, sorted by call
// site.
func (g *Graph) Callees(sym semantic.SymbolID) []semantic.SymbolID {
	var out []semantic.SymbolID
	seen := make(map[semantic.SymbolID]bool)
	for _, e := range g.Edges {
		if e.Caller == sym && !seen[e.Callee] {
			seen[e.Callee] = true
			out = append(out, e.Callee)
		}
	}
	return out
}

// bodyScopes maps each scope that is the body of a callable definition to
// that callable's symbol.
func bodyScopes(idx *semantic.FileIndex) map[scope.ID]semantic.SymbolID {
	out := make(map[scope.ID]semantic.SymbolID)
	if idx.Scopes == nil {
		return out
	}
	for i := range idx.Definitions {
		d := &idx.Definitions[i]
		if !d.Kind.Callable() {
			continue
		}
		// The body is the outermost scope contained in the declaration
		// span; deeper contained scopes belong to nested constructs.
		best := scope.NoParent
		bestSpan := uint32(0)
		for _, s := range idx.Scopes.Scopes[1:] {
			if !d.Location.Contains(s.Location) {
				continue
			}
			parent := idx.Scopes.Scope(s.ID).Parent
			if parent != scope.NoParent {
				if p := idx.Scopes.Scope(parent); p != nil && d.Location.Contains(p.Location) && d.Location.File == p.Location.File {
					continue // not outermost
				}
			}
			if best == scope.NoParent || s.Location.Span() > bestSpan {
				best = s.ID
				bestSpan = s.Location.Span()
			}
		}
		if best != scope.NoParent {
			out[best] = d.Symbol
		}
	}
	return out
}

// components assigns every node a strongly connected component id using an
// iterative Tarjan walk over the call edges.
func components(nodes map[semantic.SymbolID]*Node, edges []Edge) map[semantic.SymbolID]int {
	adj := make(map[semantic.SymbolID][]semantic.SymbolID)
	for _, e := range edges {
		adj[e.Caller] = append(adj[e.Caller], e.Callee)
	}

	index := make(map[semantic.SymbolID]int, len(nodes))
	low := make(map[semantic.SymbolID]int, len(nodes))
	onStack := make(map[semantic.SymbolID]bool, len(nodes))
	comp := make(map[semantic.SymbolID]int, len(nodes))
	var stack []semantic.SymbolID
	next := 0
	nComps := 0

	type frame struct {
		sym semantic.SymbolID
		i   int
	}
	visit := func(root semantic.SymbolID) {
		frames := []frame{{sym: root}}
		index[root] = next
		low[root] = next
		next++
		stack = append(stack, root)
		onStack[root] = true
		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			if f.i < len(adj[f.sym]) {
				w := adj[f.sym][f.i]
				f.i++
				if _, seen := index[w]; !seen {
					index[w] = next
					low[w] = next
					next++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, frame{sym: w})
				} else if onStack[w] && index[w] < low[f.sym] {
					low[f.sym] = index[w]
				}
				continue
			}
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if low[f.sym] < low[parent.sym] {
					low[parent.sym] = low[f.sym]
				}
			}
			if low[f.sym] == index[f.sym] {
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp[w] = nComps
					if w == f.sym {
						break
					}
				}
				nComps++
			}
		}
	}

	syms := make([]semantic.SymbolID, 0, len(nodes))
	for s := range nodes {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
	for _, s := range syms {
		if _, seen := index[s]; !seen {
			visit(s)
		}
	}
	return comp
}

// callerOf walks the reference's scope ancestry to the nearest enclosing
// callable body. ok=false means top-level code.
func callerOf(idx *semantic.FileIndex, bodies map[scope.ID]semantic.SymbolID, sc scope.ID) (semantic.SymbolID, bool) {
	if idx == nil || idx.Scopes == nil || bodies == nil {
		return semantic.NoSymbol, false
	}
	for _, level := range idx.Scopes.Ancestry(sc) {
		if sym, ok := bodies[level]; ok {
			return sym, true
		}
	}
	return semantic.NoSymbol, false
}
