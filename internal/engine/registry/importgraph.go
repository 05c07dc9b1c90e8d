package registry

import (
	"sort"
	"sync"

	"unravel/internal/engine/semantic"
)

// ImportGraph tracks which files import which, with reverse lookup for
// incremental invalidation. Unlike the registries it is updated
// incrementally: a file change removes and re-adds only that file's edges.
type ImportGraph struct {
	mu      sync.RWMutex
	edges   map[string]map[string]bool // importer → imported file
	reverse map[string]map[string]bool // imported file → importer
}

func NewImportGraph() *ImportGraph {
	return &ImportGraph{
		edges:   make(map[string]map[string]bool),
		reverse: make(map[string]map[string]bool),
	}
}

// AddFile records the resolved import edges of one file, replacing any
// previous contribution of that file.
func (g *ImportGraph) AddFile(idx *semantic.FileIndex, imports *ImportRegistry) {
	if idx == nil {
		return
	}
	targets := make(map[string]bool)
	for _, imp := range idx.Imports {
		if target, ok := imports.Resolve(idx.Path, imp.Path); ok {
			targets[target] = true
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(idx.Path)
	g.edges[idx.Path] = targets
	for t := range targets {
		if g.reverse[t] == nil {
			g.reverse[t] = make(map[string]bool)
		}
		g.reverse[t][idx.Path] = true
	}
}

func (g *ImportGraph) RemoveFile(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(path)
}

func (g *ImportGraph) removeLocked(path string) {
	for t := range g.edges[path] {
		delete(g.reverse[t], path)
		if len(g.reverse[t]) == 0 {
			delete(g.reverse, t)
		}
	}
	delete(g.edges, path)
}

// DependentsOf returns every file that transitively imports from the given
// file, sorted. The file itself is not included.
func (g *ImportGraph) DependentsOf(file string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[string]bool{file: true}
	queue := []string{file}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range g.reverse[cur] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			queue = append(queue, dep)
		}
	}
	sort.Strings(out)
	return out
}

// Imports returns the resolved import targets of a file, sorted.
func (g *ImportGraph) Imports(file string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.edges[file]))
	for t := range g.edges[file] {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// EdgeCount returns the total number of import edges.
func (g *ImportGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, ts := range g.edges {
		n += len(ts)
	}
	return n
}
