package output

import (
	"fmt"
	"sort"
	"strings"

	"unravel/internal/engine/callgraph"
	"unravel/internal/engine/semantic"
)

type DOTGenerator struct {
	graph *callgraph.Graph
}

func NewDOTGenerator(g *callgraph.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

// Generate renders the call graph with one cluster per file. Entry points
// are filled.
func (d *DOTGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph callgraph {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  ranksep=1.2;\n")
	buf.WriteString("  nodesep=0.5;\n")
	buf.WriteString("  splines=polyline;\n\n")

	entry := make(map[semantic.SymbolID]bool, len(d.graph.EntryPoints))
	for _, sym := range d.graph.EntryPoints {
		entry[sym] = true
	}

	byFile := make(map[string][]*callgraph.Node)
	for _, node := range d.graph.Nodes {
		byFile[node.File] = append(byFile[node.File], node)
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	for i, file := range files {
		nodes := byFile[file]
		sort.Slice(nodes, func(a, b int) bool { return nodes[a].Symbol < nodes[b].Symbol })

		buf.WriteString(fmt.Sprintf("  subgraph cluster_%d {\n", i))
		buf.WriteString(fmt.Sprintf("    label=%q;\n", file))
		buf.WriteString("    style=filled;\n")
		buf.WriteString("    color=\"whitesmoke\";\n")
		for _, node := range nodes {
			attrs := fmt.Sprintf("label=%q", fmt.Sprintf("%s\\n(%s)", node.Name, node.Kind))
			if entry[node.Symbol] {
				attrs += ", style=\"rounded,filled\", fillcolor=\"palegreen\""
			}
			buf.WriteString(fmt.Sprintf("    %s [%s];\n", dotID(node.Symbol), attrs))
		}
		buf.WriteString("  }\n\n")
	}

	edges := append([]callgraph.Edge{}, d.graph.Edges...)
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].Caller != edges[b].Caller {
			return edges[a].Caller < edges[b].Caller
		}
		return edges[a].Callee < edges[b].Callee
	})
	for _, e := range edges {
		buf.WriteString(fmt.Sprintf("  %s -> %s;\n", dotID(e.Caller), dotID(e.Callee)))
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func dotID(sym semantic.SymbolID) string {
	return fmt.Sprintf("n%x", uint64(sym))
}
