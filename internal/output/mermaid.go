package output

import (
	"fmt"
	"sort"
	"strings"

	"unravel/internal/engine/callgraph"
	"unravel/internal/engine/semantic"
)

type MermaidGenerator struct {
	graph *callgraph.Graph
}

func NewMermaidGenerator(g *callgraph.Graph) *MermaidGenerator {
	return &MermaidGenerator{graph: g}
}

func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("%%{init: {'flowchart': {'nodeSpacing': 60, 'rankSpacing': 90, 'curve': 'basis'}}}%%\n")
	b.WriteString("flowchart LR\n")

	entry := make(map[semantic.SymbolID]bool, len(m.graph.EntryPoints))
	for _, sym := range m.graph.EntryPoints {
		entry[sym] = true
	}

	syms := make([]semantic.SymbolID, 0, len(m.graph.Nodes))
	for sym := range m.graph.Nodes {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(a, b int) bool { return syms[a] < syms[b] })

	for _, sym := range syms {
		node := m.graph.Nodes[sym]
		label := fmt.Sprintf("%s<br/>%s", node.Name, node.File)
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", dotID(sym), escapeMermaid(label)))
		if entry[sym] {
			b.WriteString(fmt.Sprintf("    style %s fill:#9f9\n", dotID(sym)))
		}
	}

	edges := append([]callgraph.Edge{}, m.graph.Edges...)
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].Caller != edges[b].Caller {
			return edges[a].Caller < edges[b].Caller
		}
		return edges[a].Callee < edges[b].Callee
	})
	for _, e := range edges {
		b.WriteString(fmt.Sprintf("    %s --> %s\n", dotID(e.Caller), dotID(e.Callee)))
	}

	return b.String(), nil
}

func escapeMermaid(s string) string {
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return strings.ReplaceAll(s, "[", "&#91;")
}
