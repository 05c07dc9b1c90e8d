package output

import (
	"fmt"
	"strings"

	"unravel/internal/engine/callgraph"
	"unravel/internal/engine/registry"
)

type TSVGenerator struct {
	graph *callgraph.Graph
}

func NewTSVGenerator(g *callgraph.Graph) *TSVGenerator {
	return &TSVGenerator{graph: g}
}

// Generate emits one row per call edge.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("Caller\tCallee\tCallerFile\tCalleeFile\tLine\tColumn\n")
	for _, e := range t.graph.Edges {
		caller := t.graph.Nodes[e.Caller]
		callee := t.graph.Nodes[e.Callee]
		if caller == nil || callee == nil {
			continue
		}
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d\n",
			caller.Name, callee.Name, caller.File, callee.File,
			e.Site.Start.Row+1, e.Site.Start.Column+1))
	}

	return buf.String(), nil
}

// GenerateUnresolved emits one row per unresolved reference with its
// reason, for piping into review tooling.
func (t *TSVGenerator) GenerateUnresolved(resolutions []registry.Resolution) (string, error) {
	var buf strings.Builder

	buf.WriteString("Type\tFile\tName\tKind\tLine\tColumn\tReason\n")
	for _, res := range resolutions {
		if res.Status != registry.StatusUnresolved || res.Ref == nil {
			continue
		}
		buf.WriteString(fmt.Sprintf("unresolved\t%s\t%s\t%s\t%d\t%d\t%s\n",
			res.File,
			res.Ref.Name,
			res.Ref.Kind,
			res.Ref.Location.Start.Row+1,
			res.Ref.Location.Start.Column+1,
			res.Reason,
		))
	}

	return buf.String(), nil
}

// GenerateEntryPoints lists the detected entry points.
func (t *TSVGenerator) GenerateEntryPoints() (string, error) {
	var buf strings.Builder

	buf.WriteString("Name\tKind\tFile\tLine\n")
	for _, sym := range t.graph.EntryPoints {
		node := t.graph.Nodes[sym]
		if node == nil {
			continue
		}
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%d\n",
			node.Name, node.Kind, node.File, node.Def.Location.Start.Row+1))
	}

	return buf.String(), nil
}
