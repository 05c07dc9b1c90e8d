package output

import (
	"encoding/json"
	"time"

	"unravel/internal/engine/callgraph"
	"unravel/internal/engine/registry"
)

// Report is the machine-readable analysis summary.
type Report struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Files       []string              `json:"files"`
	Graph       *callgraph.Graph      `json:"graph"`
	Unresolved  []registry.Resolution `json:"unresolved,omitempty"`
}

func NewReport(files []string, graph *callgraph.Graph, resolutions []registry.Resolution) *Report {
	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Files:       files,
		Graph:       graph,
	}
	for _, res := range resolutions {
		if res.Status == registry.StatusUnresolved {
			r.Unresolved = append(r.Unresolved, res)
		}
	}
	return r
}

func (r *Report) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
