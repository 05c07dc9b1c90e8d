package semantic

import (
	"encoding/json"
	"time"

	"unravel/internal/engine/scope"
)

// FileIndex is the serializable per-file semantic index. It is built once
// per file and never mutated; project-level registries consume it read-only.
type FileIndex struct {
	Path        string        `json:"path"`
	Language    string        `json:"language"`
	ContentHash uint64        `json:"content_hash"`
	IndexedAt   time.Time     `json:"indexed_at"`
	Scopes      *scope.Tree   `json:"scopes"`
	Definitions []Definition  `json:"definitions,omitempty"`
	References  []Reference   `json:"references,omitempty"`
	Imports     []Import      `json:"imports,omitempty"`
	Exports     []Export      `json:"exports,omitempty"`
	Bindings    []TypeBinding `json:"bindings,omitempty"`

	byName map[string][]int
}

// Empty returns the degenerate index a malformed or unparsable file
// contributes: it degrades that file to nothing instead of failing a merge.
func Empty(path, language string) *FileIndex {
	return &FileIndex{
		Path:      path,
		Language:  language,
		IndexedAt: time.Now(),
	}
}

// DefinitionsNamed returns same-file definitions with the given name, in
// source order.
func (x *FileIndex) DefinitionsNamed(name string) []*Definition {
	if x.byName == nil {
		x.buildNameIndex()
	}
	idxs := x.byName[name]
	out := make([]*Definition, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, &x.Definitions[i])
	}
	return out
}

// Definition returns the definition with the given symbol id, if present.
func (x *FileIndex) Definition(sym SymbolID) (*Definition, bool) {
	for i := range x.Definitions {
		if x.Definitions[i].Symbol == sym {
			return &x.Definitions[i], true
		}
	}
	return nil, false
}

// DecodeIndex deserializes a cached index. References deserialized this way
// lose their node handles, which is fine: resolution and the call graph
// only read the extracted fields.
func DecodeIndex(payload []byte) (*FileIndex, error) {
	var idx FileIndex
	if err := json.Unmarshal(payload, &idx); err != nil {
		return nil, err
	}
	idx.buildNameIndex()
	return &idx, nil
}

func (x *FileIndex) buildNameIndex() {
	x.byName = make(map[string][]int, len(x.Definitions))
	for i := range x.Definitions {
		x.byName[x.Definitions[i].Name] = append(x.byName[x.Definitions[i].Name], i)
	}
}
