package registry

import (
	"path"

	"unravel/internal/engine/capture"
	"unravel/internal/engine/modpath"
	"unravel/internal/engine/semantic"
	"unravel/internal/engine/typectx"
)

// stubExtractors serves canned metadata keyed by string node handles.
type stubExtractors struct {
	receivers map[string]semantic.Receiver
	ctors     map[string]string
	annots    map[string]string
	meta      map[string]semantic.DefMeta
}

func (s *stubExtractors) ReceiverLocation(n capture.NodeHandle) (semantic.Receiver, bool) {
	r, ok := s.receivers[n.(string)]
	return r, ok
}

func (s *stubExtractors) PropertyChain(n capture.NodeHandle) []string { return nil }

func (s *stubExtractors) TypeAnnotation(n capture.NodeHandle) (string, bool) {
	v, ok := s.annots[n.(string)]
	return v, ok
}

func (s *stubExtractors) ConstructorTarget(n capture.NodeHandle) (string, bool) {
	v, ok := s.ctors[n.(string)]
	return v, ok
}

func (s *stubExtractors) DefinitionMeta(n capture.NodeHandle) semantic.DefMeta {
	return s.meta[n.(string)]
}

func (s *stubExtractors) ImportRecord(n capture.NodeHandle) (semantic.Import, bool) {
	return semantic.Import{}, false
}

func (s *stubExtractors) ExportRecord(n capture.NodeHandle) (semantic.Export, bool) {
	return semantic.Export{}, false
}

func loc(file string, start, end uint32) capture.Location {
	return capture.Location{File: file, StartByte: start, EndByte: end}
}

func defCap(file, subtype, name string, start, end uint32) capture.Capture {
	return capture.Capture{
		Kind: capture.KindDefinition, Subtype: subtype,
		Location: loc(file, start, end), Text: name, Node: name,
	}
}

func refCap(file, subtype, name string, start, end uint32, node string) capture.Capture {
	return capture.Capture{
		Kind: capture.KindReference, Subtype: subtype,
		Location: loc(file, start, end), Text: name, Node: node,
	}
}

func scopeCap(file, kind string, start, end uint32) capture.Capture {
	return capture.Capture{Kind: capture.KindScope, Subtype: kind, Location: loc(file, start, end)}
}

func buildIndex(file string, end uint32, ex semantic.Extractors, caps ...capture.Capture) *semantic.FileIndex {
	return semantic.Build(semantic.BuildInput{
		Path:       file,
		Language:   languageOf(file),
		FileSpan:   loc(file, 0, end),
		Captures:   caps,
		Extractors: ex,
	})
}

func languageOf(file string) string {
	switch path.Ext(file) {
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	default:
		return "javascript"
	}
}

// project wires the full registry stack over a fixed index set, the same
// way a snapshot analysis does.
type project struct {
	indices map[string]*semantic.FileIndex
	imports *ImportRegistry
	exports *ExportRegistry
	symbols *SymbolRegistry
	res     *ResolutionRegistry
}

func newProject(indices ...*semantic.FileIndex) *project {
	m := make(map[string]*semantic.FileIndex, len(indices))
	paths := make([]string, 0, len(indices))
	languages := make(map[string]string, len(indices))
	for _, idx := range indices {
		m[idx.Path] = idx
		paths = append(paths, idx.Path)
		languages[idx.Path] = idx.Language
	}
	p := &project{indices: m}
	p.imports = NewImportRegistry(modpath.NewFileSet(paths), nil, languages)
	p.symbols = BuildSymbols(m)
	p.exports = BuildExports(m, p.imports)
	p.res = NewResolutionRegistry(m, p.symbols, p.imports, p.exports, typectx.Build(m))
	return p
}
