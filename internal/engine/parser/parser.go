package parser

import (
	"errors"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"

	coreerrors "unravel/internal/core/errors"
	"unravel/internal/engine/capture"
	"unravel/internal/engine/semantic"
	"unravel/internal/shared/observability"
)

// ErrUnsupportedLanguage is returned for files no adapter claims.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Adapter is one language's grammar adapter: it produces the capture stream
// and the metadata extractors for a parsed file.
type Adapter interface {
	Language() string
	Captures(root *sitter.Node, source []byte, path string) []capture.Capture
	Extractors(source []byte) semantic.Extractors
}

// Parser parses files and hands their captures to the semantic builder.
type Parser struct {
	loader   *GrammarLoader
	pools    map[string]*ParserPool
	adapters map[string]Adapter
}

func NewParser(loader *GrammarLoader) (*Parser, error) {
	p := &Parser{
		loader:   loader,
		pools:    make(map[string]*ParserPool),
		adapters: make(map[string]Adapter),
	}
	for _, a := range []Adapter{
		NewJavaScriptAdapter("javascript"),
		NewTypeScriptAdapter("typescript"),
		NewTypeScriptAdapter("tsx"),
		NewPythonAdapter(),
		NewRustAdapter(),
	} {
		lang, err := loader.Language(a.Language())
		if err != nil {
			return nil, err
		}
		p.adapters[a.Language()] = a
		p.pools[a.Language()] = NewParserPool(lang)
	}
	return p, nil
}

// IndexFile parses one file and builds its semantic index. The syntax tree
// is released before returning; nothing downstream retains node handles.
func (p *Parser) IndexFile(path string, content []byte) (*semantic.FileIndex, error) {
	lang := DetectLanguage(path)
	adapter, ok := p.adapters[lang]
	if !ok {
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(ErrUnsupportedLanguage, coreerrors.CodeNotSupported, "no adapter for file"),
			coreerrors.CtxPath, path)
	}

	start := time.Now()
	sp := p.pools[lang].Get()
	defer p.pools[lang].Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		err := coreerrors.New(coreerrors.CodeParseError, "parse failed")
		err = coreerrors.AddContext(err, coreerrors.CtxPath, path)
		return nil, coreerrors.AddContext(err, coreerrors.CtxLanguage, lang)
	}
	defer tree.Close()

	root := tree.RootNode()
	idx := semantic.Build(semantic.BuildInput{
		Path:        path,
		Language:    lang,
		FileSpan:    fileSpan(path, root),
		ContentHash: semantic.ContentHash(content),
		Captures:    adapter.Captures(root, content, path),
		Extractors:  adapter.Extractors(content),
	})

	observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	return idx, nil
}

// Supported reports whether the parser has an adapter for the file.
func (p *Parser) Supported(path string) bool {
	_, ok := p.adapters[DetectLanguage(path)]
	return ok
}

func fileSpan(path string, root *sitter.Node) capture.Location {
	return capture.Location{
		File:    path,
		EndByte: uint32(root.EndByte()),
		End: capture.Point{
			Row:    uint32(root.EndPosition().Row),
			Column: uint32(root.EndPosition().Column),
		},
	}
}
