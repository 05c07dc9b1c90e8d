package parser

import (
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParserPool recycles tree-sitter parser instances to avoid the per-file
// allocation overhead of sitter.NewParser() / parser.Close(). One pool per
// language grammar; safe for concurrent use.
type ParserPool struct {
	pool sync.Pool
}

func NewParserPool(lang *sitter.Language) *ParserPool {
	return &ParserPool{
		pool: sync.Pool{
			New: func() any {
				sp := sitter.NewParser()
				sp.SetLanguage(lang)
				return sp
			},
		},
	}
}

func (p *ParserPool) Get() *sitter.Parser {
	return p.pool.Get().(*sitter.Parser)
}

func (p *ParserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	sp.Reset()
	p.pool.Put(sp)
}
