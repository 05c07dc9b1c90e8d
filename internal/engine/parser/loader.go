// Package parser turns source files into capture streams for the semantic
// builder. One adapter per language interprets the tree-sitter grammar; the
// rest of the system never sees a syntax node.
package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	coreerrors "unravel/internal/core/errors"
)

// GrammarLoader owns the compiled grammar objects, one per language.
type GrammarLoader struct {
	languages map[string]*sitter.Language
}

func NewGrammarLoader() *GrammarLoader {
	return &GrammarLoader{
		languages: map[string]*sitter.Language{
			"javascript": sitter.NewLanguage(tree_sitter_javascript.Language()),
			"typescript": sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			"tsx":        sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
			"python":     sitter.NewLanguage(tree_sitter_python.Language()),
			"rust":       sitter.NewLanguage(tree_sitter_rust.Language()),
		},
	}
}

func (gl *GrammarLoader) Language(name string) (*sitter.Language, error) {
	lang, ok := gl.languages[name]
	if !ok {
		return nil, coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeNotFound, "grammar not loaded"),
			coreerrors.CtxLanguage, name)
	}
	return lang, nil
}

// DetectLanguage maps a file extension to a language name, or "".
func DetectLanguage(path string) string {
	switch {
	case strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".jsx"),
		strings.HasSuffix(path, ".mjs"), strings.HasSuffix(path, ".cjs"):
		return "javascript"
	case strings.HasSuffix(path, ".tsx"):
		return "tsx"
	case strings.HasSuffix(path, ".ts"), strings.HasSuffix(path, ".mts"),
		strings.HasSuffix(path, ".cts"):
		return "typescript"
	case strings.HasSuffix(path, ".py"):
		return "python"
	case strings.HasSuffix(path, ".rs"):
		return "rust"
	default:
		return ""
	}
}
