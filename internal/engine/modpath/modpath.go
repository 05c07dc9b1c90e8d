// Package modpath maps raw import path strings to absolute file identities
// using per-language rules. Resolvers probe for candidate files through a
// Prober instead of touching the filesystem directly, so the project can
// resolve against its own indexed file set.
package modpath

import (
	"path"
	"sort"
	"strings"
)

// Prober answers existence questions about project files. Paths are
// slash-separated and absolute within the project.
type Prober interface {
	Exists(path string) bool
}

// Resolver resolves one language's import paths.
type Resolver interface {
	Language() string
	// Resolve maps a raw import path written in fromFile to a project file.
	// Bare package specifiers (external dependencies) return ok=false; that
	// is a passthrough, not an error.
	Resolve(fromFile, raw string) (string, bool)
}

// FileSet is a Prober over a fixed set of file paths.
type FileSet map[string]struct{}

func NewFileSet(paths []string) FileSet {
	fs := make(FileSet, len(paths))
	for _, p := range paths {
		fs[path.Clean(p)] = struct{}{}
	}
	return fs
}

func (fs FileSet) Exists(p string) bool {
	_, ok := fs[path.Clean(p)]
	return ok
}

// Sorted returns the member paths in lexical order.
func (fs FileSet) Sorted() []string {
	out := make([]string, 0, len(fs))
	for p := range fs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// For returns the resolver for a language. Typescript variants share the
// javascript resolver with a typescript-first probe order.
func For(language string, p Prober, roots []string) (Resolver, bool) {
	switch language {
	case "javascript":
		return &jsResolver{prober: p, exts: jsExtensions}, true
	case "typescript", "tsx":
		return &jsResolver{prober: p, exts: tsExtensions}, true
	case "python":
		return &pythonResolver{prober: p, roots: roots}, true
	case "rust":
		return &rustResolver{prober: p, roots: roots}, true
	default:
		return nil, false
	}
}

func joinDir(fromFile, rel string) string {
	return path.Clean(path.Join(path.Dir(fromFile), rel))
}

func isRelative(raw string) bool {
	return strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../") || raw == "." || raw == ".."
}
