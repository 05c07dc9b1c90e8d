package modpath

import (
	"path"
	"strings"
)

// pythonResolver resolves dotted module paths against the configured source
// roots, and leading-dot relative imports against the importing file's
// package. A module resolves to either pkg/mod.py or pkg/mod/__init__.py.
type pythonResolver struct {
	prober Prober
	roots  []string
}

func (r *pythonResolver) Language() string { return "python" }

func (r *pythonResolver) Resolve(fromFile, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	if strings.HasPrefix(raw, ".") {
		return r.resolveRelative(fromFile, raw)
	}

	rel := strings.ReplaceAll(raw, ".", "/")
	for _, root := range r.roots {
		if found, ok := r.probe(path.Join(root, rel)); ok {
			return found, true
		}
	}
	// Top-level module next to the importing file (flat layouts).
	if found, ok := r.probe(joinDir(fromFile, rel)); ok {
		return found, true
	}
	return "", false
}

func (r *pythonResolver) resolveRelative(fromFile, raw string) (string, bool) {
	dots := 0
	for dots < len(raw) && raw[dots] == '.' {
		dots++
	}
	dir := path.Dir(fromFile)
	for i := 1; i < dots; i++ {
		dir = path.Dir(dir)
	}
	rest := strings.ReplaceAll(raw[dots:], ".", "/")
	target := dir
	if rest != "" {
		target = path.Join(dir, rest)
	}
	return r.probe(target)
}

func (r *pythonResolver) probe(base string) (string, bool) {
	if cand := base + ".py"; r.prober.Exists(cand) {
		return cand, true
	}
	if cand := path.Join(base, "__init__.py"); r.prober.Exists(cand) {
		return cand, true
	}
	return "", false
}
