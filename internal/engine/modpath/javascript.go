package modpath

import "path"

var jsExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx"}
var tsExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx"}

// jsResolver implements node-style resolution restricted to project files:
// relative join, extension probing, then index-file fallback. Bare
// specifiers are external packages and pass through unresolved.
type jsResolver struct {
	prober Prober
	exts   []string
}

func (r *jsResolver) Language() string { return "javascript" }

func (r *jsResolver) Resolve(fromFile, raw string) (string, bool) {
	if raw == "" || !isRelative(raw) {
		return "", false
	}
	base := joinDir(fromFile, raw)

	if r.prober.Exists(base) && path.Ext(base) != "" {
		return base, true
	}
	for _, ext := range r.exts {
		if cand := base + ext; r.prober.Exists(cand) {
			return cand, true
		}
	}
	for _, ext := range r.exts {
		if cand := path.Join(base, "index"+ext); r.prober.Exists(cand) {
			return cand, true
		}
	}
	return "", false
}
