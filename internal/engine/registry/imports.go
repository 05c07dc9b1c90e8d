package registry

import (
	"sync"

	"unravel/internal/engine/modpath"
)

// ImportRegistry resolves raw import paths to file identities through the
// per-language modpath resolvers, caching results per (file, raw) pair.
type ImportRegistry struct {
	resolvers map[string]modpath.Resolver
	languages map[string]string // file → language

	mu    sync.Mutex
	cache map[importKey]importResult
}

type importKey struct {
	fromFile string
	raw      string
}

type importResult struct {
	file string
	ok   bool
}

// NewImportRegistry wires resolvers for the given languages over one file
// set. languages maps each project file to its language name.
func NewImportRegistry(files modpath.Prober, roots []string, languages map[string]string) *ImportRegistry {
	r := &ImportRegistry{
		resolvers: make(map[string]modpath.Resolver),
		languages: languages,
		cache:     make(map[importKey]importResult),
	}
	for _, lang := range []string{"javascript", "typescript", "tsx", "python", "rust"} {
		if res, ok := modpath.For(lang, files, roots); ok {
			r.resolvers[lang] = res
		}
	}
	return r
}

// Resolve maps a raw import path written in fromFile to a project file.
// ok=false covers both external packages and genuinely missing files; the
// caller records import_unresolved either way.
func (r *ImportRegistry) Resolve(fromFile, raw string) (string, bool) {
	key := importKey{fromFile, raw}
	r.mu.Lock()
	if res, hit := r.cache[key]; hit {
		r.mu.Unlock()
		return res.file, res.ok
	}
	r.mu.Unlock()

	var file string
	var ok bool
	if res, have := r.resolvers[r.languages[fromFile]]; have {
		file, ok = res.Resolve(fromFile, raw)
	}

	r.mu.Lock()
	r.cache[key] = importResult{file, ok}
	r.mu.Unlock()
	return file, ok
}

// Invalidate drops cached resolutions originating from the given files.
func (r *ImportRegistry) Invalidate(files []string) {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[f] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.cache {
		if _, hit := set[k.fromFile]; hit {
			delete(r.cache, k)
		}
	}
}
