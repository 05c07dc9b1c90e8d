package modpath

import (
	"path"
	"strings"
)

// rustResolver resolves use-paths and module declarations. crate:: paths
// resolve against the crate root (the configured roots, probed for
// src/lib.rs / src/main.rs layouts), self:: and plain paths against the
// current module, super:: against the parent. A module segment resolves to
// seg.rs or seg/mod.rs. External crate paths pass through unresolved.
type rustResolver struct {
	prober Prober
	roots  []string
}

func (r *rustResolver) Language() string { return "rust" }

func (r *rustResolver) Resolve(fromFile, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	segs := strings.Split(strings.TrimSpace(raw), "::")
	if len(segs) == 0 {
		return "", false
	}

	switch segs[0] {
	case "crate":
		return r.fromDirs(r.crateDirs(), segs[1:])
	case "self":
		return r.fromDirs([]string{r.moduleDir(fromFile)}, segs[1:])
	case "super":
		dir := r.moduleDir(fromFile)
		rest := segs[1:]
		for len(rest) > 0 && rest[0] == "super" {
			dir = path.Dir(dir)
			rest = rest[1:]
		}
		return r.fromDirs([]string{path.Dir(dir)}, rest)
	default:
		// mod declarations and in-module paths resolve against the current
		// module first, then the crate root; anything else is an external
		// crate.
		if found, ok := r.fromDirs([]string{r.moduleDir(fromFile)}, segs); ok {
			return found, true
		}
		return r.fromDirs(r.crateDirs(), segs)
	}
}

// moduleDir is the directory whose children are the file's submodules:
// foo/mod.rs, lib.rs and main.rs own their directory, foo.rs owns foo/.
func (r *rustResolver) moduleDir(fromFile string) string {
	base := path.Base(fromFile)
	if base == "mod.rs" || base == "lib.rs" || base == "main.rs" {
		return path.Dir(fromFile)
	}
	return strings.TrimSuffix(fromFile, ".rs")
}

func (r *rustResolver) crateDirs() []string {
	dirs := make([]string, 0, len(r.roots)*2)
	for _, root := range r.roots {
		dirs = append(dirs, path.Join(root, "src"), root)
	}
	return dirs
}

// fromDirs probes segment by segment, accepting the longest prefix of segs
// that lands on a file: use crate::util::helpers::parse resolves to the
// file defining parse, not a file named parse.rs.
func (r *rustResolver) fromDirs(dirs []string, segs []string) (string, bool) {
	for _, dir := range dirs {
		if len(segs) == 0 {
			for _, name := range []string{"mod.rs", "lib.rs", "main.rs"} {
				if cand := path.Join(dir, name); r.prober.Exists(cand) {
					return cand, true
				}
			}
			continue
		}
		if found, ok := r.walk(dir, segs); ok {
			return found, true
		}
	}
	return "", false
}

func (r *rustResolver) walk(dir string, segs []string) (string, bool) {
	var last string
	cur := dir
	for _, seg := range segs {
		if cand := path.Join(cur, seg+".rs"); r.prober.Exists(cand) {
			last = cand
			cur = path.Join(cur, seg)
			continue
		}
		if cand := path.Join(cur, seg, "mod.rs"); r.prober.Exists(cand) {
			last = cand
			cur = path.Join(cur, seg)
			continue
		}
		// Remaining segments name items inside the last resolved module.
		break
	}
	return last, last != ""
}
