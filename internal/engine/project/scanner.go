package project

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	gitignore "github.com/sabhiram/go-gitignore"

	"unravel/internal/core/config"
	coreerrors "unravel/internal/core/errors"
	"unravel/internal/shared/util"
)

// Scanner walks the configured roots and collects indexable source files,
// applying directory and file exclusion globs plus optional .gitignore
// rules per root.
type Scanner struct {
	roots     []string
	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob
	ignores   map[string]*gitignore.GitIgnore
	supported func(string) bool
}

func NewScanner(cfg *config.Config, supported func(string) bool) (*Scanner, error) {
	s := &Scanner{
		roots:     cfg.Roots,
		ignores:   make(map[string]*gitignore.GitIgnore),
		supported: supported,
	}
	for _, pat := range cfg.Exclude.Dirs {
		g, err := glob.Compile(util.NormalizePatternPath(pat), '/')
		if err != nil {
			return nil, coreerrors.AddContext(
				coreerrors.Wrap(err, coreerrors.CodeValidationError, "bad exclude dir pattern"),
				coreerrors.CtxPath, pat)
		}
		s.dirGlobs = append(s.dirGlobs, g)
	}
	for _, pat := range cfg.Exclude.Files {
		g, err := glob.Compile(util.NormalizePatternPath(pat), '/')
		if err != nil {
			return nil, coreerrors.AddContext(
				coreerrors.Wrap(err, coreerrors.CodeValidationError, "bad exclude file pattern"),
				coreerrors.CtxPath, pat)
		}
		s.fileGlobs = append(s.fileGlobs, g)
	}
	if cfg.Exclude.UseGitignore {
		for _, root := range cfg.Roots {
			ign, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
			if err == nil && ign != nil {
				s.ignores[root] = ign
			}
		}
	}
	return s, nil
}

// Scan returns the matching files under all roots, sorted, slash-separated.
func (s *Scanner) Scan() ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, root := range s.roots {
		ign := s.ignores[root]
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if rel == "." {
					return nil
				}
				if s.excludedDir(rel) || (ign != nil && ign.MatchesPath(rel+"/")) {
					return filepath.SkipDir
				}
				return nil
			}
			if !s.supported(path) || s.excludedFile(rel) {
				return nil
			}
			if ign != nil && ign.MatchesPath(rel) {
				return nil
			}
			p := filepath.ToSlash(filepath.Clean(path))
			if _, dup := seen[p]; !dup {
				seen[p] = struct{}{}
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, coreerrors.AddContext(
				coreerrors.Wrap(err, coreerrors.CodeIOError, "scan failed"),
				coreerrors.CtxPath, root)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Scanner) excludedDir(rel string) bool {
	for _, g := range s.dirGlobs {
		if g.Match(rel) || g.Match(lastSegment(rel)) {
			return true
		}
	}
	return false
}

func (s *Scanner) excludedFile(rel string) bool {
	for _, g := range s.fileGlobs {
		if g.Match(rel) || g.Match(lastSegment(rel)) {
			return true
		}
	}
	return false
}

func lastSegment(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}
