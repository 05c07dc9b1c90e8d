package ports

import (
	"context"

	"unravel/internal/engine/semantic"
)

// FileIndexer abstracts source parsing and language support checks.
type FileIndexer interface {
	IndexFile(path string, content []byte) (*semantic.FileIndex, error)
	Supported(path string) bool
}

// IndexCache abstracts persistence of per-file indices keyed by path and
// content hash. A miss on either returns false.
type IndexCache interface {
	Get(path string, contentHash uint64) (*semantic.FileIndex, bool)
	Put(idx *semantic.FileIndex) error
	Evict(path string) error
	Close() error
}

// ProjectBuilder drives full and incremental analysis runs.
type ProjectBuilder interface {
	BuildAll(ctx context.Context) error
	Update(ctx context.Context, changed []string, removed []string) error
}
