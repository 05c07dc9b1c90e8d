// Package project orchestrates scanning, indexing and analysis into
// immutable snapshots. A rebuild constructs the complete analysis state on
// the side and swaps it in; readers never observe a half-built snapshot.
package project

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"unravel/internal/core/config"
	coreerrors "unravel/internal/core/errors"
	"unravel/internal/core/ports"
	"unravel/internal/engine/callgraph"
	"unravel/internal/engine/modpath"
	"unravel/internal/engine/registry"
	"unravel/internal/engine/semantic"
	"unravel/internal/engine/typectx"
	"unravel/internal/shared/observability"
)

// Snapshot is one fully analyzed project state.
type Snapshot struct {
	ID          string
	CreatedAt   time.Time
	Files       []string
	Indices     map[string]*semantic.FileIndex
	Symbols     *registry.SymbolRegistry
	Imports     *registry.ImportRegistry
	Exports     *registry.ExportRegistry
	Types       *typectx.TypeContext
	Resolver    *registry.ResolutionRegistry
	Resolutions []registry.Resolution
	Graph       *callgraph.Graph
	ImportGraph *registry.ImportGraph
}

type Project struct {
	cfg     *config.Config
	indexer ports.FileIndexer
	cache   ports.IndexCache // nil disables caching
	scanner *Scanner
	log     *slog.Logger

	mu      sync.RWMutex
	indices map[string]*semantic.FileIndex
	snap    *Snapshot
}

func New(cfg *config.Config, indexer ports.FileIndexer, cache ports.IndexCache, log *slog.Logger) (*Project, error) {
	scanner, err := NewScanner(cfg, indexer.Supported)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Project{
		cfg:     cfg,
		indexer: indexer,
		cache:   cache,
		scanner: scanner,
		log:     log,
		indices: make(map[string]*semantic.FileIndex),
	}, nil
}

// Snapshot returns the current analysis state, nil before the first build.
func (p *Project) Snapshot() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// BuildAll scans the roots, indexes every file and swaps in a fresh
// snapshot.
func (p *Project) BuildAll(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "project.build_all")
	defer span.End()

	files, err := p.scanner.Scan()
	if err != nil {
		return err
	}

	indices, err := p.indexFiles(ctx, files)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.indices = indices
	p.mu.Unlock()

	return p.analyze(ctx)
}

// Update re-indexes the changed files plus their transitive dependents and
// rebuilds the analysis. Removed files leave the working set. Dependents
// are re-resolved from their (unchanged) indices, so the set to re-parse
// stays small while resolution results never go stale.
func (p *Project) Update(ctx context.Context, changed []string, removed []string) error {
	ctx, span := observability.Tracer.Start(ctx, "project.update")
	defer span.End()

	prev := p.Snapshot()

	dirty := make(map[string]struct{})
	for _, f := range changed {
		dirty[f] = struct{}{}
	}
	if prev != nil && prev.ImportGraph != nil {
		for _, f := range append(append([]string{}, changed...), removed...) {
			for _, dep := range prev.ImportGraph.DependentsOf(f) {
				dirty[dep] = struct{}{}
			}
		}
	}
	for _, f := range removed {
		delete(dirty, f)
	}

	toIndex := make([]string, 0, len(dirty))
	for f := range dirty {
		toIndex = append(toIndex, f)
	}
	sort.Strings(toIndex)

	reindexed, err := p.indexFiles(ctx, toIndex)
	if err != nil {
		return err
	}
	observability.ReindexedFilesTotal.Add(float64(len(reindexed)))

	p.mu.Lock()
	for _, f := range removed {
		delete(p.indices, f)
		if p.cache != nil {
			if err := p.cache.Evict(f); err != nil {
				p.log.Warn("cache evict failed", "path", f, "error", err)
			}
		}
	}
	for f, idx := range reindexed {
		p.indices[f] = idx
	}
	p.mu.Unlock()

	return p.analyze(ctx)
}

// indexFiles parses the given files in parallel, serving unchanged files
// from the cache. Unreadable files are skipped with a warning rather than
// failing the run.
func (p *Project) indexFiles(ctx context.Context, files []string) (map[string]*semantic.FileIndex, error) {
	out := make(map[string]*semantic.FileIndex, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	workers := p.cfg.Limits.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	for _, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(file)
			if err != nil {
				p.log.Warn("skipping unreadable file", "path", file, "error", err)
				return nil
			}
			idx, err := p.indexOne(file, content)
			if err != nil {
				// The scanner filters on Supported, so an unsupported file
				// here is a race with a rename, not a defect.
				if coreerrors.IsCode(err, coreerrors.CodeNotSupported) {
					p.log.Debug("skipping unsupported file", "path", file)
					return nil
				}
				p.log.Warn("indexing failed", "path", file, "error", err)
				return nil
			}
			mu.Lock()
			out[file] = idx
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeInternal, "indexing aborted"),
			coreerrors.CtxOperation, "index")
	}
	return out, nil
}

func (p *Project) indexOne(file string, content []byte) (*semantic.FileIndex, error) {
	if p.cache != nil {
		hash := semantic.ContentHash(content)
		if idx, hit := p.cache.Get(file, hash); hit {
			observability.CacheHitsTotal.WithLabelValues("hit").Inc()
			return idx, nil
		}
		observability.CacheHitsTotal.WithLabelValues("miss").Inc()
	}
	idx, err := p.indexer.IndexFile(file, content)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		if err := p.cache.Put(idx); err != nil {
			p.log.Warn("cache write failed", "path", file, "error", err)
		}
	}
	return idx, nil
}

// analyze rebuilds registries, resolutions and the call graph over the
// current working set, then swaps the snapshot.
func (p *Project) analyze(ctx context.Context) error {
	_, span := observability.Tracer.Start(ctx, "project.analyze")
	defer span.End()
	start := time.Now()

	p.mu.RLock()
	indices := make(map[string]*semantic.FileIndex, len(p.indices))
	for f, idx := range p.indices {
		indices[f] = idx
	}
	p.mu.RUnlock()

	files := make([]string, 0, len(indices))
	languages := make(map[string]string, len(indices))
	for f, idx := range indices {
		files = append(files, f)
		languages[f] = idx.Language
	}
	sort.Strings(files)

	imports := registry.NewImportRegistry(modpath.NewFileSet(files), p.cfg.Roots, languages)
	symbols := registry.BuildSymbols(indices)
	exports := registry.BuildExports(indices, imports)
	types := typectx.Build(indices)
	resolver := registry.NewResolutionRegistry(indices, symbols, imports, exports, types)

	resolutions := resolver.ResolveNames()
	for _, res := range resolutions {
		observability.ResolutionsTotal.WithLabelValues(string(res.Status), string(res.Reason)).Inc()
	}

	graph := callgraph.Build(indices, resolutions)

	importGraph := registry.NewImportGraph()
	for _, f := range files {
		importGraph.AddFile(indices[f], imports)
	}

	snap := &Snapshot{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		Files:       files,
		Indices:     indices,
		Symbols:     symbols,
		Imports:     imports,
		Exports:     exports,
		Types:       types,
		Resolver:    resolver,
		Resolutions: resolutions,
		Graph:       graph,
		ImportGraph: importGraph,
	}

	p.mu.Lock()
	p.snap = snap
	p.mu.Unlock()

	observability.FilesIndexed.Set(float64(len(files)))
	observability.CallGraphNodes.Set(float64(len(graph.Nodes)))
	observability.CallGraphEdges.Set(float64(len(graph.Edges)))
	observability.CallGraphEntryPoints.Set(float64(len(graph.EntryPoints)))
	observability.AnalysisDuration.WithLabelValues("analyze").Observe(time.Since(start).Seconds())

	p.log.Info("analysis complete",
		"snapshot", snap.ID,
		"files", len(files),
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
		"entry_points", len(graph.EntryPoints),
		"duration", time.Since(start))
	return nil
}
