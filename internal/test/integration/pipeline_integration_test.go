package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unravel/internal/core/config"
	"unravel/internal/engine/parser"
	"unravel/internal/engine/project"
	"unravel/internal/engine/registry"
	"unravel/internal/engine/scope"
	"unravel/internal/engine/semantic"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func buildProject(t *testing.T, files map[string]string) (*project.Project, *project.Snapshot) {
	t.Helper()
	root := writeFiles(t, files)

	cfg := config.Default()
	cfg.Roots = []string{root}

	p, err := parser.NewParser(parser.NewGrammarLoader())
	require.NoError(t, err)

	proj, err := project.New(cfg, p, nil, discardLogger())
	require.NoError(t, err)
	require.NoError(t, proj.BuildAll(context.Background()))

	snap := proj.Snapshot()
	require.NotNil(t, snap)
	return proj, snap
}

func findResolution(snap *project.Snapshot, fileSuffix, name string) (registry.Resolution, bool) {
	for _, res := range snap.Resolutions {
		if res.Ref != nil && res.Ref.Name == name && strings.HasSuffix(res.File, fileSuffix) {
			return res, true
		}
	}
	return registry.Resolution{}, false
}

func edgeExists(snap *project.Snapshot, caller, callee string) bool {
	for _, e := range snap.Graph.Edges {
		from, to := snap.Graph.Nodes[e.Caller], snap.Graph.Nodes[e.Callee]
		if from != nil && to != nil && from.Name == caller && to.Name == callee {
			return true
		}
	}
	return false
}

func entryNames(snap *project.Snapshot) []string {
	var out []string
	for _, sym := range snap.Graph.EntryPoints {
		out = append(out, snap.Graph.Nodes[sym].Name)
	}
	return out
}

func TestJavaScriptCrossFileCalls(t *testing.T) {
	_, snap := buildProject(t, map[string]string{
		"utils.js": `export function helper() {
  return 1;
}
`,
		"main.js": `import { helper } from './utils';

function main() {
  return helper();
}

main();
`,
	})

	require.Len(t, snap.Files, 2)

	res, ok := findResolution(snap, "/main.js", "helper")
	require.True(t, ok, "no resolution recorded for helper")
	assert.Equal(t, registry.StatusResolved, res.Status)
	assert.True(t, strings.HasSuffix(res.Target, "/utils.js"), "target = %s", res.Target)

	assert.True(t, edgeExists(snap, "main", "helper"), "missing edge main -> helper")
	assert.Len(t, snap.Graph.ModuleCalls, 1, "main() at module level")
	assert.Empty(t, entryNames(snap), "module-level call covers main, import call covers helper")
}

func TestJavaScriptReexportChain(t *testing.T) {
	_, snap := buildProject(t, map[string]string{
		"utils.js": `export function helper() {
  return 1;
}
`,
		"barrel.js": `export { helper } from './utils';
`,
		"main.js": `import { helper } from './barrel';

helper();
`,
	})

	res, ok := findResolution(snap, "/main.js", "helper")
	require.True(t, ok)
	require.Equal(t, registry.StatusResolved, res.Status)
	assert.True(t, strings.HasSuffix(res.Target, "/utils.js"),
		"chain should end at the original definition, got %s", res.Target)
	assert.GreaterOrEqual(t, len(res.Chain), 2, "re-export chain should be recorded")
}

func TestJavaScriptReexportChainDepthFive(t *testing.T) {
	files := map[string]string{
		"utils.js": `export function helper() {
  return 1;
}
`,
		"main.js": `import { helper } from './hop5';

helper();
`,
	}
	files["hop1.js"] = "export { helper } from './utils';\n"
	for i := 2; i <= 5; i++ {
		files[fmt.Sprintf("hop%d.js", i)] = fmt.Sprintf("export { helper } from './hop%d';\n", i-1)
	}
	_, snap := buildProject(t, files)

	res, ok := findResolution(snap, "/main.js", "helper")
	require.True(t, ok)
	require.Equal(t, registry.StatusResolved, res.Status)
	assert.True(t, strings.HasSuffix(res.Target, "/utils.js"),
		"five hops should land on the defining file, got %s", res.Target)

	// The chain lands on the same symbol the defining file declares.
	for path, idx := range snap.Indices {
		if !strings.HasSuffix(path, "/utils.js") {
			continue
		}
		defs := idx.DefinitionsNamed("helper")
		require.Len(t, defs, 1)
		assert.Equal(t, defs[0].Symbol, res.Symbol, "chain and definition disagree on the symbol")
	}
	assert.GreaterOrEqual(t, len(res.Chain), 6, "all five hops plus the origin should be recorded")
}

func TestDefiningScopeUsesStartPoint(t *testing.T) {
	_, snap := buildProject(t, map[string]string{
		"shapes.ts": `class Circle {
  radius: number;

  area(): number {
    return this.radius * 2;
  }
}
`,
	})

	idx := snap.Indices[snap.Files[0]]
	require.NotNil(t, idx)

	circles := idx.DefinitionsNamed("Circle")
	require.Len(t, circles, 1)
	// The class span contains its own body scope; the declaration itself
	// belongs to the root scope.
	assert.Equal(t, scope.Root, circles[0].DefiningScope)

	areas := idx.DefinitionsNamed("area")
	require.Len(t, areas, 1)
	assert.NotEqual(t, scope.Root, areas[0].DefiningScope, "method belongs to the class body scope")
	assert.Equal(t, circles[0].Symbol, areas[0].Meta.Owner)
}

func TestPythonSelfAndConstructorReceivers(t *testing.T) {
	_, snap := buildProject(t, map[string]string{
		"calc.py": `class Calculator:
    def add(self, x):
        return x

    def total(self, x):
        return self.add(x)


def main():
    calc = Calculator()
    return calc.total(5)


main()
`,
	})

	res, ok := findResolution(snap, "/calc.py", "add")
	require.True(t, ok, "no resolution for self.add")
	assert.Equal(t, registry.StatusResolved, res.Status, "self.add: %+v", res)

	res, ok = findResolution(snap, "/calc.py", "total")
	require.True(t, ok, "no resolution for calc.total")
	assert.Equal(t, registry.StatusResolved, res.Status, "calc.total: %+v", res)

	assert.True(t, edgeExists(snap, "total", "add"), "missing edge total -> add")
	assert.True(t, edgeExists(snap, "main", "total"), "missing edge main -> total")
	assert.NotContains(t, entryNames(snap), "main", "module-level main() call")
}

func TestPythonCrossModuleImport(t *testing.T) {
	_, snap := buildProject(t, map[string]string{
		"helpers.py": `def parse(text):
    return text
`,
		"main.py": `from helpers import parse

parse("x")
`,
	})

	res, ok := findResolution(snap, "/main.py", "parse")
	require.True(t, ok)
	assert.Equal(t, registry.StatusResolved, res.Status, "%+v", res)
	assert.True(t, strings.HasSuffix(res.Target, "/helpers.py"))
}

func TestRustImplMembers(t *testing.T) {
	_, snap := buildProject(t, map[string]string{
		"main.rs": `struct Calculator {
    total: i64,
}

impl Calculator {
    pub fn new() -> Calculator {
        Calculator { total: 0 }
    }

    pub fn add(&mut self, x: i64) {
        self.total += x;
    }
}

fn main() {
    let mut calc = Calculator::new();
    calc.add(2);
}
`,
	})

	res, ok := findResolution(snap, "/main.rs", "new")
	require.True(t, ok, "no resolution for Calculator::new")
	assert.Equal(t, registry.StatusResolved, res.Status, "Calculator::new: %+v", res)

	res, ok = findResolution(snap, "/main.rs", "add")
	require.True(t, ok, "no resolution for calc.add")
	assert.Equal(t, registry.StatusResolved, res.Status, "calc.add: %+v", res)

	assert.True(t, edgeExists(snap, "main", "new"), "missing edge main -> new")
	assert.True(t, edgeExists(snap, "main", "add"), "missing edge main -> add")
	assert.Equal(t, []string{"main"}, entryNames(snap), "nothing calls main")
}

func TestTypeScriptInterfaceReceiver(t *testing.T) {
	_, snap := buildProject(t, map[string]string{
		"shapes.ts": `interface Shape {
  area(): number;
}

class Circle implements Shape {
  radius: number;

  area(): number {
    return this.radius * 2;
  }
}

function measure(s: Shape): number {
  return s.area();
}
`,
	})

	res, ok := findResolution(snap, "/shapes.ts", "area")
	require.True(t, ok, "no resolution for s.area")
	assert.Equal(t, registry.StatusResolved, res.Status, "s.area: %+v", res)
}

func TestUnresolvedReferencesAreReported(t *testing.T) {
	_, snap := buildProject(t, map[string]string{
		"main.js": `ghost();
`,
	})

	res, ok := findResolution(snap, "/main.js", "ghost")
	require.True(t, ok, "unresolved call must still produce a resolution record")
	assert.Equal(t, registry.StatusUnresolved, res.Status)
	assert.Equal(t, registry.ReasonNotFound, res.Reason)
}

func TestIncrementalUpdate(t *testing.T) {
	files := map[string]string{
		"utils.js": `export function helper() {
  return 1;
}
`,
		"main.js": `import { helper } from './utils';

function main() {
  return helper();
}
`,
	}
	proj, snap := buildProject(t, files)
	require.True(t, edgeExists(snap, "main", "helper"))
	firstID := snap.ID

	var mainPath string
	for _, f := range snap.Files {
		if strings.HasSuffix(f, "/main.js") {
			mainPath = f
		}
	}
	require.NotEmpty(t, mainPath)

	require.NoError(t, os.WriteFile(filepath.FromSlash(mainPath), []byte(`function main() {
  return 2;
}
`), 0o644))
	require.NoError(t, proj.Update(context.Background(), []string{mainPath}, nil))

	snap = proj.Snapshot()
	assert.NotEqual(t, firstID, snap.ID, "update must produce a new snapshot")
	assert.False(t, edgeExists(snap, "main", "helper"), "edge should disappear with the call")
	assert.Contains(t, entryNames(snap), "main")

	require.NoError(t, proj.Update(context.Background(), nil, []string{mainPath}))
	snap = proj.Snapshot()
	_, stillThere := snap.Indices[mainPath]
	assert.False(t, stillThere, "removed file must leave the snapshot")
}

func TestDependentsFollowImportEdges(t *testing.T) {
	_, snap := buildProject(t, map[string]string{
		"core.js": `export function base() {
  return 0;
}
`,
		"mid.js": `export { base } from './core';
`,
		"app.js": `import { base } from './mid';

base();
`,
	})

	var corePath string
	for _, f := range snap.Files {
		if strings.HasSuffix(f, "/core.js") {
			corePath = f
		}
	}
	require.NotEmpty(t, corePath)

	deps := snap.ImportGraph.DependentsOf(corePath)
	require.Len(t, deps, 2, "mid.js re-exports core, app.js imports mid")
}

func TestCacheSkipsReparse(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"main.js": `function main() {
  return 1;
}
`,
	})

	cfg := config.Default()
	cfg.Roots = []string{root}

	p, err := parser.NewParser(parser.NewGrammarLoader())
	require.NoError(t, err)

	store := newRecordingCache()
	proj, err := project.New(cfg, p, store, discardLogger())
	require.NoError(t, err)

	require.NoError(t, proj.BuildAll(context.Background()))
	assert.Equal(t, 1, store.misses, "first build misses")
	assert.Equal(t, 1, store.puts)

	require.NoError(t, proj.BuildAll(context.Background()))
	assert.Equal(t, 1, store.hits, "second build over unchanged content hits")
}

// recordingCache is an in-memory ports.IndexCache counting hits and misses.
type recordingCache struct {
	entries map[string]*semantic.FileIndex
	hashes  map[string]uint64
	hits    int
	misses  int
	puts    int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		entries: make(map[string]*semantic.FileIndex),
		hashes:  make(map[string]uint64),
	}
}

func (c *recordingCache) Get(path string, contentHash uint64) (*semantic.FileIndex, bool) {
	if idx, ok := c.entries[path]; ok && c.hashes[path] == contentHash {
		c.hits++
		return idx, true
	}
	c.misses++
	return nil, false
}

func (c *recordingCache) Put(idx *semantic.FileIndex) error {
	c.puts++
	c.entries[idx.Path] = idx
	c.hashes[idx.Path] = idx.ContentHash
	return nil
}

func (c *recordingCache) Evict(path string) error {
	delete(c.entries, path)
	delete(c.hashes, path)
	return nil
}

func (c *recordingCache) Close() error { return nil }
