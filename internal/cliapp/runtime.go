package cliapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"unravel/internal/core/config"
	"unravel/internal/core/ports"
	datacache "unravel/internal/data/cache"
	"unravel/internal/engine/parser"
	"unravel/internal/engine/project"
	"unravel/internal/engine/registry"
	"unravel/internal/output"
	"unravel/internal/shared/observability"
	"unravel/internal/shared/util"
	"unravel/internal/watcher"
)

func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Printf("unravel v%s\n", versionString)
		return 0
	}

	configureLogging(opts.verbose)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if len(opts.args) > 0 {
		cfg.Roots = opts.args
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observe.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	p, err := parser.NewParser(parser.NewGrammarLoader())
	if err != nil {
		slog.Error("failed to initialize parser", "error", err)
		return 1
	}

	var cache ports.IndexCache
	if cfg.Cache.Path != "" {
		store, err := datacache.Open(cfg.Cache.Path)
		if err != nil {
			slog.Error("failed to open index cache", "path", cfg.Cache.Path, "error", err)
			return 1
		}
		defer func() { _ = store.Close() }()
		cache = store
	}

	proj, err := project.New(cfg, p, cache, slog.Default())
	if err != nil {
		slog.Error("failed to initialize project", "error", err)
		return 1
	}

	if err := proj.BuildAll(ctx); err != nil {
		slog.Error("initial analysis failed", "error", err)
		return 1
	}
	snap := proj.Snapshot()

	if stopNow, code := runSingleCommand(snap, opts); stopNow {
		return code
	}

	if err := generateOutputs(cfg, snap); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}
	printSummary(snap)

	if opts.once || !(opts.watch || cfg.Watch.Enabled) {
		return 0
	}

	if cfg.Observe.MetricsAddr != "" {
		obs := NewObservabilityServer(cfg.Observe.MetricsAddr, proj)
		if err := obs.Start(); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() { _ = obs.Stop(context.Background()) }()
	}

	limiter := util.NewLimiter(cfg.Limits.ReindexPerSecond, cfg.Limits.ReindexBurst)
	w, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.Exclude.Dirs, cfg.Exclude.Files, p.Supported,
		func(changed, removed []string) {
			if err := limiter.Wait(ctx, 1); err != nil {
				return
			}
			if err := proj.Update(ctx, changed, removed); err != nil {
				slog.Error("incremental update failed", "error", err)
				return
			}
			snap := proj.Snapshot()
			if err := generateOutputs(cfg, snap); err != nil {
				slog.Error("failed to generate outputs", "error", err)
			}
			printSummary(snap)
		})
	if err != nil {
		slog.Error("failed to initialize watcher", "error", err)
		return 1
	}
	defer func() { _ = w.Close() }()

	if err := w.Watch(cfg.Roots); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}

	<-ctx.Done()
	return 0
}

func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		// A missing default config is not an error; explicit paths are.
		if path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func runSingleCommand(snap *project.Snapshot, opts cliOptions) (bool, int) {
	switch {
	case opts.unresolved:
		tsv, err := output.NewTSVGenerator(snap.Graph).GenerateUnresolved(snap.Resolutions)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		fmt.Print(tsv)
		return true, 0
	case opts.entrypoints:
		tsv, err := output.NewTSVGenerator(snap.Graph).GenerateEntryPoints()
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		fmt.Print(tsv)
		return true, 0
	case opts.jsonOut:
		data, err := output.NewReport(snap.Files, snap.Graph, snap.Resolutions).Encode()
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		fmt.Println(string(data))
		return true, 0
	}
	return false, 0
}

func generateOutputs(cfg *config.Config, snap *project.Snapshot) error {
	if path := cfg.Output.DOT; path != "" {
		dot, err := output.NewDOTGenerator(snap.Graph).Generate()
		if err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(path, []byte(dot), 0o644); err != nil {
			return err
		}
	}
	if path := cfg.Output.Mermaid; path != "" {
		mmd, err := output.NewMermaidGenerator(snap.Graph).Generate()
		if err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(path, []byte(mmd), 0o644); err != nil {
			return err
		}
	}
	if path := cfg.Output.TSV; path != "" {
		tsv, err := output.NewTSVGenerator(snap.Graph).Generate()
		if err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(path, []byte(tsv), 0o644); err != nil {
			return err
		}
	}
	if path := cfg.Output.JSON; path != "" {
		data, err := output.NewReport(snap.Files, snap.Graph, snap.Resolutions).Encode()
		if err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(snap *project.Snapshot) {
	unresolved := 0
	for _, res := range snap.Resolutions {
		if res.Status != registry.StatusResolved {
			unresolved++
		}
	}
	fmt.Printf("%d files, %d callables, %d calls, %d entry points, %d unresolved\n",
		len(snap.Files), len(snap.Graph.Nodes), len(snap.Graph.Edges),
		len(snap.Graph.EntryPoints), unresolved)
}
