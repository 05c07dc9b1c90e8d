package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "unravel_parsing_seconds",
		Help:    "Time spent parsing and indexing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "unravel_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	FilesIndexed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unravel_files_indexed_total",
		Help: "Number of files in the current project snapshot.",
	})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unravel_resolutions_total",
		Help: "Reference resolution outcomes by status and reason.",
	}, []string{"status", "reason"})

	CallGraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unravel_callgraph_nodes_total",
		Help: "Total number of nodes in the call graph.",
	})

	CallGraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unravel_callgraph_edges_total",
		Help: "Total number of edges in the call graph.",
	})

	CallGraphEntryPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unravel_callgraph_entry_points_total",
		Help: "Number of detected entry points in the call graph.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unravel_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unravel_index_cache_total",
		Help: "Index cache lookups by outcome.",
	}, []string{"outcome"})

	ReindexedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unravel_reindexed_files_total",
		Help: "Total number of files re-indexed after change events, including dependents.",
	})
)
