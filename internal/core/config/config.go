package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// Roots are the directories scanned for source files. Globs in
	// Exclude are matched against paths relative to each root.
	Roots   []string      `toml:"roots"`
	Exclude Exclude       `toml:"exclude"`
	Watch   Watch         `toml:"watch"`
	Output  Output        `toml:"output"`
	Cache   Cache         `toml:"cache"`
	Observe Observability `toml:"observability"`
	Limits  Limits        `toml:"limits"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
	// UseGitignore additionally applies each root's .gitignore.
	UseGitignore bool `toml:"use_gitignore"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

type Output struct {
	DOT     string `toml:"dot"`
	Mermaid string `toml:"mermaid"`
	TSV     string `toml:"tsv"`
	JSON    string `toml:"json"`
}

type Cache struct {
	// Path of the sqlite index cache; empty disables caching.
	Path string `toml:"path"`
}

type Observability struct {
	// MetricsAddr serves prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `toml:"metrics_addr"`
	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

type Limits struct {
	// Workers caps concurrent file indexing; 0 means GOMAXPROCS.
	Workers int `toml:"workers"`
	// ReindexPerSecond throttles watcher-triggered rebuilds.
	ReindexPerSecond float64 `toml:"reindex_per_second"`
	ReindexBurst     int     `toml:"reindex_burst"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if len(cfg.Roots) == 0 {
		cfg.Roots = []string{"."}
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{"node_modules", ".git", "target", "__pycache__", "dist", "build"}
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Limits.ReindexPerSecond == 0 {
		cfg.Limits.ReindexPerSecond = 10
	}
	if cfg.Limits.ReindexBurst == 0 {
		cfg.Limits.ReindexBurst = 20
	}
}
