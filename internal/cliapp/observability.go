package cliapp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unravel/internal/engine/project"
)

// ObservabilityServer exposes /metrics and /health while watch mode runs.
type ObservabilityServer struct {
	addr    string
	project *project.Project
	server  *http.Server
}

func NewObservabilityServer(addr string, p *project.Project) *ObservabilityServer {
	return &ObservabilityServer{addr: addr, project: p}
}

func (s *ObservabilityServer) Start() error {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		snap := s.project.Snapshot()
		status := map[string]any{"status": "up"}
		w.Header().Set("Content-Type", "application/json")
		if snap == nil {
			status["status"] = "starting"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			status["snapshot"] = snap.ID
			status["files"] = len(snap.Files)
		}
		_ = json.NewEncoder(w).Encode(status)
	})

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()

	return nil
}

func (s *ObservabilityServer) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
