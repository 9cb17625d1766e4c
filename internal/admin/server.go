// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package admin exposes a read-only HTTP surface for operators: health,
// Prometheus metrics, and a snapshot of active sessions. It never accepts
// engine traffic and carries none of the admission-control or UCI-pump
// logic, just observability over it.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/chessuci-proxyd/internal/logging"
	"grimm.is/chessuci-proxyd/internal/metrics"
)

// SessionSnapshot describes one active session for the /sessions endpoint.
type SessionSnapshot struct {
	ID         string    `json:"id"`
	Engine     string    `json:"engine"`
	PeerAddr   string    `json:"peer_addr"`
	StartedAt  time.Time `json:"started_at"`
	LastActive time.Time `json:"last_active"`
}

// SessionLister is implemented by whatever tracks live sessions; the
// daemon package supplies it so admin never has to know how sessions are
// stored.
type SessionLister interface {
	ListSessions() []SessionSnapshot
}

// Config controls the admin HTTP server.
type Config struct {
	ListenAddr string
	Metrics    *metrics.Registry
	Sessions   SessionLister
}

const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server is the read-only admin HTTP surface: health checks, Prometheus
// scraping, and a point-in-time view of live sessions.
type Server struct {
	cfg    Config
	logger *logging.Logger
	http   *http.Server
}

// New builds a Server. It does not listen until Run is called.
func New(cfg Config, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	router.HandleFunc("/sessions", s.handleSessions).Methods("GET")
	if cfg.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics.Gatherer(), promhttp.HandlerOpts{}))
	}

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// Run listens until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", "addr", s.cfg.ListenAddr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	var sessions []SessionSnapshot
	if s.cfg.Sessions != nil {
		sessions = s.cfg.Sessions.ListSessions()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
