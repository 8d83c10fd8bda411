// Package server implements a local stand-in for the Closerbase task
// API: the exact HTTP contract the sync client depends on, backed by an
// in-memory store. It exists for local development and end-to-end
// tests, not for production traffic.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/closerbase/tasksync/config"
)

// Server is the stand-in HTTP server.
type Server struct {
	cfg     config.ServerConfig
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger
	store   *Store

	// session secret caching
	secretOnce      sync.Once
	generatedSecret string
}

// New creates a Server over the given store.
func New(cfg config.ServerConfig, store *Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		mux:    http.NewServeMux(),
		logger: logger,
		store:  store,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the routed handler, for httptest servers.
func (s *Server) Handler() http.Handler { return s.mux }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8490"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("stand-in listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	// Public
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	// Task API, behind the session cookie
	api := http.NewServeMux()
	api.HandleFunc("GET /api/user/tasks", s.listTasks)
	api.HandleFunc("POST /api/user/tasks", s.createTask)
	api.HandleFunc("POST /api/user/tasks/{id}/done", s.markDone)
	api.HandleFunc("POST /api/user/tasks/{id}/snooze", s.snooze)
	api.HandleFunc("POST /api/user/tasks/sync", s.syncTasks)

	s.mux.Handle("/api/user/", s.sessionMiddleware(api))
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
