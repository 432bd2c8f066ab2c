// Package statusapi implements the read-only introspection endpoint the
// spec's CONFIGURATION section allows ("status.enabled / status.port"):
// a single JSON snapshot of engine lifecycle state, queue depths, and
// counters, with nothing that can mutate engine state.
//
// Grounded on the teacher's internal/api.Server: an http.Server wrapping a
// ServeMux, constructed with the addr baked in, started with
// ListenAndServe in its own goroutine and torn down with Shutdown.
package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// EngineStatus is the narrow read surface the status endpoint needs from
// the engine — just enough to report state without importing execengine
// (which would make this package depend on the very thing it reports on
// for no benefit beyond a type name). State is pre-rendered to a string by
// the caller, since an interface method's return type must match exactly
// and execengine.Engine.State() returns its own ComponentState type.
type EngineStatus interface {
	State() string
	QSize() (cmdDepth, evtDepth int)
	CommandCount() uint64
	EventCount() uint64
	StaleEventCount() uint64
}

// Server is the status HTTP server.
type Server struct {
	engine EngineStatus
	server *http.Server
	logger *slog.Logger
}

// statusResponse is the JSON body of GET /status.
type statusResponse struct {
	State           string `json:"state"`
	CommandQueue    int    `json:"command_queue_depth"`
	EventQueue      int    `json:"event_queue_depth"`
	CommandCount    uint64 `json:"command_count"`
	EventCount      uint64 `json:"event_count"`
	StaleEventCount uint64 `json:"stale_event_count"`
}

// New constructs a status server bound to port, reporting on engine.
func New(port int, engine EngineStatus, logger *slog.Logger) *Server {
	s := &Server{engine: engine, logger: logger.With("component", "statusapi")}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("status server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("statusapi: server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cmdDepth, evtDepth := s.engine.QSize()
	resp := statusResponse{
		State:           s.engine.State(),
		CommandQueue:    cmdDepth,
		EventQueue:      evtDepth,
		CommandCount:    s.engine.CommandCount(),
		EventCount:      s.engine.EventCount(),
		StaleEventCount: s.engine.StaleEventCount(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("encode status response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
