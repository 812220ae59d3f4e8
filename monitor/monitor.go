// Package monitor implements the optional run-status HTTP server: a
// from-scratch replacement for akita's monitoring.Monitor, which is not
// available outside zeonica's own dependency on the akita substrate.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/sarchlab/sinuca-go/engine"
	"github.com/sarchlab/sinuca-go/link"
)

// Server exposes a running simulation over HTTP: GET /status always
// answers with the engine's current Snapshot; GET /stats answers with the
// final per-component statistics, available only once SetFinalStatistics
// has been called.
type Server struct {
	http *http.Server
	eng  *engine.Engine

	mu    sync.RWMutex
	final []link.Stat
	ended bool
}

// New builds a monitor server bound to addr (e.g. ":6060"), polling eng's
// Snapshot for /status. It does not start listening until Serve is called.
func New(addr string, eng *engine.Engine) *Server {
	s := &Server{eng: eng}

	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.http = &http.Server{Addr: addr, Handler: router}

	return s
}

// Handler returns the server's request router, for tests and for embedding
// under a larger mux without opening a real listener.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Serve starts the HTTP listener and blocks until Close is called; run it
// in its own goroutine.
func (s *Server) Serve() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the HTTP listener down.
func (s *Server) Close() error {
	return s.http.Close()
}

// SetFinalStatistics publishes the run's final statistics; /stats answers
// successfully from then on.
func (s *Server) SetFinalStatistics(stats []link.Stat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.final = stats
	s.ended = true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ended {
		http.Error(w, "simulation has not ended yet", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, s.final)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
