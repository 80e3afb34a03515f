package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roomguard/chatwork-moderator/internal/service"
)

// StatusSource provides the scheduler state
type StatusSource interface {
	Snapshot() service.Status
}

// Server exposes health, Prometheus metrics and the scheduler status over HTTP
type Server struct {
	status StatusSource
	addr   string
	server *http.Server
	log    *slog.Logger
}

// NewServer creates a new API server
func NewServer(status StatusSource, addr string) *Server {
	return &Server{
		status: status,
		addr:   addr,
		log:    slog.Default().With("component", "api"),
	}
}

// Handler returns the request router
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/status", s.handleStatus)

	return mux
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := s.status.Snapshot()
	if status.Rooms == nil {
		status.Rooms = []service.RoomStatus{}
	}
	s.writeJSON(w, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
