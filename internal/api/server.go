// Package api exposes the daemon's HTTP control surface: health, workflow
// status, queue management, and the in-memory log tail.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/queue"
	"clipforge/internal/scheduler"
	"clipforge/internal/workflow"
)

// Version reported by the health endpoint.
const Version = "0.1.0"

// WorkflowStatus is the slice of the workflow manager the API reads.
type WorkflowStatus interface {
	Status(ctx context.Context) workflow.StatusSummary
}

// ScheduleLister reports upcoming scheduled runs.
type ScheduleLister interface {
	NextRuns() []scheduler.JobSchedule
}

// ServerConfig wires the daemon components the handlers need.
type ServerConfig struct {
	Bind      string
	Store     *queue.Store
	Workflow  WorkflowStatus
	Scheduler ScheduleLister
	Ring      *logging.Ring
	Notifier  notifications.Service
	Logger    *slog.Logger
	StartTime time.Time
}

// Server runs the HTTP listener for the daemon API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger

	mu   sync.Mutex
	addr string
}

// NewServer builds a server around the routed handlers. Call Start to listen.
func NewServer(cfg ServerConfig) *Server {
	logger := logging.NewComponentLogger(cfg.Logger, "api")
	cfg.Logger = logger

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Bind,
			Handler:      NewRouter(cfg),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start binds the configured address and serves until Shutdown. It blocks,
// so run it in a goroutine; a normal shutdown returns nil.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", "addr", listener.Addr().String())
	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound address once Start has claimed a listener.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != "" {
		return s.addr
	}
	return s.httpServer.Addr
}
