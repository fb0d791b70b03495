package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sajjad-MoBe/NumAPI/internal/shared"
)

// Server represents the HTTP API server
type Server struct {
	httpServer *http.Server
	logger     *shared.Logger
}

// NewServer creates a new API server instance
func NewServer(address string, handler http.Handler, logger *shared.Logger) *Server {
	if logger == nil {
		logger = shared.DefaultLogger
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(l)
}

// Serve serves on an existing listener until Shutdown
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("HTTP server starting", "address", l.Addr().String())

	err := s.httpServer.Serve(l)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
