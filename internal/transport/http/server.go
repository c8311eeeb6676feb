// Package httptransport owns the dashboard's HTTP server lifecycle.
package httptransport

import (
	"context"
	"net/http"
	"time"
)

// DefaultAddress is the dashboard's documented listen address.
const DefaultAddress = ":8050"

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server wraps http.Server with the dashboard's drain behaviour.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// NewServer creates a Server with provided handler. An empty address falls
// back to the documented :8050 endpoint.
func NewServer(cfg ServerConfig, handler http.Handler) *Server {
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	return &Server{
		srv: &http.Server{
			Addr:         cfg.Address,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Address reports the bound listen address.
func (s *Server) Address() string {
	return s.srv.Addr
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests, giving up after the configured timeout.
func (s *Server) Shutdown() error {
	ctx := context.Background()
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}
	return s.srv.Shutdown(ctx)
}
