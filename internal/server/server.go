// Package server exposes the template catalog over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/jovyan/nbtemplates/internal/config"
	"github.com/jovyan/nbtemplates/internal/templates"
)

const shutdownTimeout = 10 * time.Second

// Server serves the two template endpoints under the configured base URL.
// The loader and configuration are fixed at construction and shared
// read-only across concurrent requests.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
	loader templates.Loader
	auth   *authenticator

	httpServer *http.Server
}

// New constructs a server around the given loader.
func New(cfg *config.Config, logger zerolog.Logger, loader templates.Loader) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if loader == nil {
		return nil, errors.New("loader is required")
	}

	auth, err := newAuthenticator(cfg.Auth, logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		loader: loader,
		auth:   auth,
	}

	base := config.NormalizeBaseURL(cfg.BaseURL)
	mux := http.NewServeMux()
	mux.Handle("GET "+base+"templates/names", s.wrap(s.handleNames))
	mux.Handle("GET "+base+"templates/get", s.wrap(s.handleGet))

	s.httpServer = &http.Server{
		Addr:    net.JoinHostPort(cfg.Listen.Host, strconv.Itoa(cfg.Listen.Port)),
		Handler: mux,
	}

	return s, nil
}

// wrap applies request logging and authentication to a handler.
func (s *Server) wrap(handler http.HandlerFunc) http.Handler {
	return s.logRequests(s.auth.require(handler))
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails.
func (s *Server) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info().
		Str("addr", listener.Addr().String()).
		Str("base_url", s.cfg.BaseURL).
		Msg("nbtemplates server starting")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("nbtemplates shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	s.logger.Info().Msg("nbtemplates shutdown complete")
	return nil
}

// Handler returns the configured HTTP handler. Useful for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
