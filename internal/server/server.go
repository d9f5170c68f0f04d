// Package server runs an http.Handler until its context is canceled,
// then drains in-flight requests.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures a Server.
type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	// ShutdownTimeout bounds how long Serve waits for in-flight requests
	// after the context is canceled. Zero waits indefinitely.
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Server wraps http.Server with context-driven graceful shutdown.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New creates a Server for h.
func New(h http.Handler, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	readHeaderTimeout := opts.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = 10 * time.Second
	}
	return &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           h,
			ReadHeaderTimeout: readHeaderTimeout, // Prevent Slowloris attacks
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		shutdownTimeout: opts.ShutdownTimeout,
		logger:          logger,
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled or the server fails.
// A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server listening", slog.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx := context.Background()
		if s.shutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.shutdownTimeout)
			defer cancel()
		}
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
