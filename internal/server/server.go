// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the occurrence and annotation operations over HTTP.
// Routes are declared in an explicit registration table that also feeds the
// index listing served at "/".
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

	"github.com/pdiddy/epandda/internal/annotation"
	"github.com/pdiddy/epandda/internal/occurrence"
	"github.com/pdiddy/epandda/pkg/types"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	occurrences  *occurrence.Service
	annotations  *annotation.Builder
	config       types.ServerConfig
	defaultLimit int
	logger       *zerolog.Logger
	startTime    time.Time
}

// New creates a server answering with svc and b.
func New(svc *occurrence.Service, b *annotation.Builder, cfg types.Config, logger *zerolog.Logger) *Server {
	return &Server{
		occurrences:  svc,
		annotations:  b,
		config:       cfg.Server,
		defaultLimit: cfg.Match.DefaultLimit,
		logger:       logger,
		startTime:    time.Now(),
	}
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, rt := range s.routes() {
		mux.HandleFunc(rt.Pattern, rt.Handler)
	}
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var handler http.Handler = mux
	handler = Timeout(s.config.RequestTimeout)(handler)
	handler = Logger(s.logger)(handler)
	handler = Recovery(s.logger)(handler)
	return handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
