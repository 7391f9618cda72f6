// Package server constructs and starts the chat HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Tyrowin/fanout/internal/logging"
)

// CreateServer creates an HTTP server with the specified address and handler.
// The timeouts only cover plain HTTP requests; upgraded connections manage
// their own deadlines.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// StartServer starts the HTTP server and blocks until it stops. A server
// closed by Shutdown is not reported as an error.
func StartServer(server *http.Server) error {
	l := logging.L()
	l.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until ctx is done.
func ShutdownServer(ctx context.Context, server *http.Server) error {
	l := logging.L()
	l.Info().Msg("shutting down HTTP server")

	if err := server.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("HTTP server shutdown error")
		return err
	}

	l.Info().Msg("HTTP server shutdown completed")
	return nil
}
