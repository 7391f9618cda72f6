// Package server assembles the hub, routes and HTTP listener into a single
// runnable chat server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Server is a configured chat server: one hub loop plus the HTTP listener
// that feeds it WebSocket connections.
type Server struct {
	cfg  Config
	hub  *Hub
	http *http.Server
	log  zerolog.Logger
}

// New builds a server from cfg. Call Start to begin serving.
func New(cfg Config, logger zerolog.Logger) *Server {
	hub := NewHub(cfg, logger)
	return &Server{
		cfg:  hub.Config(),
		hub:  hub,
		http: CreateServer(hub.Config().Port, SetupRoutes(hub)),
		log:  logger,
	}
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start launches the hub loop and blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.hub.Start()
	s.log.Info().Msg("hub started and ready to manage WebSocket connections")
	return StartServer(s.http)
}

// Shutdown stops accepting connections, then closes every client and stops
// the hub. Both steps run even if the first one fails.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := ShutdownServer(ctx, s.http)

	timeout := s.cfg.ShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			timeout = remaining
		}
	}
	hubErr := s.hub.Shutdown(timeout)
	return errors.Join(httpErr, hubErr)
}
