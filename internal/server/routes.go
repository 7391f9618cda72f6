// Package server wires HTTP handlers into a gorilla/mux router for the chat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Tyrowin/fanout/internal/logging"
)

// SetupRoutes configures the application routes: health check, WebSocket
// endpoint, and test page. Every request is logged through the hub's logger.
func SetupRoutes(hub *Hub) *mux.Router {
	r := mux.NewRouter()
	r.Use(logging.HTTPMiddleware(hub.log))

	r.HandleFunc("/", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", WebSocketHandler(hub))
	r.HandleFunc("/test", TestPageHandler).Methods(http.MethodGet)
	return r
}
