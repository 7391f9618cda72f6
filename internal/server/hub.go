// Package server coordinates client registration, inbound event processing,
// and connection cleanup for the chat WebSocket system via the Hub type.
package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tyrowin/fanout/internal/chat"
	"github.com/Tyrowin/fanout/internal/logging"
)

// Hub owns every client connection and the routing engine. Run is the single
// consumer of client events: each inbound frame, registration and disconnect
// is processed to completion before the next, so the engine needs no locks.
type Hub struct {
	cfg        Config
	engine     *chat.Engine
	origins    *originPolicy
	clients    map[chat.ConnID]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	started    atomic.Bool
	log        zerolog.Logger

	// dropped is only touched by the Run goroutine.
	dropped []*Client
}

// NewHub creates a Hub for the given configuration. The returned Hub does
// nothing until Run is started.
func NewHub(cfg Config, logger zerolog.Logger) *Hub {
	cfg = cfg.Sanitize()
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:        cfg,
		origins:    newOriginPolicy(cfg.AllowedOrigins, logger),
		clients:    make(map[chat.ConnID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundFrame),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        logger,
	}
	h.engine = chat.NewEngine(h,
		chat.WithTrackingCapacity(cfg.MessageTrackingCapacity),
		chat.WithLogger(logger),
	)
	return h
}

// Config returns the sanitized configuration the hub runs with.
func (h *Hub) Config() Config {
	return h.cfg
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Register hands a new client to the hub loop. It reports false if the hub
// has shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) deliverInbound(frame inboundFrame) bool {
	select {
	case h.inbound <- frame:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Emit implements chat.Emitter. It runs on the hub goroutine only. The
// payload is encoded once and enqueued without blocking; a client whose
// buffer is full is dropped once the current event has been processed.
func (h *Hub) Emit(recipients []chat.ConnID, event string, payload any) {
	frame, err := chat.Encode(event, payload)
	if err != nil {
		h.log.Error().Err(err).Str(logging.FieldEvent, event).Msg("failed to encode event")
		return
	}

	for _, id := range recipients {
		client, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case client.send <- frame:
		default:
			h.dropped = append(h.dropped, client)
		}
	}
}

// Start launches Run in its own goroutine. Calling it more than once has no effect.
func (h *Hub) Start() {
	if h.started.CompareAndSwap(false, true) {
		go h.run()
	}
}

// Run executes the hub's main event loop on the calling goroutine and
// returns after Shutdown is called.
func (h *Hub) Run() {
	if h.started.CompareAndSwap(false, true) {
		h.run()
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case frame := <-h.inbound:
			h.handleInbound(frame)
		}

		h.flushDropped()
	}
}

func (h *Hub) addClient(client *Client) {
	if client == nil {
		h.log.Debug().Msg("received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.engine.Connect(client.id)
	client.log.Info().Int(logging.FieldClients, clientCount).Msg("client connected")

	if client.conn == nil {
		return
	}
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	if current, ok := h.clients[client.id]; !ok || current != client {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Closing send makes the write pump send a close frame and hang up.
	close(client.send)
	h.engine.Disconnect(client.id)
	client.log.Info().Int(logging.FieldClients, clientCount).Msg("client disconnected")
}

func (h *Hub) handleInbound(frame inboundFrame) {
	if _, ok := h.clients[frame.client.id]; !ok {
		return
	}

	err := h.engine.Handle(frame.client.id, frame.data)
	switch {
	case err == nil, errors.Is(err, chat.ErrNotConnected):
	case errors.Is(err, chat.ErrRecipientNotFound), errors.Is(err, chat.ErrNotParticipant):
		frame.client.log.Debug().Err(err).Msg("event not delivered")
	default:
		frame.client.log.Warn().Err(err).Msg("rejected inbound frame")
	}
}

// flushDropped disconnects clients whose buffers overflowed. Disconnecting
// emits presence, which can overflow further buffers, hence the loop.
func (h *Hub) flushDropped() {
	for len(h.dropped) > 0 {
		client := h.dropped[0]
		h.dropped = h.dropped[1:]
		if _, ok := h.clients[client.id]; ok {
			client.log.Warn().Msg("client removed due to full send buffer")
			h.removeClient(client)
		}
	}
	h.dropped = nil
}

// shutdownClients closes every connection and clears the routing state.
func (h *Hub) shutdownClients() {
	h.log.Info().Msg("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	clear(h.clients)
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				client.log.Warn().Err(err).Msg("error closing client connection")
			}
		}
	}
	h.engine.Reset()

	h.log.Info().Int(logging.FieldClients, len(clients)).Msg("closed client connections")
}

// Shutdown stops the hub loop and waits for all client goroutines to finish,
// or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info().Msg("initiating hub shutdown")

	h.cancel()
	if !h.started.Load() {
		return nil
	}
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info().Msg("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn().Msg("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
