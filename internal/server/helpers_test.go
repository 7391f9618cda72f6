package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/fanout/internal/chat"
)

const (
	testOrigin  = "http://localhost:5000"
	readTimeout = 2 * time.Second
)

// startTestServer runs a hub behind an httptest server. mutate may adjust
// the configuration before the hub is built.
func startTestServer(t *testing.T, mutate func(*Config)) (*Hub, *httptest.Server) {
	t.Helper()

	cfg := NewConfig()
	cfg.AllowedOrigins = []string{testOrigin}
	if mutate != nil {
		mutate(cfg)
	}

	hub := NewHub(*cfg, zerolog.Nop())
	hub.Start()

	ts := httptest.NewServer(SetupRoutes(hub))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = hub.Shutdown(time.Second) })
	return hub, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// dial opens a WebSocket to ts with an allowed Origin header.
func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Origin", testOrigin)
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	conn, resp, err := dialer.Dial(wsURL(ts), header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// emit sends one event envelope.
func emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := chat.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// readEnvelope reads the next frame as an envelope.
func readEnvelope(conn *websocket.Conn, timeout time.Duration) (chat.Envelope, error) {
	var env chat.Envelope
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return env, err
	}
	_, frame, err := conn.ReadMessage()
	if err != nil {
		return env, err
	}
	err = json.Unmarshal(frame, &env)
	return env, err
}

// expectEvent skips frames until event arrives and decodes its data into out.
func expectEvent(t *testing.T, conn *websocket.Conn, event string, out any) {
	t.Helper()

	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		env, err := readEnvelope(conn, time.Until(deadline))
		require.NoError(t, err, "waiting for %q", event)
		if env.Event != event {
			continue
		}
		if out != nil {
			require.NoError(t, json.Unmarshal(env.Data, out))
		}
		return
	}
	t.Fatalf("timed out waiting for %q", event)
}

// expectNoEvent fails if event arrives within wait.
func expectNoEvent(t *testing.T, conn *websocket.Conn, event string, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		env, err := readEnvelope(conn, remaining)
		if err != nil {
			return
		}
		require.NotEqual(t, event, env.Event, "unexpected %q event", event)
	}
}

// waitForPresence reads presence updates until the online list equals names.
func waitForPresence(t *testing.T, conn *websocket.Conn, names ...string) {
	t.Helper()

	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		var online []string
		expectEvent(t, conn, chat.EventOnlineUsers, &online)
		if slices.Equal(online, names) {
			return
		}
	}
	t.Fatalf("online users never became %v", names)
}

// connectUsers dials one connection per name, registers them in order and
// waits until every connection has seen the full online list.
func connectUsers(t *testing.T, ts *httptest.Server, names ...string) []*websocket.Conn {
	t.Helper()

	conns := make([]*websocket.Conn, 0, len(names))
	for i, name := range names {
		conn := dial(t, ts)
		emit(t, conn, chat.EventRegister, name)
		waitForPresence(t, conn, names[:i+1]...)
		conns = append(conns, conn)
	}
	for _, conn := range conns[:len(conns)-1] {
		waitForPresence(t, conn, names...)
	}
	return conns
}
