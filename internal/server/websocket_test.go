package server

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/fanout/internal/chat"
)

func TestHealthEndpoints(t *testing.T) {
	_, ts := startTestServer(t, nil)

	for _, path := range []string{"/", "/health"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + path)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
			assert.Equal(t, "Fanout chat server is running!", string(body))
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestTestPage(t *testing.T) {
	_, ts := startTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/test")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Fanout Chat Test")
}

func TestWebSocketRejectsNonGET(t *testing.T) {
	_, ts := startTestServer(t, nil)

	resp, err := http.Post(ts.URL+"/ws", "text/plain", strings.NewReader("hi"))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebSocketOriginPolicy(t *testing.T) {
	_, ts := startTestServer(t, nil)

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"allowed origin", testOrigin, true},
		{"allowed origin with different case", "HTTP://LOCALHOST:5000", true},
		{"foreign origin", "http://evil.example", false},
		{"missing origin", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
			if resp != nil {
				defer func() { _ = resp.Body.Close() }()
			}
			if tt.ok {
				require.NoError(t, err)
				_ = conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestWildcardOriginAllowsAnyClient(t *testing.T) {
	_, ts := startTestServer(t, func(cfg *Config) {
		cfg.AllowedOrigins = []string{"*"}
	})

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	_ = conn.Close()
}

func TestGlobalMessageFanOut(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conns := connectUsers(t, ts, "alice", "bob")
	alice, bob := conns[0], conns[1]

	emit(t, alice, chat.EventChatMessage, "hi")

	for _, conn := range []*websocket.Conn{alice, bob} {
		var msg chat.ChatMessage
		expectEvent(t, conn, chat.EventChatMessage, &msg)
		assert.Equal(t, "alice", msg.Username)
		assert.Equal(t, "hi", msg.Message)
		assert.Equal(t, chat.KindText, msg.Type)
		assert.NotEmpty(t, msg.ID)
	}
}

func TestRoomMessageFanOut(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conns := connectUsers(t, ts, "alice", "bob", "carol")
	alice, bob, carol := conns[0], conns[1], conns[2]

	emit(t, alice, chat.EventJoinRoom, "dev")
	expectEvent(t, alice, chat.EventJoinedRoom, nil)
	emit(t, bob, chat.EventJoinRoom, "dev")
	expectEvent(t, bob, chat.EventJoinedRoom, nil)

	var note string
	expectEvent(t, alice, chat.EventRoomNotification, &note)
	assert.Equal(t, "bob joined dev", note)

	emit(t, alice, chat.EventRoomMessage, chat.RoomMessageRequest{Room: "dev", Message: "standup?"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		var msg chat.RoomMessage
		expectEvent(t, conn, chat.EventRoomMessage, &msg)
		assert.Equal(t, "dev", msg.Room)
		assert.Equal(t, "standup?", msg.Message)
	}
	expectNoEvent(t, carol, chat.EventRoomMessage, 200*time.Millisecond)
}

func TestPrivateMessageDelivery(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conns := connectUsers(t, ts, "alice", "bob", "carol")
	alice, bob, carol := conns[0], conns[1], conns[2]

	emit(t, alice, chat.EventPrivateMessage, chat.PrivateMessageRequest{ToUsername: "bob", Message: "lunch?"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		var msg chat.PrivateMessage
		expectEvent(t, conn, chat.EventPrivateMessage, &msg)
		assert.Equal(t, "alice", msg.From)
		assert.Equal(t, "bob", msg.To)
		assert.Equal(t, "lunch?", msg.Message)
	}
	expectNoEvent(t, alice, chat.EventPrivateMessage, 200*time.Millisecond)
	expectNoEvent(t, carol, chat.EventPrivateMessage, 200*time.Millisecond)
}

func TestPrivateMessageToOfflineUser(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conns := connectUsers(t, ts, "alice", "bob")
	alice, bob := conns[0], conns[1]

	emit(t, alice, chat.EventPrivateMessage, chat.PrivateMessageRequest{ToUsername: "carol", Message: "hello?"})

	var failure chat.RecipientError
	expectEvent(t, alice, chat.EventPrivateMessageError, &failure)
	assert.Equal(t, "carol", failure.To)
	assert.Contains(t, failure.Message, "carol")

	expectNoEvent(t, bob, chat.EventPrivateMessageError, 200*time.Millisecond)
}

func TestReactionToRoomMessage(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conns := connectUsers(t, ts, "alice", "bob")
	alice, bob := conns[0], conns[1]

	emit(t, alice, chat.EventJoinRoom, "dev")
	expectEvent(t, alice, chat.EventJoinedRoom, nil)
	emit(t, bob, chat.EventJoinRoom, "dev")
	expectEvent(t, bob, chat.EventJoinedRoom, nil)

	emit(t, alice, chat.EventMessageReaction, chat.ReactionRequest{MessageID: "m1", Reaction: "👍", Room: "dev"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		var ev chat.ReactionEvent
		expectEvent(t, conn, chat.EventMessageReaction, &ev)
		assert.Equal(t, "m1", ev.MessageID)
		assert.Equal(t, "👍", ev.Reaction)
		assert.Equal(t, "alice", ev.From)
	}
}

func TestReadReceiptReachesSender(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conns := connectUsers(t, ts, "alice", "bob")
	alice, bob := conns[0], conns[1]

	emit(t, alice, chat.EventPrivateMessage, chat.PrivateMessageRequest{ToUsername: "bob", Message: "ping"})
	var msg chat.PrivateMessage
	expectEvent(t, bob, chat.EventPrivateMessage, &msg)

	emit(t, bob, chat.EventMessageRead, chat.ReadRequest{MessageID: msg.ID, FromUsername: "alice"})

	var receipt chat.ReadReceipt
	expectEvent(t, alice, chat.EventMessageRead, &receipt)
	assert.Equal(t, msg.ID, receipt.MessageID)
	assert.Equal(t, "bob", receipt.Reader)
}

func TestDisconnectUpdatesPresence(t *testing.T) {
	hub, ts := startTestServer(t, nil)
	conns := connectUsers(t, ts, "alice", "bob")
	alice, bob := conns[0], conns[1]

	require.NoError(t, bob.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = bob.Close()

	waitForPresence(t, alice, "alice")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	emit(t, alice, chat.EventPrivateMessage, chat.PrivateMessageRequest{ToUsername: "bob", Message: "still there?"})
	expectEvent(t, alice, chat.EventPrivateMessageError, nil)
}

func TestMalformedFrameReportsError(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conn := connectUsers(t, ts, "alice")[0]

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	var ev chat.ErrorEvent
	expectEvent(t, conn, chat.EventError, &ev)
	assert.Contains(t, ev.Message, "malformed payload")

	// The connection stays usable.
	emit(t, conn, chat.EventChatMessage, "after")
	expectEvent(t, conn, chat.EventChatMessage, nil)
}

func TestOversizedMessageClosesConnection(t *testing.T) {
	_, ts := startTestServer(t, func(cfg *Config) {
		cfg.WebSocket.MaxMessageSize = 512
	})
	conn := dial(t, ts)

	emit(t, conn, chat.EventChatMessage, strings.Repeat("x", 2048))

	_, err := readEnvelope(conn, readTimeout)
	require.Error(t, err)
}

func TestRateLimitDiscardsExcessFrames(t *testing.T) {
	_, ts := startTestServer(t, func(cfg *Config) {
		// One token for register, two for chat messages.
		cfg.RateLimit.Burst = 3
		cfg.RateLimit.RefillInterval = time.Hour
	})
	conn := connectUsers(t, ts, "alice")[0]

	for i := 0; i < 5; i++ {
		emit(t, conn, chat.EventChatMessage, "spam")
	}

	expectEvent(t, conn, chat.EventChatMessage, nil)
	expectEvent(t, conn, chat.EventChatMessage, nil)
	expectNoEvent(t, conn, chat.EventChatMessage, 300*time.Millisecond)
}

func TestFileMessageDataURL(t *testing.T) {
	_, ts := startTestServer(t, nil)
	conns := connectUsers(t, ts, "alice", "bob", "carol")
	alice, bob, carol := conns[0], conns[1], conns[2]

	const dataURL = "data:image/png;base64,iVBORw0KGgo="

	emit(t, bob, chat.EventJoinRoom, "pics")
	expectEvent(t, bob, chat.EventJoinedRoom, nil)

	tests := []struct {
		name     string
		req      chat.FileMessageRequest
		audience []*websocket.Conn
		outside  []*websocket.Conn
	}{
		{"global", chat.FileMessageRequest{File: dataURL, FileType: "image/png"}, []*websocket.Conn{alice, bob, carol}, nil},
		{"room", chat.FileMessageRequest{Room: "pics", File: dataURL, FileType: "image/png"}, []*websocket.Conn{bob}, []*websocket.Conn{carol}},
		{"private", chat.FileMessageRequest{ToUsername: "carol", File: dataURL, FileType: "image/png", Caption: "cat"}, []*websocket.Conn{alice, carol}, []*websocket.Conn{bob}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emit(t, alice, chat.EventFileMessage, tt.req)

			for _, conn := range tt.audience {
				var msg chat.FileMessage
				expectEvent(t, conn, chat.EventFileMessage, &msg)
				assert.Equal(t, dataURL, msg.File)
				assert.Equal(t, "image/png", msg.FileType)
				assert.Equal(t, chat.KindFile, msg.Type)
				assert.Equal(t, tt.req.Caption, msg.Caption)
			}
			for _, conn := range tt.outside {
				expectNoEvent(t, conn, chat.EventFileMessage, 200*time.Millisecond)
			}
		})
	}

	expectNoEvent(t, alice, chat.EventError, 200*time.Millisecond)
}
