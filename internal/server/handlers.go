// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/fanout/internal/logging"
)

// WebSocketHandler returns the handler that upgrades requests to WebSocket
// connections and hands each new client to hub. Only GET is accepted and the
// Origin header must pass the configured policy.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     hub.origins.checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			l := logging.Ctx(r.Context())
			l.Warn().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		client := NewClient(conn, hub, r.RemoteAddr)

		// The hub launches the pump goroutines once the client is registered.
		if !hub.Register(client) {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			_ = conn.Close()
		}
	}
}

// HealthHandler responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Fanout chat server is running!")
}

// TestPageHandler serves a small HTML page for exercising the event protocol
// from a browser.
func TestPageHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		l := logging.Ctx(r.Context())
		l.Warn().Err(err).Msg("error writing HTML response")
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Fanout Chat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #log { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; }
        input[type="text"] { width: 200px; padding: 5px; margin-right: 5px; }
    </style>
</head>
<body>
    <h1>Fanout Chat Test</h1>
    <div>
        <input type="text" id="name" placeholder="Display name">
        <button onclick="connect()">Connect</button>
    </div>
    <div>
        <input type="text" id="room" placeholder="Room (optional)">
        <input type="text" id="to" placeholder="Recipient (optional)">
        <button onclick="join()">Join room</button>
    </div>
    <div>
        <input type="text" id="text" placeholder="Message">
        <button onclick="sendText()">Send</button>
    </div>
    <pre id="log"></pre>
    <script>
        let ws = null;
        const $ = (id) => document.getElementById(id);

        function log(line) {
            $('log').textContent += line + '\n';
            $('log').scrollTop = $('log').scrollHeight;
        }

        function emit(event, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ event, data }));
            }
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = () => { log('connected'); emit('register', $('name').value); };
            ws.onmessage = (e) => log(e.data);
            ws.onclose = () => { log('disconnected'); ws = null; };
        }

        function join() {
            emit('join room', $('room').value);
        }

        function sendText() {
            const room = $('room').value, to = $('to').value, message = $('text').value;
            if (room) {
                emit('room message', { room, message });
            } else if (to) {
                emit('private message', { toUsername: to, message });
            } else {
                emit('chat message', message);
            }
            $('text').value = '';
        }
    </script>
</body>
</html>`
