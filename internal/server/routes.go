// Package server exposes the relay over HTTP: the websocket endpoint the
// devices dial and a couple of plain-text probes.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dodomondo0/fool-p2p-app/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Devices connect from anywhere; the room password is the only gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs returns the handler for websocket signaling connections.
func ServeWs(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("failed to upgrade connection", "error", err)
			return
		}
		relay.NewClient(hub, conn).Register()
	}
}

// Routes builds the relay server mux.
func Routes(hub *relay.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Signaling server is running"))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "ok, rooms=%d\n", hub.Registry().RoomCount())
	})
	mux.HandleFunc("/ws", ServeWs(hub))
	return mux
}
