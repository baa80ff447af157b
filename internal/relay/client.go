package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
)

const (
	// Time allowed to write an envelope to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum envelope size allowed from a peer; enough for any SDP.
	maxEnvelopeSize = 64 * 1024
)

// Client wraps a single websocket connection to one device. The hub learns
// the device identity from its first join envelope.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *protocol.Envelope

	mu sync.Mutex
	id string
}

// NewClient wires a freshly upgraded connection to the hub. The caller
// starts the pumps and registers the client.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan *protocol.Envelope, 256),
	}
}

func (c *Client) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Client) setID(id string) {
	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
}

func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Deliver queues an envelope without blocking the hub. A full queue means
// the peer has stalled; the envelope is dropped and the pumps will tear the
// connection down on the next keepalive failure.
func (c *Client) Deliver(env *protocol.Envelope) bool {
	select {
	case c.send <- env:
		return true
	default:
		slog.Warn("dropping envelope for stalled client", "addr", c.RemoteAddr(), "kind", env.Kind)
		return false
	}
}

// ReadPump pumps envelopes from the websocket connection to the hub. It is
// the sole reader of the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxEnvelopeSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				slog.Warn("read error", "addr", c.RemoteAddr(), "error", err)
			}
			return
		}
		c.hub.inbound <- inbound{client: c, env: &env}
	}
}

// WritePump pumps envelopes from the hub to the websocket connection and
// sends periodic pings. It is the sole writer of the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				slog.Warn("write error", "addr", c.RemoteAddr(), "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Register hands the client to the hub and starts its pumps.
func (c *Client) Register() {
	c.hub.register <- c
	go c.WritePump()
	go c.ReadPump()
}
