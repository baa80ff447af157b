// Package signaling maintains one device's relationship to the relay: the
// control-channel connection, room membership, host discovery, and the
// roster derived from relayed player notifications.
package signaling

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dodomondo0/fool-p2p-app/internal/dns"
	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxEnvelopeSize = 64 * 1024
	dialTimeout     = 10 * time.Second
)

// wire is the control-channel plumbing the session runs on. Tests substitute
// an in-memory implementation.
type wire interface {
	send(env *protocol.Envelope)
	recv() <-chan *protocol.Envelope
	close()
}

// client is the websocket implementation of wire: one connection to the
// relay with dedicated read and write pump goroutines, so transport I/O
// never runs on the caller's goroutine.
type client struct {
	conn     *websocket.Conn
	incoming chan *protocol.Envelope
	outgoing chan *protocol.Envelope
	done     chan struct{}

	closeOnce sync.Once
}

// dial connects to the relay at serverURL. The handshake is bounded by
// dialTimeout; failure is terminal and reported with its full cause chain,
// retry is the caller's responsibility.
func dial(ctx context.Context, serverURL string) (*client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, protocol.TransportError("parse server url", err)
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = dialTimeout
	dialer.NetDial = func(network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		resolved, err := dns.Lookup(host)
		if err != nil {
			return nil, err
		}
		return net.Dial(network, net.JoinHostPort(resolved, port))
	}

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, protocol.TransportError("connect signaling server", err)
	}

	c := &client{
		conn:     conn,
		incoming: make(chan *protocol.Envelope, 32),
		outgoing: make(chan *protocol.Envelope, 32),
		done:     make(chan struct{}),
	}

	conn.SetReadLimit(maxEnvelopeSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	return c, nil
}

func (c *client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		c.incoming <- &env
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *client) send(env *protocol.Envelope) {
	select {
	case c.outgoing <- env:
	case <-c.done:
	}
}

func (c *client) recv() <-chan *protocol.Envelope {
	return c.incoming
}

// close is idempotent.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
