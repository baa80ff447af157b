package relay

import (
	"log/slog"

	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
)

// inbound pairs an envelope with the connection it arrived on.
type inbound struct {
	client *Client
	env    *protocol.Envelope
}

// Hub drives all room state from a single goroutine. Connection pumps feed
// it through channels; the registry holds the rooms.
type Hub struct {
	registry *Registry

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
}

func NewHub() *Hub {
	return &Hub{
		registry:   NewRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
	}
}

// Registry exposes the room registry, mainly for health reporting.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run processes registrations and inbound envelopes until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			slog.Debug("client registered", "addr", c.RemoteAddr())

		case c := <-h.unregister:
			for _, room := range h.registry.Disconnect(c) {
				slog.Info("room deleted", "room", room)
			}
			slog.Debug("client unregistered", "addr", c.RemoteAddr(), "id", c.ID())
			close(c.send)

		case in := <-h.inbound:
			h.handleEnvelope(in.client, in.env)
		}
	}
}

func (h *Hub) handleEnvelope(c *Client, env *protocol.Envelope) {
	switch env.Kind {
	case protocol.KindJoin:
		h.handleJoin(c, env)

	case protocol.KindSignal:
		if env.Room == "" || env.Target == "" {
			slog.Debug("dropping signal without room or target", "sender", env.Sender)
			return
		}
		if !h.registry.ForwardSignal(env) {
			// Fire-and-forget at this layer: logged, not reported to sender.
			slog.Debug("dropping signal", "room", env.Room, "target", env.Target)
			return
		}
		slog.Debug("signal forwarded", "room", env.Room, "sender", env.Sender, "target", env.Target)

	case protocol.KindHostAvailable:
		var payload protocol.HostAvailablePayload
		if err := env.DecodePayload(&payload); err != nil {
			slog.Warn("dropping malformed host_available", "error", err)
			return
		}
		delivered, ok := h.registry.HostAvailable(env.Room, payload.HostID, env)
		if !ok {
			slog.Debug("host_available for unknown room", "room", env.Room)
			return
		}
		slog.Info("host available", "room", env.Room, "host", payload.HostID, "delivered", delivered)

	default:
		slog.Warn("unknown envelope kind", "kind", env.Kind, "addr", c.RemoteAddr())
	}
}

func (h *Hub) handleJoin(c *Client, env *protocol.Envelope) {
	var payload protocol.JoinPayload
	if err := env.DecodePayload(&payload); err != nil {
		slog.Warn("dropping malformed join", "addr", c.RemoteAddr(), "error", err)
		return
	}

	var err error
	if !protocol.ValidRoomName(env.Room) {
		err = protocol.ErrInvalidRoomName
	} else {
		c.setID(env.Sender)
		err = h.registry.Join(c, env.Room, payload.Password, payload.IsHost)
	}

	if err != nil {
		slog.Info("join rejected", "room", env.Room, "host", payload.IsHost, "reason", err)
	} else if payload.IsHost {
		slog.Info("room created", "room", env.Room, "host", env.Sender)
	} else {
		slog.Info("client joined room", "room", env.Room, "id", env.Sender)
	}
	c.Deliver(joinedReply(env.Room, payload.IsHost, err))
}
