package lobby

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dodomondo0/fool-p2p-app/internal/config"
	"github.com/dodomondo0/fool-p2p-app/internal/peer"
	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
	"github.com/dodomondo0/fool-p2p-app/internal/signaling"
)

// Client joins an existing room: it waits for the host's announcement, asks
// it for an offer, answers it, and then mirrors the roster the host sends
// over the data channel.
type Client struct {
	session   controlSession
	transport peer.Transport
	room      string
	password  string
	name      string
	dispatch  func(func())
	lost      chan struct{}

	mu     sync.Mutex
	hostID string
	p      *peer.ClientPeer
	roster signaling.Roster

	onJoined       func(signaling.JoinResult)
	onRosterChange func([]string)
	onGameStart    func(name string, params map[string]any)
	onChat         func(from, text string)
	onPeerState    func(peer.ConnectionState)
}

// NewClient creates a client lobby for room. Callbacks registered on the
// client run through dispatch; pass nil to run them inline.
func NewClient(cfg *config.Config, room, password string, dispatch func(func())) *Client {
	dispatch = inlineDispatch(dispatch)
	session := signaling.NewSession(cfg.WebSocketURL, signaling.WithDispatch(dispatch))
	return newClient(session, peer.NewPionTransport(cfg), room, password, cfg.PlayerName, dispatch)
}

func newClient(session controlSession, transport peer.Transport, room, password, name string, dispatch func(func())) *Client {
	c := &Client{
		session:   session,
		transport: transport,
		room:      room,
		password:  password,
		name:      name,
		dispatch:  inlineDispatch(dispatch),
		lost:      make(chan struct{}, 1),
	}

	c.session.OnJoined(func(res signaling.JoinResult) {
		if c.onJoined != nil {
			c.onJoined(res)
		}
	})
	c.session.OnHostFound(c.handleHostFound)
	c.session.OnSignal(c.handleSignal)
	c.session.OnDisconnect(func() { notify(c.lost) })

	return c
}

// OnJoined registers the callback for join results.
func (c *Client) OnJoined(fn func(signaling.JoinResult)) { c.onJoined = fn }

// OnRosterChange registers the callback fired with a roster snapshot.
func (c *Client) OnRosterChange(fn func([]string)) { c.onRosterChange = fn }

// OnGameStart registers the callback fired when the host launches a game.
func (c *Client) OnGameStart(fn func(name string, params map[string]any)) { c.onGameStart = fn }

// OnChat registers the callback for inbound chat lines.
func (c *Client) OnChat(fn func(from, text string)) { c.onChat = fn }

// OnPeerState registers the callback for transport state changes toward the
// host.
func (c *Client) OnPeerState(fn func(peer.ConnectionState)) { c.onPeerState = fn }

// Run joins the room and keeps the relay connection alive until ctx is
// cancelled, reconnecting on a fixed interval whenever it drops.
func (c *Client) Run(ctx context.Context) error {
	if err := c.session.JoinRoom(c.room, c.password, false); err != nil {
		return err
	}
	return runSession(ctx, c.session, c.lost)
}

// Roster returns a snapshot of the roster as announced by the host.
func (c *Client) Roster() []string {
	return c.roster.Snapshot()
}

// handleHostFound asks the announced host for an offer.
func (c *Client) handleHostFound(hostID string) {
	c.mu.Lock()
	c.hostID = hostID
	c.mu.Unlock()

	slog.Info("host discovered", "host", hostID)
	err := c.session.SendSignal(hostID, protocol.SignalJoinRequest, protocol.JoinRequestPayload{PlayerName: c.name})
	if err != nil {
		slog.Warn("join request not sent", "host", hostID, "error", err)
	}
}

func (c *Client) handleSignal(env *protocol.Envelope) {
	var payload protocol.SignalPayload
	if err := env.DecodePayload(&payload); err != nil {
		slog.Warn("dropping malformed signal", "sender", env.Sender, "error", err)
		return
	}

	switch payload.Type {
	case protocol.SignalOffer:
		var offer webrtc.SessionDescription
		if err := payload.Decode(&offer); err != nil {
			slog.Warn("dropping malformed offer", "sender", env.Sender)
			return
		}
		c.handleOffer(env.Sender, offer)

	case protocol.SignalICECandidate:
		var cand webrtc.ICECandidateInit
		if err := payload.Decode(&cand); err != nil {
			slog.Warn("dropping malformed candidate", "sender", env.Sender)
			return
		}
		c.mu.Lock()
		p := c.p
		c.mu.Unlock()
		if p == nil {
			slog.Debug("candidate before offer dropped", "sender", env.Sender)
			return
		}
		if err := p.AddRemoteCandidate(cand); err != nil {
			slog.Warn("candidate rejected", "sender", env.Sender, "error", err)
		}

	default:
		slog.Debug("ignoring signal of unexpected type", "type", payload.Type)
	}
}

// handleOffer answers the host's offer over a fresh transport. A dead
// previous transport is replaced; a live one refuses the offer.
func (c *Client) handleOffer(hostID string, offer webrtc.SessionDescription) {
	c.mu.Lock()
	if c.p != nil && c.p.State() != peer.StateClosed {
		c.mu.Unlock()
		slog.Warn("offer refused, transport already live", "host", hostID)
		return
	}
	p := peer.NewClientPeer(c.transport, hostID)
	c.p = p
	c.hostID = hostID
	c.mu.Unlock()

	p.OnCandidate(func(cand webrtc.ICECandidateInit) {
		if err := c.session.SendSignal(hostID, protocol.SignalICECandidate, cand); err != nil {
			slog.Debug("candidate not relayed", "host", hostID, "error", err)
		}
	})
	p.OnStateChange(c.handlePeerState)
	p.OnMessage(c.handleMessage)

	answer, err := p.AcceptOffer(offer)
	if err != nil {
		slog.Warn("offer rejected", "host", hostID, "error", err)
		p.Close()
		return
	}
	if err := c.session.SendSignal(hostID, protocol.SignalAnswer, answer); err != nil {
		slog.Warn("answer not relayed", "host", hostID, "error", err)
		p.Close()
	}
}

func (c *Client) handlePeerState(state peer.ConnectionState) {
	slog.Info("host transport state", "state", state.String())
	if c.onPeerState != nil {
		fn := c.onPeerState
		c.dispatch(func() { fn(state) })
	}
}

func (c *Client) handleMessage(msg peer.Message) {
	switch msg.Type {
	case peer.MsgPlayerJoined, peer.MsgPlayerLeft:
		var player peer.PlayerPayload
		if err := msg.DecodePayload(&player); err != nil || player.PlayerName == "" {
			slog.Warn("dropping malformed player notification", "type", msg.Type)
			return
		}
		changed := false
		if msg.Type == peer.MsgPlayerJoined {
			changed = c.roster.Add(player.PlayerName)
		} else {
			changed = c.roster.Remove(player.PlayerName)
		}
		if changed && c.onRosterChange != nil {
			snapshot := c.roster.Snapshot()
			fn := c.onRosterChange
			c.dispatch(func() { fn(snapshot) })
		}

	case peer.MsgGameStart:
		var start peer.GameStartPayload
		if err := msg.DecodePayload(&start); err != nil {
			slog.Warn("dropping malformed game start")
			return
		}
		if c.onGameStart != nil {
			fn := c.onGameStart
			c.dispatch(func() { fn(start.Game, start.Params) })
		}

	case peer.MsgChat:
		var chat peer.ChatPayload
		if err := msg.DecodePayload(&chat); err != nil {
			slog.Warn("dropping malformed chat message")
			return
		}
		if c.onChat != nil {
			fn := c.onChat
			c.dispatch(func() { fn(chat.From, chat.Text) })
		}

	default:
		slog.Debug("ignoring message of unexpected type", "type", msg.Type)
	}
}

// SendChat sends a chat line to the host, which fans it out to the other
// players. It reports whether the line was sent.
func (c *Client) SendChat(text string) bool {
	c.mu.Lock()
	p := c.p
	c.mu.Unlock()
	if p == nil {
		return false
	}

	msg, err := peer.NewMessage(peer.MsgChat, peer.ChatPayload{From: c.name, Text: text})
	if err != nil {
		slog.Error("failed to encode chat message", "error", err)
		return false
	}
	return p.Send(msg)
}

// Close tears down the host transport and the relay connection.
func (c *Client) Close() {
	c.mu.Lock()
	p := c.p
	c.p = nil
	c.mu.Unlock()

	if p != nil {
		p.Close()
	}
	c.session.Close()
}
