package lobby

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/dodomondo0/fool-p2p-app/internal/config"
	"github.com/dodomondo0/fool-p2p-app/internal/game"
	"github.com/dodomondo0/fool-p2p-app/internal/peer"
	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
	"github.com/dodomondo0/fool-p2p-app/internal/signaling"
)

// Host owns a room: it registers it on the relay, negotiates one transport
// per joining client, keeps the roster, and launches the game.
//
// The canonical roster lives in the signaling session and is only mutated by
// its envelope handler, so roster changes the host itself detects (a client's
// transport coming up or going down) are sent as signals addressed back to
// the host through the relay.
type Host struct {
	session  controlSession
	mgr      *peer.Manager
	room     string
	password string
	name     string
	dispatch func(func())
	lost     chan struct{}

	mu    sync.Mutex
	names map[string]string // clientID -> player name, set at join_request

	onJoined       func(signaling.JoinResult)
	onRosterChange func([]string)
	onChat         func(from, text string)
}

// NewHost creates a host lobby for room. Callbacks registered on the host
// run through dispatch; pass nil to run them inline.
func NewHost(cfg *config.Config, room, password string, dispatch func(func())) *Host {
	dispatch = inlineDispatch(dispatch)
	session := signaling.NewSession(cfg.WebSocketURL, signaling.WithDispatch(dispatch))
	return newHost(session, peer.NewManager(peer.NewPionTransport(cfg)), room, password, cfg.PlayerName, dispatch)
}

func newHost(session controlSession, mgr *peer.Manager, room, password, name string, dispatch func(func())) *Host {
	h := &Host{
		session:  session,
		mgr:      mgr,
		room:     room,
		password: password,
		name:     name,
		dispatch: inlineDispatch(dispatch),
		lost:     make(chan struct{}, 1),
		names:    make(map[string]string),
	}

	h.session.OnJoined(h.handleJoined)
	h.session.OnSignal(h.handleSignal)
	h.session.OnRosterChange(func(players []string) {
		if h.onRosterChange != nil {
			h.onRosterChange(players)
		}
	})
	h.session.OnDisconnect(func() { notify(h.lost) })

	h.mgr.OnCandidate(func(clientID string, cand webrtc.ICECandidateInit) {
		if err := h.session.SendSignal(clientID, protocol.SignalICECandidate, cand); err != nil {
			slog.Debug("candidate not relayed", "client", clientID, "error", err)
		}
	})
	h.mgr.OnPeerStateChange(h.handlePeerState)
	h.mgr.OnMessage(h.handleMessage)

	return h
}

// OnJoined registers the callback for room registration results.
func (h *Host) OnJoined(fn func(signaling.JoinResult)) { h.onJoined = fn }

// OnRosterChange registers the callback fired with a roster snapshot.
func (h *Host) OnRosterChange(fn func([]string)) { h.onRosterChange = fn }

// OnChat registers the callback for inbound chat lines.
func (h *Host) OnChat(fn func(from, text string)) { h.onChat = fn }

// Run registers the room and keeps the relay connection alive until ctx is
// cancelled, reconnecting on a fixed interval whenever it drops.
func (h *Host) Run(ctx context.Context) error {
	if err := h.session.JoinRoom(h.room, h.password, true); err != nil {
		return err
	}
	return runSession(ctx, h.session, h.lost)
}

// Roster returns a snapshot of the current player roster.
func (h *Host) Roster() []string {
	return h.session.Roster()
}

func (h *Host) handleJoined(res signaling.JoinResult) {
	// The host counts as a player the moment the room exists.
	if res.Success {
		h.signalSelf(protocol.SignalPlayerJoined, h.name)
	}
	if h.onJoined != nil {
		h.onJoined(res)
	}
}

func (h *Host) handleSignal(env *protocol.Envelope) {
	var payload protocol.SignalPayload
	if err := env.DecodePayload(&payload); err != nil {
		slog.Warn("dropping malformed signal", "sender", env.Sender, "error", err)
		return
	}

	switch payload.Type {
	case protocol.SignalJoinRequest:
		var req protocol.JoinRequestPayload
		if err := payload.Decode(&req); err != nil || req.PlayerName == "" {
			slog.Warn("dropping malformed join request", "sender", env.Sender)
			return
		}
		h.admit(env.Sender, req.PlayerName)

	case protocol.SignalAnswer:
		var answer webrtc.SessionDescription
		if err := payload.Decode(&answer); err != nil {
			slog.Warn("dropping malformed answer", "sender", env.Sender)
			return
		}
		if err := h.mgr.AcceptAnswer(env.Sender, answer); err != nil {
			slog.Warn("answer rejected", "client", env.Sender, "error", err)
		}

	case protocol.SignalICECandidate:
		var cand webrtc.ICECandidateInit
		if err := payload.Decode(&cand); err != nil {
			slog.Warn("dropping malformed candidate", "sender", env.Sender)
			return
		}
		if err := h.mgr.AddRemoteCandidate(env.Sender, cand); err != nil {
			slog.Warn("candidate rejected", "client", env.Sender, "error", err)
		}

	default:
		slog.Debug("ignoring signal of unexpected type", "type", payload.Type)
	}
}

// admit starts negotiation with a client that asked to join and relays the
// offer back to it.
func (h *Host) admit(clientID, playerName string) {
	h.mu.Lock()
	h.names[clientID] = playerName
	h.mu.Unlock()

	offer, err := h.mgr.BeginNegotiation(clientID)
	if err != nil {
		slog.Warn("negotiation refused", "client", clientID, "error", err)
		return
	}
	if err := h.session.SendSignal(clientID, protocol.SignalOffer, offer); err != nil {
		slog.Warn("offer not relayed", "client", clientID, "error", err)
		h.mgr.Disconnect(clientID)
		return
	}
	h.mgr.OfferSent(clientID)
	slog.Info("offer sent", "client", clientID, "player", playerName)
}

func (h *Host) handlePeerState(clientID string, state peer.ConnectionState) {
	switch state {
	case peer.StateConnected:
		h.welcome(clientID)
	case peer.StateClosed:
		h.farewell(clientID)
	}
}

// welcome runs when a client's data channel comes up: it updates the
// canonical roster, catches the new arrival up on who is already here, and
// tells everyone else about the new player.
func (h *Host) welcome(clientID string) {
	h.mu.Lock()
	name := h.names[clientID]
	h.mu.Unlock()
	if name == "" {
		return
	}

	h.signalSelf(protocol.SignalPlayerJoined, name)

	// Catch the new arrival up on the roster, its own name included; the
	// join signal above usually has not round-tripped through the relay yet.
	caughtUp := false
	for _, existing := range h.session.Roster() {
		if existing == name {
			caughtUp = true
		}
		h.sendPlayer(clientID, peer.MsgPlayerJoined, existing)
	}
	if !caughtUp {
		h.sendPlayer(clientID, peer.MsgPlayerJoined, name)
	}
	if msg, err := peer.NewMessage(peer.MsgPlayerJoined, peer.PlayerPayload{PlayerName: name}); err == nil {
		h.mgr.Broadcast(msg, clientID)
	}
	slog.Info("player connected", "player", name)
}

func (h *Host) sendPlayer(clientID, msgType, playerName string) {
	if msg, err := peer.NewMessage(msgType, peer.PlayerPayload{PlayerName: playerName}); err == nil {
		h.mgr.Send(clientID, msg)
	}
}

func (h *Host) farewell(clientID string) {
	h.mu.Lock()
	name := h.names[clientID]
	delete(h.names, clientID)
	h.mu.Unlock()
	if name == "" {
		return
	}

	h.signalSelf(protocol.SignalPlayerLeft, name)

	if msg, err := peer.NewMessage(peer.MsgPlayerLeft, peer.PlayerPayload{PlayerName: name}); err == nil {
		h.mgr.Broadcast(msg, "")
	}
	slog.Info("player disconnected", "player", name)
}

// signalSelf routes a roster change through the relay back to our own
// session so the envelope handler performs the mutation.
func (h *Host) signalSelf(signalType, playerName string) {
	err := h.session.SendSignal(h.session.ID(), signalType, protocol.PlayerPayload{PlayerName: playerName})
	if err != nil {
		slog.Debug("roster signal not sent", "player", playerName, "error", err)
	}
}

func (h *Host) handleMessage(clientID string, msg peer.Message) {
	switch msg.Type {
	case peer.MsgChat:
		var chat peer.ChatPayload
		if err := msg.DecodePayload(&chat); err != nil {
			slog.Warn("dropping malformed chat message", "client", clientID)
			return
		}
		// Fan a client's chat line out to the other players.
		h.mgr.Broadcast(msg, clientID)
		if h.onChat != nil {
			fn := h.onChat
			h.dispatch(func() { fn(chat.From, chat.Text) })
		}

	default:
		slog.Debug("ignoring message of unexpected type", "client", clientID, "type", msg.Type)
	}
}

// StartGame deals the named game for the current roster and announces the
// start to every connected player.
func (h *Host) StartGame(name string, params game.Params) (*game.Table, error) {
	players := len(h.session.Roster())
	params.Players = players

	g, err := game.New(name, params)
	if err != nil {
		return nil, err
	}
	table, err := g.Deal(players)
	if err != nil {
		return nil, err
	}

	msg, err := peer.NewMessage(peer.MsgGameStart, peer.GameStartPayload{
		Game: name,
		Params: map[string]any{
			"mode":      params.Mode,
			"deck_size": params.DeckSize,
			"players":   players,
		},
	})
	if err != nil {
		return nil, err
	}
	h.mgr.Broadcast(msg, "")
	slog.Info("game started", "game", name, "players", players)
	return table, nil
}

// SendChat broadcasts a chat line from the host to every connected player.
func (h *Host) SendChat(text string) {
	msg, err := peer.NewMessage(peer.MsgChat, peer.ChatPayload{From: h.name, Text: text})
	if err != nil {
		slog.Error("failed to encode chat message", "error", err)
		return
	}
	h.mgr.Broadcast(msg, "")
}

// Close tears down every client transport and the relay connection.
func (h *Host) Close() {
	h.mgr.CloseAll()
	h.session.Close()
}
