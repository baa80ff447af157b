package signaling

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
)

type fakeWire struct {
	in   chan *protocol.Envelope
	sent chan *protocol.Envelope

	once sync.Once
}

func newFakeWire() *fakeWire {
	return &fakeWire{
		in:   make(chan *protocol.Envelope, 16),
		sent: make(chan *protocol.Envelope, 16),
	}
}

func (w *fakeWire) send(env *protocol.Envelope)     { w.sent <- env }
func (w *fakeWire) recv() <-chan *protocol.Envelope { return w.in }
func (w *fakeWire) close()                          { w.once.Do(func() { close(w.in) }) }

func (w *fakeWire) deliver(t *testing.T, env *protocol.Envelope) {
	t.Helper()
	select {
	case w.in <- env:
	case <-time.After(time.Second):
		t.Fatal("session not draining inbound envelopes")
	}
}

func waitSent(t *testing.T, w *fakeWire) *protocol.Envelope {
	t.Helper()
	select {
	case env := <-w.sent:
		return env
	case <-time.After(time.Second):
		t.Fatal("no envelope sent")
		return nil
	}
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func joinedEnvelope(t *testing.T, room, status, message string) *protocol.Envelope {
	t.Helper()
	env, err := protocol.NewEnvelope(protocol.KindJoined, protocol.JoinedPayload{Status: status, Message: message})
	if err != nil {
		t.Fatal(err)
	}
	env.Room = room
	return env
}

func TestJoinRecordedBeforeConnect(t *testing.T) {
	s := NewSession("wss://example.test/ws")
	defer s.Close()

	if err := s.JoinRoom("room1", "pw", false); err != nil {
		t.Fatal(err)
	}

	// The join issued while disconnected is flushed once the wire is up.
	w := newFakeWire()
	s.attach(w)

	env := waitSent(t, w)
	if env.Kind != protocol.KindJoin || env.Room != "room1" || env.Sender != s.ID() {
		t.Fatalf("unexpected join envelope: %+v", env)
	}
	var payload protocol.JoinPayload
	if err := env.DecodePayload(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.Password != "pw" || payload.IsHost {
		t.Fatalf("unexpected join payload: %+v", payload)
	}
}

func TestJoinRoomRejectsBadName(t *testing.T) {
	s := NewSession("wss://example.test/ws")
	defer s.Close()

	if err := s.JoinRoom("bad name!", "", false); !errors.Is(err, protocol.ErrInvalidRoomName) {
		t.Fatalf("expected ErrInvalidRoomName, got %v", err)
	}
}

func TestHostAnnouncesAfterJoinSuccess(t *testing.T) {
	s := NewSession("wss://example.test/ws")
	defer s.Close()

	results := make(chan JoinResult, 1)
	s.OnJoined(func(res JoinResult) { results <- res })

	if err := s.JoinRoom("room1", "", true); err != nil {
		t.Fatal(err)
	}
	w := newFakeWire()
	s.attach(w)

	if env := waitSent(t, w); env.Kind != protocol.KindJoin {
		t.Fatalf("first envelope = %s, want join", env.Kind)
	}

	w.deliver(t, joinedEnvelope(t, "room1", protocol.StatusSuccess, "Room created successfully"))

	// The announcement goes out the moment the room is confirmed.
	env := waitSent(t, w)
	if env.Kind != protocol.KindHostAvailable || env.Room != "room1" {
		t.Fatalf("unexpected announcement: %+v", env)
	}
	var payload protocol.HostAvailablePayload
	if err := env.DecodePayload(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.HostID != s.ID() {
		t.Fatalf("announced host id = %q, want own id", payload.HostID)
	}

	res := waitFor(t, results, "join result")
	if !res.Success || res.Room != "room1" {
		t.Fatalf("unexpected join result: %+v", res)
	}
	if s.State() != InRoom {
		t.Fatalf("state = %s, want in_room", s.State())
	}
}

func TestJoinFailureReported(t *testing.T) {
	s := NewSession("wss://example.test/ws")
	defer s.Close()

	results := make(chan JoinResult, 1)
	s.OnJoined(func(res JoinResult) { results <- res })

	if err := s.JoinRoom("room1", "", false); err != nil {
		t.Fatal(err)
	}
	w := newFakeWire()
	s.attach(w)
	waitSent(t, w)

	w.deliver(t, joinedEnvelope(t, "room1", protocol.StatusError, "Room not found"))

	res := waitFor(t, results, "join result")
	if res.Success || res.Message != "Room not found" {
		t.Fatalf("unexpected join result: %+v", res)
	}
	if s.State() != Connected {
		t.Fatalf("state = %s, want connected", s.State())
	}
}

func TestHostFoundFiltering(t *testing.T) {
	hostAvailable := func(t *testing.T, id string) *protocol.Envelope {
		env, err := protocol.NewEnvelope(protocol.KindHostAvailable, protocol.HostAvailablePayload{HostID: id})
		if err != nil {
			t.Fatal(err)
		}
		return env
	}

	t.Run("client hears another host", func(t *testing.T) {
		s := NewSession("wss://example.test/ws")
		defer s.Close()
		found := make(chan string, 1)
		s.OnHostFound(func(id string) { found <- id })

		w := newFakeWire()
		s.attach(w)
		w.deliver(t, hostAvailable(t, "other-host"))

		if id := waitFor(t, found, "host id"); id != "other-host" {
			t.Fatalf("host id = %q", id)
		}
	})

	t.Run("own announcement ignored", func(t *testing.T) {
		s := NewSession("wss://example.test/ws")
		defer s.Close()
		found := make(chan string, 1)
		s.OnHostFound(func(id string) { found <- id })

		w := newFakeWire()
		s.attach(w)
		w.deliver(t, hostAvailable(t, s.ID()))
		// Process a second envelope to prove the first was consumed.
		w.deliver(t, hostAvailable(t, "other-host"))

		if id := waitFor(t, found, "host id"); id != "other-host" {
			t.Fatalf("host id = %q, own announcement not filtered", id)
		}
	})

	t.Run("hosts ignore announcements", func(t *testing.T) {
		s := NewSession("wss://example.test/ws")
		defer s.Close()
		found := make(chan string, 1)
		s.OnHostFound(func(id string) { found <- id })
		if err := s.JoinRoom("room1", "", true); err != nil {
			t.Fatal(err)
		}

		w := newFakeWire()
		s.attach(w)
		waitSent(t, w)
		w.deliver(t, hostAvailable(t, "other-host"))

		select {
		case id := <-found:
			t.Fatalf("host session reported a discovered host %q", id)
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestRosterFollowsPlayerSignals(t *testing.T) {
	s := NewSession("wss://example.test/ws")
	defer s.Close()

	rosters := make(chan []string, 4)
	s.OnRosterChange(func(players []string) { rosters <- players })

	w := newFakeWire()
	s.attach(w)

	playerSignal := func(t *testing.T, signalType, name string) *protocol.Envelope {
		env, err := protocol.NewSignal("host", s.ID(), "room1", signalType, protocol.PlayerPayload{PlayerName: name})
		if err != nil {
			t.Fatal(err)
		}
		return env
	}

	w.deliver(t, playerSignal(t, protocol.SignalPlayerJoined, "alice"))
	if got := waitFor(t, rosters, "roster"); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("roster = %v", got)
	}

	w.deliver(t, playerSignal(t, protocol.SignalPlayerJoined, "bob"))
	if got := waitFor(t, rosters, "roster"); len(got) != 2 {
		t.Fatalf("roster = %v", got)
	}

	// A duplicate join changes nothing and fires no callback.
	w.deliver(t, playerSignal(t, protocol.SignalPlayerJoined, "alice"))
	w.deliver(t, playerSignal(t, protocol.SignalPlayerLeft, "alice"))
	if got := waitFor(t, rosters, "roster"); len(got) != 1 || got[0] != "bob" {
		t.Fatalf("roster = %v", got)
	}
}

func TestMalformedEnvelopesDropped(t *testing.T) {
	s := NewSession("wss://example.test/ws")
	defer s.Close()

	signals := make(chan *protocol.Envelope, 1)
	s.OnSignal(func(env *protocol.Envelope) { signals <- env })

	w := newFakeWire()
	s.attach(w)

	// Garbage payloads of every kind are dropped without killing the session.
	w.deliver(t, &protocol.Envelope{Kind: protocol.KindJoined, Payload: []byte(`{`)})
	w.deliver(t, &protocol.Envelope{Kind: protocol.KindHostAvailable})
	w.deliver(t, &protocol.Envelope{Kind: protocol.KindSignal, Payload: []byte(`no`)})
	w.deliver(t, &protocol.Envelope{Kind: "mystery"})

	env, err := protocol.NewSignal("host", s.ID(), "room1", protocol.SignalOffer, map[string]string{"sdp": "v=0"})
	if err != nil {
		t.Fatal(err)
	}
	w.deliver(t, env)

	got := waitFor(t, signals, "signal")
	if got.Sender != "host" {
		t.Fatalf("unexpected signal: %+v", got)
	}
}

func TestSendSignalPreconditions(t *testing.T) {
	s := NewSession("wss://example.test/ws")
	if err := s.SendSignal("host", protocol.SignalOffer, nil); !errors.Is(err, protocol.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}

	w := newFakeWire()
	s.attach(w)
	defer s.Close()
	if err := s.SendSignal("host", protocol.SignalOffer, nil); !errors.Is(err, protocol.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestDisconnectCallback(t *testing.T) {
	s := NewSession("wss://example.test/ws")
	dropped := make(chan struct{}, 1)
	s.OnDisconnect(func() { dropped <- struct{}{} })

	w := newFakeWire()
	s.attach(w)
	w.close()

	waitFor(t, dropped, "disconnect callback")
	if s.State() != Disconnected {
		t.Fatalf("state = %s, want disconnected", s.State())
	}

	// Closing again is a no-op.
	s.Close()
}

func TestDispatchCarriesCallbacks(t *testing.T) {
	ran := make(chan func(), 8)
	s := NewSession("wss://example.test/ws", WithDispatch(func(f func()) { ran <- f }))
	defer s.Close()

	results := make(chan JoinResult, 1)
	s.OnJoined(func(res JoinResult) { results <- res })

	w := newFakeWire()
	s.attach(w)
	w.deliver(t, joinedEnvelope(t, "room1", protocol.StatusSuccess, "Joined room successfully"))

	// Nothing fires until the dispatcher runs the queued callback.
	select {
	case <-results:
		t.Fatal("callback ran outside the dispatcher")
	case f := <-ran:
		f()
	case <-time.After(time.Second):
		t.Fatal("no callback dispatched")
	}
	res := waitFor(t, results, "join result")
	if !res.Success {
		t.Fatalf("unexpected join result: %+v", res)
	}
}
