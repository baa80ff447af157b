package peer

import (
	"errors"
	"testing"

	"github.com/pion/webrtc/v4"
)

func acceptOffer(t *testing.T, c *ClientPeer) webrtc.SessionDescription {
	t.Helper()
	answer, err := c.AcceptOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"})
	if err != nil {
		t.Fatal(err)
	}
	return answer
}

func TestClientPeerAcceptOffer(t *testing.T) {
	ft := newFakeTransport()
	c := NewClientPeer(ft, "host")

	answer := acceptOffer(t, c)
	if answer.Type != webrtc.SDPTypeAnswer {
		t.Fatalf("answer type = %s", answer.Type)
	}
	if c.State() != StateNegotiating {
		t.Fatalf("state = %s, want negotiating", c.State())
	}

	// A second offer is refused while the session is live.
	if _, err := c.AcceptOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer}); err == nil {
		t.Fatal("expected error for duplicate offer")
	}
}

func TestClientPeerSendGating(t *testing.T) {
	ft := newFakeTransport()
	c := NewClientPeer(ft, "host")
	msg := mustMessage(t, MsgChat, ChatPayload{From: "misha", Text: "hi"})

	if c.Send(msg) {
		t.Fatal("send before negotiation succeeded")
	}

	acceptOffer(t, c)
	fs := ft.session("host")
	if c.Send(msg) {
		t.Fatal("send before connected succeeded")
	}

	fs.connect()
	if c.State() != StateConnected {
		t.Fatalf("state = %s, want connected", c.State())
	}
	if !c.Send(msg) {
		t.Fatal("send after connect failed")
	}
	if len(fs.sent) != 1 {
		t.Fatalf("frames sent = %d, want 1", len(fs.sent))
	}
}

func TestClientPeerTransportFailure(t *testing.T) {
	ft := newFakeTransport()
	c := NewClientPeer(ft, "host")

	var states []ConnectionState
	c.OnStateChange(func(state ConnectionState) { states = append(states, state) })

	acceptOffer(t, c)
	fs := ft.session("host")
	fs.connect()
	fs.onState(webrtc.PeerConnectionStateDisconnected)

	if c.State() != StateClosed {
		t.Fatalf("state = %s, want closed", c.State())
	}
	if fs.closed != 1 {
		t.Fatalf("session closed %d times, want 1", fs.closed)
	}
	if len(states) != 2 || states[0] != StateConnected || states[1] != StateClosed {
		t.Fatalf("state notifications = %v", states)
	}

	// Closed is absorbing: a late connected event cannot revive the peer.
	fs.onState(webrtc.PeerConnectionStateConnected)
	if c.State() != StateClosed {
		t.Fatalf("state = %s after late event, want closed", c.State())
	}

	// A fresh offer starts a new session after the old one died.
	if _, err := c.AcceptOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"}); err != nil {
		t.Fatal(err)
	}
}

func TestClientPeerLateCandidate(t *testing.T) {
	ft := newFakeTransport()
	c := NewClientPeer(ft, "host")

	if err := c.AddRemoteCandidate(webrtc.ICECandidateInit{Candidate: "c"}); err != nil {
		t.Fatalf("candidate before offer raised %v", err)
	}

	acceptOffer(t, c)
	if err := c.AddRemoteCandidate(webrtc.ICECandidateInit{Candidate: "c"}); err != nil {
		t.Fatal(err)
	}
	if got := len(ft.session("host").candidates); got != 1 {
		t.Fatalf("candidates = %d, want 1", got)
	}

	c.Close()
	if err := c.AddRemoteCandidate(webrtc.ICECandidateInit{Candidate: "c"}); err != nil {
		t.Fatalf("candidate after close raised %v", err)
	}
	c.Close()
}

func TestClientPeerAnswerFailure(t *testing.T) {
	failing := &fakeSession{offerErr: errors.New("bad sdp")}
	c := NewClientPeer(transportFunc(func(string) (TransportSession, error) {
		return failing, nil
	}), "host")

	if _, err := c.AcceptOffer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer}); err == nil {
		t.Fatal("expected answer error")
	}
	if c.State() != StateClosed {
		t.Fatalf("state = %s after failed answer, want closed", c.State())
	}
	if failing.closed == 0 {
		t.Fatal("failed answer left the session open")
	}
}
