// Package protocol defines the control-channel wire format shared by the
// relay server and every device: the envelope, its kind-specific payloads,
// and the room name rules.
package protocol

import (
	"encoding/json"
	"regexp"
)

// Kind identifies the kind of control-channel envelope.
type Kind string

const (
	KindJoin          Kind = "join"
	KindJoined        Kind = "joined"
	KindSignal        Kind = "signal"
	KindHostAvailable Kind = "host_available"
	KindPlayerJoined  Kind = "player_joined"
	KindPlayerLeft    Kind = "player_left"
	KindGameStart     Kind = "game_start"
)

// Envelope is the unit of relay-forwarded data. The relay forwards `signal`
// envelopes verbatim to Target without inspecting Payload, and only within
// the sender's current room.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Sender  string          `json:"sender,omitempty"`
	Target  string          `json:"target,omitempty"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Signal payload types carried inside KindSignal envelopes. The first three
// are negotiation traffic; the rest are application-layer notifications that
// ride the same channel.
const (
	SignalOffer        = "offer"
	SignalAnswer       = "answer"
	SignalICECandidate = "ice_candidate"
	SignalJoinRequest  = "join_request"
	SignalPlayerJoined = "player_joined"
	SignalPlayerLeft   = "player_left"
)

// Join result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// JoinPayload is sent by a device requesting to create or enter a room.
type JoinPayload struct {
	Password string `json:"password,omitempty"`
	IsHost   bool   `json:"is_host"`
}

// JoinedPayload is the relay's reply to a join request.
type JoinedPayload struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SignalPayload wraps relayed negotiation data. Data is opaque to the relay.
type SignalPayload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// HostAvailablePayload is broadcast to a room when its host announces itself.
type HostAvailablePayload struct {
	HostID string `json:"host_id"`
}

// JoinRequestPayload is sent by a client to a discovered host to ask for an
// offer.
type JoinRequestPayload struct {
	PlayerName string `json:"player_name"`
}

// PlayerPayload carries a roster change notification.
type PlayerPayload struct {
	PlayerName string `json:"player_name"`
}

var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// ValidRoomName reports whether name satisfies the room naming rules:
// 3-20 characters, alphanumeric plus `-` and `_`.
func ValidRoomName(name string) bool {
	return roomNamePattern.MatchString(name)
}

// NewEnvelope builds an envelope of the given kind with a marshaled payload.
func NewEnvelope(kind Kind, payload any) (*Envelope, error) {
	env := &Envelope{Kind: kind}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, NewError("encode payload", err)
		}
		env.Payload = b
	}
	return env, nil
}

// NewSignal builds a signal envelope addressed to target within room.
func NewSignal(sender, target, room, signalType string, data any) (*Envelope, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, NewError("encode signal data", err)
		}
		raw = b
	}
	payload, err := json.Marshal(SignalPayload{Type: signalType, Data: raw})
	if err != nil {
		return nil, NewError("encode signal payload", err)
	}
	return &Envelope{
		Kind:    KindSignal,
		Sender:  sender,
		Target:  target,
		Room:    room,
		Payload: payload,
	}, nil
}

// Decode unmarshals the opaque signal data into v. Empty or undecodable
// data yields ErrMalformedEnvelope in the chain.
func (p SignalPayload) Decode(v any) error {
	if len(p.Data) == 0 {
		return WrapError("decode signal data", ErrMalformedEnvelope, "empty data")
	}
	if err := json.Unmarshal(p.Data, v); err != nil {
		return WrapError("decode signal data", ErrMalformedEnvelope, err.Error())
	}
	return nil
}

// DecodePayload decodes the envelope payload into v. An empty payload or an
// undecodable one yields ErrMalformedEnvelope in the chain.
func (e *Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return WrapError("decode payload", ErrMalformedEnvelope, "empty payload")
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return WrapError("decode payload", ErrMalformedEnvelope, err.Error())
	}
	return nil
}
