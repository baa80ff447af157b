package peer

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dodomondo0/fool-p2p-app/internal/protocol"
)

// Data-channel message types. These flow host<->client directly once the
// transport is live; the relay never sees them.
const (
	MsgPlayerJoined = "player_joined"
	MsgPlayerLeft   = "player_left"
	MsgGameStart    = "game_start"
	MsgGameMove     = "game_move"
	MsgChat         = "chat"
)

// Message frames all data-channel traffic.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// PlayerPayload announces a roster change to connected players.
type PlayerPayload struct {
	PlayerName string `msgpack:"player_name"`
}

// GameStartPayload launches a game on every connected client.
type GameStartPayload struct {
	Game   string         `msgpack:"game"`
	Params map[string]any `msgpack:"params,omitempty"`
}

// ChatPayload carries a lobby chat line.
type ChatPayload struct {
	From string `msgpack:"from"`
	Text string `msgpack:"text"`
}

// NewMessage builds a message with a msgpack-encoded payload.
func NewMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, protocol.NewError("encode message payload", err)
	}
	return Message{Type: t, Payload: b}, nil
}

// DecodePayload decodes the message payload into v.
func (m Message) DecodePayload(v any) error {
	if err := msgpack.Unmarshal(m.Payload, v); err != nil {
		return protocol.WrapError("decode message payload", protocol.ErrMalformedEnvelope, err.Error())
	}
	return nil
}

// EncodeMessage serializes a message for the wire.
func EncodeMessage(m Message) ([]byte, error) {
	b, err := msgpack.Marshal(m)
	if err != nil {
		return nil, protocol.NewError("encode message", err)
	}
	return b, nil
}

// DecodeMessage parses one wire frame.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return Message{}, protocol.WrapError("decode message", protocol.ErrMalformedEnvelope, err.Error())
	}
	return m, nil
}
