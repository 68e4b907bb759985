package chatsocket

import "encoding/json"

const (
	ProtocolVersion = 1

	inboundHello = "hello"
	inboundEmit  = "emit"

	outboundWelcome = "welcome"
	outboundEvent   = "event"
	outboundAck     = "ack"
	outboundError   = "error"
)

// Inbound represents the envelope from client to server.
type Inbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Ack   uint64 `json:"ack,omitempty"`
}

// Outbound is the envelope server -> client.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   uint64          `json:"ack,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

// HelloPayload initiates the session.
type HelloPayload struct {
	Protocol int    `json:"protocol,omitempty"`
	Token    string `json:"token,omitempty"`
}

// WelcomePayload accepts the handshake.
type WelcomePayload struct {
	SID string `json:"sid,omitempty"`
}

// Error describes a protocol error.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Msg
}

// UnmarshalData decodes RawMessage into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
