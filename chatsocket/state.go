package chatsocket

// Status represents the current state of the realtime connection.
type Status int

const (
	// StatusDisconnected means no transport is held, either before the first
	// connect, after a drop that is not retried, or after teardown.
	StatusDisconnected Status = iota

	// StatusConnecting means a dial or handshake is in progress, including
	// reconnection attempts.
	StatusConnecting

	// StatusConnected means the handshake succeeded and emits go out.
	StatusConnected

	// StatusError means the last connect attempt failed.
	StatusError
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// live reports whether Initialize should hand the connection back as is.
func (s Status) live() bool {
	return s == StatusConnecting || s == StatusConnected
}

// DisconnectReason tags why a transport went away.
type DisconnectReason string

const (
	ReasonClientDisconnect DisconnectReason = "io client disconnect"
	ReasonServerDisconnect DisconnectReason = "io server disconnect"
	ReasonTransportClose   DisconnectReason = "transport close"
	ReasonTransportError   DisconnectReason = "transport error"
)

// Retryable reports whether the reconnection policy applies to the reason.
// A server-initiated disconnect usually means the session must
// re-authenticate, so it is surfaced and left alone.
func (r DisconnectReason) Retryable() bool {
	return r == ReasonTransportClose || r == ReasonTransportError
}

// StateEvent represents a status change.
type StateEvent struct {
	OldStatus Status
	NewStatus Status
	Error     error // Optional error that caused the change
}
