package chatsocket

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	// Protocol Errors (from server error responses)
	ErrorUnknown ErrorCode = iota
	ErrorUnsupportedVersion
	ErrorUnauthorized
	ErrorBadRequest
	ErrorConversationNotFound
	ErrorNotInConversation
	ErrorAccessDenied
	ErrorRateLimited
	ErrorInternalServer

	// Client-side Errors
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorSerialization
	ErrorInvalidConversation
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorUnsupportedVersion:
		return "unsupported_version"
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorConversationNotFound:
		return "conversation_not_found"
	case ErrorNotInConversation:
		return "not_in_conversation"
	case ErrorAccessDenied:
		return "access_denied"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorInternalServer:
		return "internal_error"
	case ErrorConnection:
		return "connection_error"
	case ErrorDisconnected:
		return "disconnected"
	case ErrorTimeout:
		return "timeout"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorInvalidConversation:
		return "invalid_conversation"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ParseErrorCode converts a protocol error code string to ErrorCode.
func ParseErrorCode(code string) ErrorCode {
	switch code {
	case "unsupported_version":
		return ErrorUnsupportedVersion
	case "unauthorized", "Authentication error":
		return ErrorUnauthorized
	case "bad_request":
		return ErrorBadRequest
	case "conversation_not_found":
		return ErrorConversationNotFound
	case "not_in_conversation":
		return ErrorNotInConversation
	case "access_denied":
		return ErrorAccessDenied
	case "rate_limited":
		return ErrorRateLimited
	case "internal_error":
		return ErrorInternalServer
	default:
		return ErrorUnknown
	}
}

var (
	// ErrNotConnected is returned by emits attempted without a live transport.
	ErrNotConnected = NewError(ErrorNotConnected, "socket is not connected")
	// ErrInvalidConversation marks a missing or blank conversation id.
	ErrInvalidConversation = NewError(ErrorInvalidConversation, "missing conversation id")
	// ErrAckTimeout marks an acknowledgment that did not arrive in time.
	ErrAckTimeout = NewError(ErrorTimeout, "acknowledgment timed out")
)

// ChatError is a structured error with code and context.
type ChatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ChatError) Unwrap() error {
	return e.Wrapped
}

// Is matches any *ChatError carrying the same code.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new ChatError with the given code and message.
func NewError(code ErrorCode, message string) *ChatError {
	return &ChatError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a ChatError.
func WrapError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// FromProtocolError converts a protocol Error to ChatError.
func FromProtocolError(e *Error) *ChatError {
	if e == nil {
		return nil
	}
	code := ParseErrorCode(e.Code)
	if code == ErrorUnknown {
		// some servers only fill the message
		code = ParseErrorCode(e.Msg)
	}
	return &ChatError{
		Code:    code,
		Message: e.Msg,
	}
}

// IsProtocolError checks if an error is a protocol error (from server).
func IsProtocolError(err error) bool {
	var ce *ChatError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code >= ErrorUnsupportedVersion && ce.Code <= ErrorInternalServer
}

// IsConnectionError checks if an error is a connection-related error.
func IsConnectionError(err error) bool {
	var ce *ChatError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == ErrorConnection || ce.Code == ErrorDisconnected || ce.Code == ErrorTimeout
}

// IsAuthError reports a rejected handshake; retrying with the same token is pointless.
func IsAuthError(err error) bool {
	var ce *ChatError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == ErrorUnauthorized
}
