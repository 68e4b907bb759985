package chatsocket

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseErrorCode(t *testing.T) {
	tests := map[string]ErrorCode{
		"unauthorized":           ErrorUnauthorized,
		"Authentication error":   ErrorUnauthorized,
		"conversation_not_found": ErrorConversationNotFound,
		"rate_limited":           ErrorRateLimited,
		"something else":         ErrorUnknown,
	}
	for in, want := range tests {
		if got := ParseErrorCode(in); got != want {
			t.Errorf("ParseErrorCode(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestFromProtocolErrorFallsBackToMessage(t *testing.T) {
	err := FromProtocolError(&Error{Msg: "Authentication error"})
	if err.Code != ErrorUnauthorized || err.Message != "Authentication error" {
		t.Fatalf("unexpected error: %+v", err)
	}
	if FromProtocolError(nil) != nil {
		t.Fatalf("nil protocol error should map to nil")
	}
}

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("dial: %w", WrapError(ErrorConnection, "refused", errors.New("econnrefused")))
	if !IsConnectionError(wrapped) || IsProtocolError(wrapped) || IsAuthError(wrapped) {
		t.Fatalf("connection error misclassified")
	}
	auth := FromProtocolError(&Error{Code: "unauthorized", Msg: "bad token"})
	if !IsAuthError(auth) || !IsProtocolError(auth) {
		t.Fatalf("auth error misclassified")
	}
	if !errors.Is(ErrAckTimeout, NewError(ErrorTimeout, "other text")) {
		t.Fatalf("Is should match on code")
	}
	if errors.Is(ErrNotConnected, ErrAckTimeout) {
		t.Fatalf("different codes must not match")
	}
	if IsConnectionError(errors.New("plain")) {
		t.Fatalf("plain error classified")
	}
}
