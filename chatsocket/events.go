package chatsocket

import "time"

// Client -> server events.
const (
	EventUserJoin          = "user:join"
	EventMessageSend       = "message:send"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
)

// Server -> client events.
const (
	EventUserOnline  = "user:online"
	EventUserOffline = "user:offline"
	EventMessageNew  = "message:new"
	EventTypingUser  = "typing:user"
)

// Local lifecycle events. They never travel on the wire but are delivered
// through the same registry as server events.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventConnectError    = "connect_error"
	EventReconnectFailed = "reconnect_failed"
)

// UserJoinPayload announces the user after connecting.
type UserJoinPayload struct {
	UserID string `json:"userId"`
}

// SendMessagePayload is emitted with message:send.
type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

// ConversationPayload scopes typing and room events.
type ConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

// MessageAck is the server acknowledgment of message:send.
type MessageAck struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	Error          string    `json:"error,omitempty"`
}

// UserOnline is pushed with user:online.
type UserOnline struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// UserOffline is pushed with user:offline.
type UserOffline struct {
	UserID string `json:"userId"`
}

// MessageType is the content kind of a message.
type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
	MessageFile  MessageType = "FILE"
)

// Sender is the minimal author info shipped with a message.
type Sender struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Avatar   *string `json:"avatar"`
}

// ConversationRef identifies the conversation a message belongs to.
type ConversationRef struct {
	ID   string  `json:"id"`
	Name *string `json:"name"`
	Type string  `json:"type"` // DIRECT or GROUP
}

// NewMessage is pushed with message:new.
type NewMessage struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	Content        string          `json:"content"`
	Type           MessageType     `json:"type"`
	Metadata       map[string]any  `json:"metadata"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	Sender         Sender          `json:"sender"`
	Conversation   ConversationRef `json:"conversation"`
}

// TypingUser is pushed with typing:user.
type TypingUser struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	IsTyping       bool   `json:"isTyping"`

	// ReceivedAt is stamped locally when the signal arrives.
	ReceivedAt time.Time `json:"-"`
}
