package rest

import (
	"fmt"
	"time"
)

// Authentication types

// User is the account record returned by the API.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Avatar    *string    `json:"avatar"`
	LastSeen  *time.Time `json:"lastSeen"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the user record plus its access token.
type LoginResponse struct {
	User
	Token string `json:"token"`
}

// Conversation types

// CheckConversationRequest looks up (or opens) the direct conversation
// between two users.
type CheckConversationRequest struct {
	SenderID   int64 `json:"senderId"`
	ReceiverID int64 `json:"receiverId"`
}

// ConversationInfo is returned by CheckConversation.
type ConversationInfo struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message history types

// MessageSender is the minimal author info attached to a message.
type MessageSender struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Avatar   *string `json:"avatar"`
}

// MessageInfo represents a single message in the history.
type MessageInfo struct {
	ID             string        `json:"id"`
	Content        string        `json:"content"`
	ConversationID string        `json:"conversationId"`
	SenderID       string        `json:"senderId"`
	Sender         MessageSender `json:"sender"`
	Type           string        `json:"type"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// MessagesResponse is one page of conversation history.
type MessagesResponse struct {
	Messages   []MessageInfo `json:"messages"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}
