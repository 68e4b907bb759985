package chatsocket

import (
	"context"

	"github.com/vovakirdan/chatsocket-go/chatsocket/rest"
)

// HistorySource fetches conversation history; *rest.Client satisfies it.
type HistorySource interface {
	ConversationMessages(ctx context.Context, conversationID string) (*rest.MessagesResponse, error)
}

// MessageFromHistory converts a history record.
func MessageFromHistory(m rest.MessageInfo) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Type:           MessageType(m.Type),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		Sender: Sender{
			ID:       m.Sender.ID,
			Username: m.Sender.Username,
			Email:    m.Sender.Email,
			Avatar:   m.Sender.Avatar,
		},
	}
}

// LoadHistory seeds the timeline with the current conversation's history.
// Messages pushed or sent while the fetch was in flight stay after it.
func (s *Session) LoadHistory(ctx context.Context, src HistorySource) error {
	conv := s.Conversation()
	if conv == "" {
		return ErrInvalidConversation
	}
	page, err := src.ConversationMessages(ctx, conv)
	if err != nil {
		return WrapError(ErrorConnection, "fetch history", err)
	}
	msgs := make([]Message, 0, len(page.Messages))
	for _, m := range page.Messages {
		msgs = append(msgs, MessageFromHistory(m))
	}
	s.timeline.Seed(msgs)
	s.logger.Debug().Str("conversation", conv).Int("messages", len(msgs)).Msg("history loaded")
	return nil
}
