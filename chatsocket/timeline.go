package chatsocket

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const tempIDPrefix = "tmp-"

// Message is an entry of the local timeline. Pending entries were added
// optimistically and still carry their temporary id.
type Message struct {
	ID             string
	TempID         string
	ConversationID string
	SenderID       string
	Content        string
	Type           MessageType
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Sender         Sender
	Pending        bool
}

// MessageFromEvent converts a pushed message:new payload.
func MessageFromEvent(ev NewMessage) Message {
	return Message{
		ID:             ev.ID,
		ConversationID: ev.ConversationID,
		SenderID:       ev.SenderID,
		Content:        ev.Content,
		Type:           ev.Type,
		Metadata:       ev.Metadata,
		CreatedAt:      ev.CreatedAt,
		UpdatedAt:      ev.UpdatedAt,
		Sender:         ev.Sender,
	}
}

// IsTempID reports whether id was minted locally.
func IsTempID(id string) bool { return strings.HasPrefix(id, tempIDPrefix) }

// Timeline is the ordered message list of the current view.
type Timeline struct {
	mu   sync.RWMutex
	msgs []Message
	now  func() time.Time
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{now: time.Now}
}

// Seed puts fetched history in front. Entries already held whose id the
// history does not carry (live messages, pending sends) stay after it in
// their order.
func (t *Timeline) Seed(history []Message) {
	known := make(map[string]struct{}, len(history))
	for _, m := range history {
		known[m.ID] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	merged := make([]Message, 0, len(history)+len(t.msgs))
	merged = append(merged, history...)
	for _, m := range t.msgs {
		if _, dup := known[m.ID]; dup {
			continue
		}
		merged = append(merged, m)
	}
	t.msgs = merged
}

// Append adds a message as delivered. There is no dedup against pending
// entries; callers that need it match on Reconcile results.
func (t *Timeline) Append(m Message) {
	t.mu.Lock()
	t.msgs = append(t.msgs, m)
	t.mu.Unlock()
}

// AddPending appends an optimistic message under a fresh temporary id.
func (t *Timeline) AddPending(conversationID, senderID, content string) Message {
	id := tempIDPrefix + uuid.NewString()
	m := Message{
		ID:             id,
		TempID:         id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Type:           MessageText,
		CreatedAt:      t.now(),
		Pending:        true,
	}
	t.Append(m)
	return m
}

// Reconcile swaps the temporary id for the acknowledged one. It reports
// false when no pending entry carries tempID.
func (t *Timeline) Reconcile(tempID string, ack MessageAck) bool {
	if ack.ID == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.msgs {
		m := &t.msgs[i]
		if !m.Pending || m.TempID != tempID {
			continue
		}
		m.ID = ack.ID
		m.Pending = false
		if !ack.CreatedAt.IsZero() {
			m.CreatedAt = ack.CreatedAt
		}
		if ack.Content != "" {
			m.Content = ack.Content
		}
		return true
	}
	return false
}

// Pending returns the entries still waiting for an acknowledgment.
func (t *Timeline) Pending() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Message
	for _, m := range t.msgs {
		if m.Pending {
			out = append(out, m)
		}
	}
	return out
}

// Snapshot returns a copy of the timeline.
func (t *Timeline) Snapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Message(nil), t.msgs...)
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}
