package chatsocket

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultAckTimeout    = 5 * time.Second
	DefaultTypingTimeout = 3 * time.Second
)

// SessionOptions configures a Session. Zero durations take the defaults.
type SessionOptions struct {
	// UserID announced with user:join. When empty the session asks the
	// socket (see Conn.UserID).
	UserID        string
	AckTimeout    time.Duration
	TypingTimeout time.Duration
	Logger        *zerolog.Logger

	OnNewMessage  func(NewMessage)
	OnUserTyping  func(TypingUser)
	OnUserOnline  func(UserOnline)
	OnUserOffline func(UserOffline)
}

// Session is the conversation-scoped view of a connection: which room is
// held, whether the local user is typing, who else is typing or online and
// the message timeline.
type Session struct {
	sock     Socket
	opts     SessionOptions
	logger   zerolog.Logger
	timeline *Timeline

	// roomMu keeps leave/join pairs from interleaving.
	roomMu sync.Mutex

	mu           sync.Mutex
	userID       string
	conversation string
	joined       string
	announced    bool
	typing       bool
	typingTimer  *time.Timer
	typingGen    uint64
	typingUsers  map[string]TypingUser
	online       map[string]struct{}
	listeners    map[string]*Listener
	closed       bool
}

// NewSession attaches a session to sock. Call Close when done with it.
func NewSession(sock Socket, opts SessionOptions) *Session {
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	if opts.TypingTimeout <= 0 {
		opts.TypingTimeout = DefaultTypingTimeout
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	s := &Session{
		sock:        sock,
		opts:        opts,
		logger:      logger.With().Str("component", "session").Logger(),
		timeline:    NewTimeline(),
		userID:      opts.UserID,
		typingUsers: make(map[string]TypingUser),
		online:      make(map[string]struct{}),
	}
	if s.userID == "" {
		if ident, ok := sock.(interface{ UserID() string }); ok {
			s.userID = ident.UserID()
		}
	}

	onErr := func(err error) { s.logger.Warn().Err(err).Msg("dropping malformed event") }
	s.listeners = map[string]*Listener{
		EventConnect:     NewListener(func(json.RawMessage) { s.handleConnect() }),
		EventDisconnect:  NewListener(func(json.RawMessage) { s.handleDisconnect() }),
		EventMessageNew:  ListenFor(s.handleNewMessage, onErr),
		EventTypingUser:  ListenFor(s.handleTyping, onErr),
		EventUserOnline:  ListenFor(s.handleUserOnline, onErr),
		EventUserOffline: ListenFor(s.handleUserOffline, onErr),
	}
	for event, l := range s.listeners {
		sock.On(event, l)
	}
	if sock.Status() == StatusConnected {
		s.handleConnect()
	}
	return s
}

// Timeline exposes the message list the session appends to.
func (s *Session) Timeline() *Timeline { return s.timeline }

// Messages returns a copy of the timeline.
func (s *Session) Messages() []Message { return s.timeline.Snapshot() }

// Conversation returns the current conversation id.
func (s *Session) Conversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversation
}

// IsConnected mirrors the socket status.
func (s *Session) IsConnected() bool { return s.sock.Status() == StatusConnected }

// SetConversation switches the current conversation: the held room is left
// first, then the new one is joined. An empty id only leaves.
func (s *Session) SetConversation(id string) {
	if id != "" && strings.TrimSpace(id) == "" {
		s.logger.Warn().Str("conversation", id).Msg("ignoring malformed conversation id")
		return
	}

	s.roomMu.Lock()
	defer s.roomMu.Unlock()

	s.mu.Lock()
	if s.closed || id == s.conversation {
		s.mu.Unlock()
		return
	}
	prev := s.conversation
	s.conversation = id
	held := s.joined
	wasTyping := s.resetTypingLocked()
	s.mu.Unlock()

	if wasTyping && prev != "" {
		s.emit(EventTypingStop, ConversationPayload{ConversationID: prev})
	}
	if !s.IsConnected() {
		// joined on the next connect
		return
	}
	if held != "" && held != id {
		s.emit(EventConversationLeave, ConversationPayload{ConversationID: held})
		s.logger.Debug().Str("conversation", held).Msg("left conversation")
		s.setJoined("")
	}
	if id != "" {
		s.emit(EventConversationJoin, ConversationPayload{ConversationID: id})
		s.logger.Debug().Str("conversation", id).Msg("joined conversation")
		s.setJoined(id)
	}
}

// JoinConversation emits a join for id without touching the current conversation.
func (s *Session) JoinConversation(id string) {
	if strings.TrimSpace(id) == "" {
		s.logger.Warn().Msg("cannot join: missing conversationId")
		return
	}
	s.emit(EventConversationJoin, ConversationPayload{ConversationID: id})
}

// LeaveConversation emits a leave for id without touching the current conversation.
func (s *Session) LeaveConversation(id string) {
	if strings.TrimSpace(id) == "" {
		s.logger.Warn().Msg("cannot leave: missing conversationId")
		return
	}
	s.emit(EventConversationLeave, ConversationPayload{ConversationID: id})
}

// SendMessage sends content to the current conversation and waits for the
// acknowledgment, at most AckTimeout. It returns nil without emitting when
// no conversation is set or content is blank, and nil when the emit fails,
// ctx ends or the timeout wins. The message shows up in the timeline as
// pending right after the emit and is reconciled when the ack arrives.
func (s *Session) SendMessage(ctx context.Context, content string) *MessageAck {
	ack, err := s.Send(ctx, content)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cannot send message")
		return nil
	}
	return ack
}

// Send is SendMessage with the failure reported: ErrInvalidConversation,
// ErrNotConnected, ErrAckTimeout, a ctx error or a serialization error.
// An ack the server rejected is returned with its Error field set and a nil
// error; the message stays pending.
func (s *Session) Send(ctx context.Context, content string) (*MessageAck, error) {
	s.mu.Lock()
	conv, uid, closed := s.conversation, s.userID, s.closed
	s.mu.Unlock()

	text := strings.TrimSpace(content)
	switch {
	case closed:
		return nil, NewError(ErrorDisconnected, "session closed")
	case conv == "":
		return nil, ErrInvalidConversation
	case text == "":
		return nil, NewError(ErrorBadRequest, "empty message content")
	}

	acked := make(chan json.RawMessage, 1)
	payload := SendMessagePayload{ConversationID: conv, Content: text}
	err := s.sock.EmitWithAck(ctx, EventMessageSend, payload, func(raw json.RawMessage) {
		select {
		case acked <- raw:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	pending := s.timeline.AddPending(conv, uid, text)

	timer := time.NewTimer(s.opts.AckTimeout)
	defer timer.Stop()

	select {
	case raw := <-acked:
		var ack MessageAck
		if err := UnmarshalData(raw, &ack); err != nil {
			return nil, WrapError(ErrorSerialization, "decode message acknowledgment", err)
		}
		if ack.Error != "" {
			s.logger.Warn().Str("error", ack.Error).Str("temp_id", pending.TempID).Msg("message rejected")
			return &ack, nil
		}
		s.timeline.Reconcile(pending.TempID, ack)
		s.logger.Debug().Str("id", ack.ID).Str("temp_id", pending.TempID).Msg("message sent")
		return &ack, nil
	case <-timer.C:
		s.logger.Debug().Str("temp_id", pending.TempID).Dur("timeout", s.opts.AckTimeout).Msg("message left pending")
		return nil, ErrAckTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// StartTyping emits typing:start when the local user was not typing yet and
// arms the inactivity timer that stops it again.
func (s *Session) StartTyping() {
	s.mu.Lock()
	if s.closed || s.conversation == "" || s.typing {
		s.mu.Unlock()
		return
	}
	s.typing = true
	conv := s.conversation
	s.typingGen++
	gen := s.typingGen
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(s.opts.TypingTimeout, func() { s.expireTyping(gen) })
	s.mu.Unlock()

	s.emit(EventTypingStart, ConversationPayload{ConversationID: conv})
}

// StopTyping emits typing:stop when the local user was typing.
func (s *Session) StopTyping() {
	s.mu.Lock()
	if s.conversation == "" || !s.typing {
		s.mu.Unlock()
		return
	}
	conv := s.conversation
	s.resetTypingLocked()
	s.mu.Unlock()

	s.emit(EventTypingStop, ConversationPayload{ConversationID: conv})
}

// IsTyping reports the local typing flag.
func (s *Session) IsTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

func (s *Session) expireTyping(gen uint64) {
	s.mu.Lock()
	stale := gen != s.typingGen
	s.mu.Unlock()
	if !stale {
		s.StopTyping()
	}
}

// resetTypingLocked clears the typing flag and its timer, reporting whether
// the flag was set.
func (s *Session) resetTypingLocked() bool {
	was := s.typing
	s.typing = false
	s.typingGen++
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	return was
}

// TypingUsers returns who is typing, keyed by user id.
func (s *Session) TypingUsers() map[string]TypingUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]TypingUser, len(s.typingUsers))
	for id, t := range s.typingUsers {
		out[id] = t
	}
	return out
}

// OnlineUsers returns the online user ids, sorted.
func (s *Session) OnlineUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.online))
	for id := range s.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Session) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.online[userID]
	return ok
}

// Close stops typing, leaves the held room and detaches every listener the
// session attached. Safe to call more than once.
func (s *Session) Close() {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conv := s.conversation
	held := s.joined
	s.joined = ""
	wasTyping := s.resetTypingLocked()
	listeners := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	for event, l := range listeners {
		s.sock.Off(event, l)
	}
	if !s.IsConnected() {
		return
	}
	if wasTyping && conv != "" {
		s.emit(EventTypingStop, ConversationPayload{ConversationID: conv})
	}
	if held != "" {
		s.emit(EventConversationLeave, ConversationPayload{ConversationID: held})
	}
}

func (s *Session) handleConnect() {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()

	s.mu.Lock()
	if s.closed || s.announced {
		s.mu.Unlock()
		return
	}
	s.announced = true
	uid, conv, held := s.userID, s.conversation, s.joined
	s.mu.Unlock()

	if uid != "" {
		s.emit(EventUserJoin, UserJoinPayload{UserID: uid})
	}
	if conv != "" && conv != held {
		s.emit(EventConversationJoin, ConversationPayload{ConversationID: conv})
		s.setJoined(conv)
	}
}

// handleDisconnect forgets what the server forgot with the transport.
func (s *Session) handleDisconnect() {
	s.mu.Lock()
	s.announced = false
	s.joined = ""
	s.resetTypingLocked()
	s.mu.Unlock()
}

func (s *Session) handleNewMessage(ev NewMessage) {
	s.timeline.Append(MessageFromEvent(ev))
	if s.opts.OnNewMessage != nil {
		s.opts.OnNewMessage(ev)
	}
}

func (s *Session) handleTyping(ev TypingUser) {
	s.mu.Lock()
	if ev.IsTyping {
		ev.ReceivedAt = time.Now()
		s.typingUsers[ev.UserID] = ev
	} else {
		delete(s.typingUsers, ev.UserID)
	}
	s.mu.Unlock()
	if s.opts.OnUserTyping != nil {
		s.opts.OnUserTyping(ev)
	}
}

func (s *Session) handleUserOnline(ev UserOnline) {
	s.mu.Lock()
	s.online[ev.UserID] = struct{}{}
	s.mu.Unlock()
	if s.opts.OnUserOnline != nil {
		s.opts.OnUserOnline(ev)
	}
}

func (s *Session) handleUserOffline(ev UserOffline) {
	s.mu.Lock()
	delete(s.online, ev.UserID)
	s.mu.Unlock()
	if s.opts.OnUserOffline != nil {
		s.opts.OnUserOffline(ev)
	}
}

func (s *Session) setJoined(id string) {
	s.mu.Lock()
	s.joined = id
	s.mu.Unlock()
}

func (s *Session) emit(event string, data any) {
	if err := s.sock.Emit(context.Background(), event, data); err != nil {
		s.logger.Warn().Err(err).Str("event", event).Msg("emit failed")
	}
}
