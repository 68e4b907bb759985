package chatsocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatsocket-go/chatsocket/internal"
)

// Socket is the slice of a connection the chat session needs.
type Socket interface {
	Status() Status
	Emit(ctx context.Context, event string, data any) error
	EmitWithAck(ctx context.Context, event string, data any, ack func(json.RawMessage)) error
	On(event string, l *Listener)
	Off(event string, l *Listener)
}

// ConnectErrorPayload is delivered to connect_error listeners.
type ConnectErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Conn is one realtime connection: a dial/handshake loop with bounded
// reconnection, a read loop feeding the dispatcher and a write queue.
type Conn struct {
	cfg        Config
	token      string
	userID     string
	logger     zerolog.Logger
	registry   *Registry
	dispatcher *Dispatcher
	events     *eventQueue
	onState    func(StateEvent)

	mu      sync.Mutex
	status  Status
	sid     string
	link    *link
	started bool
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// link is a single established transport.
type link struct {
	ws   *internal.Conn
	out  chan Inbound
	done chan struct{}

	once   sync.Once
	reason DisconnectReason
}

func (l *link) fail(reason DisconnectReason) {
	l.once.Do(func() { l.reason = reason })
}

func newConn(cfg Config, token string, registry *Registry, logger zerolog.Logger, onState func(StateEvent)) *Conn {
	c := &Conn{
		cfg:        cfg,
		token:      token,
		logger:     logger.With().Str("component", "conn").Logger(),
		registry:   registry,
		dispatcher: NewDispatcher(registry),
		events:     newEventQueue(),
		onState:    onState,
		done:       make(chan struct{}),
	}
	// listeners run on the event goroutine, never on the read loop
	c.dispatcher.deliver = c.emit
	if id, err := UserIDFromToken(token); err == nil {
		c.userID = id
	}
	c.dispatcher.SetOnError(func(err error) {
		c.logger.Warn().Err(err).Msg("server error")
	})
	return c
}

// Status returns the current connection status.
func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ID returns the server-assigned session id of the current transport.
func (c *Conn) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sid
}

// UserID is the identity carried by the auth token, empty when the token
// could not be decoded.
func (c *Conn) UserID() string { return c.userID }

// Registry exposes the listener bookkeeping.
func (c *Conn) Registry() *Registry { return c.registry }

// On attaches l to a server or lifecycle event.
func (c *Conn) On(event string, l *Listener) { c.registry.Subscribe(event, l) }

// Off detaches l from event, or every listener of event when l is nil.
func (c *Conn) Off(event string, l *Listener) { c.registry.Unsubscribe(event, l) }

// Connect starts the dial/handshake loop. Only the first call does anything.
func (c *Conn) Connect() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, cancel := context.WithCancel(context.Background())
	c.ctx = ctx
	c.cancel = cancel
	c.mu.Unlock()

	c.setStatus(StatusConnecting, nil)
	go func() {
		defer close(c.done)
		delivered := make(chan struct{})
		go func() {
			defer close(delivered)
			c.events.run(c.deliver)
		}()
		c.run(ctx)
		c.events.close()
		<-delivered
	}()
}

// Emit sends event without waiting for an acknowledgment.
func (c *Conn) Emit(ctx context.Context, event string, data any) error {
	return c.send(ctx, Inbound{Type: inboundEmit, Event: event, Data: data})
}

// EmitWithAck sends event and calls ack with the server's reply. The
// callback never fires if the transport goes away first.
func (c *Conn) EmitWithAck(ctx context.Context, event string, data any, ack func(json.RawMessage)) error {
	id := c.dispatcher.expectAck(ack)
	if err := c.send(ctx, Inbound{Type: inboundEmit, Event: event, Data: data, Ack: id}); err != nil {
		c.dispatcher.forgetAck(id)
		return err
	}
	return nil
}

// Done is closed once the connect loop has exited for good and every
// queued event was delivered.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close detaches every listener and drops the transport. Safe to call more
// than once, and from inside a listener.
func (c *Conn) Close() error {
	c.release(true)
	return nil
}

// release stops the connection. Listeners live in the manager's registry
// and survive a release unless clear is set.
func (c *Conn) release(clear bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cancel := c.cancel
	started := c.started
	old := c.status
	c.status = StatusDisconnected
	c.sid = ""
	c.mu.Unlock()

	if clear {
		c.registry.Clear()
	}
	if cancel != nil {
		cancel()
	}
	if !started {
		close(c.done)
	}
	c.dispatcher.dropAcks()
	c.logger.Debug().Stringer("from", old).Msg("connection torn down")
}

func (c *Conn) send(ctx context.Context, in Inbound) error {
	c.mu.Lock()
	l := c.link
	connected := c.status == StatusConnected
	runCtx := c.ctx
	c.mu.Unlock()
	if !connected || l == nil || runCtx == nil {
		c.logger.Warn().Str("event", in.Event).Msg("cannot emit: socket is not connected")
		return ErrNotConnected
	}

	select {
	case l.out <- in:
		return nil
	case <-l.done:
		return ErrNotConnected
	case <-runCtx.Done():
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) setStatus(s Status, cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	old := c.status
	c.status = s
	c.mu.Unlock()
	if old == s {
		return
	}
	c.logger.Debug().Stringer("from", old).Stringer("to", s).Msg("status changed")
	if c.onState != nil {
		c.onState(StateEvent{OldStatus: old, NewStatus: s, Error: cause})
	}
}

// emit queues event for the listeners.
func (c *Conn) emit(event string, payload json.RawMessage) {
	c.events.push(event, payload)
}

// deliver runs on the event goroutine; nothing reaches listeners once the
// connection was released.
func (c *Conn) deliver(ev queuedEvent) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if !closed {
		c.registry.Emit(ev.name, ev.payload)
	}
}

func (c *Conn) run(ctx context.Context) {
	attempt := 0
	for {
		c.setStatus(StatusConnecting, nil)
		l, sid, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("connect failed")
			c.setStatus(StatusError, err)
			c.emit(EventConnectError, connectErrorPayload(err))
			if IsAuthError(err) {
				return
			}
		} else {
			attempt = 0
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				_ = l.ws.Close(websocket.StatusNormalClosure, "client disconnect")
				return
			}
			c.link = l
			c.sid = sid
			c.mu.Unlock()
			c.setStatus(StatusConnected, nil)
			c.logger.Info().Str("sid", sid).Msg("connected")

			reason := c.serve(ctx, l)

			c.mu.Lock()
			c.link = nil
			c.sid = ""
			c.mu.Unlock()
			if n := c.dispatcher.dropAcks(); n > 0 {
				c.logger.Debug().Int("acks", n).Msg("dropped pending acknowledgments")
			}
			if reason == ReasonClientDisconnect {
				return
			}
			c.logger.Info().Str("reason", string(reason)).Msg("disconnected")
			c.setStatus(StatusDisconnected, nil)
			c.emit(EventDisconnect, reasonPayload(reason))
			if !reason.Retryable() {
				return
			}
		}

		if !c.cfg.AutoReconnect {
			return
		}
		attempt++
		if attempt > c.cfg.ReconnectAttempts {
			c.logger.Warn().Int("attempts", c.cfg.ReconnectAttempts).Msg("reconnection attempts exhausted")
			c.setStatus(StatusDisconnected, nil)
			c.emit(EventReconnectFailed, nil)
			return
		}
		delay := c.cfg.backoff(attempt)
		c.logger.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting")
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// dial opens the websocket and performs the hello/welcome handshake.
func (c *Conn) dial(ctx context.Context) (*link, string, error) {
	dialCtx := ctx
	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	ws, err := internal.Dial(dialCtx, c.cfg.URL, c.token, c.cfg.ReadTimeout, c.cfg.WriteTimeout)
	if err != nil {
		var rejected *internal.HandshakeRejected
		if errors.As(err, &rejected) {
			return nil, "", WrapError(ErrorUnauthorized, "Authentication error", err)
		}
		return nil, "", WrapError(ErrorConnection, "dial", err)
	}

	hello := Inbound{Type: inboundHello, Data: HelloPayload{Protocol: ProtocolVersion, Token: c.token}}
	if err := ws.Write(dialCtx, hello); err != nil {
		_ = ws.CloseNow()
		return nil, "", WrapError(ErrorConnection, "send hello", err)
	}

	var reply Outbound
	if err := ws.Read(dialCtx, &reply); err != nil {
		_ = ws.CloseNow()
		return nil, "", WrapError(ErrorConnection, "read handshake reply", err)
	}
	switch reply.Type {
	case outboundWelcome:
	case outboundError:
		_ = ws.Close(websocket.StatusNormalClosure, "handshake rejected")
		if reply.Error == nil {
			return nil, "", NewError(ErrorUnknown, "handshake rejected")
		}
		return nil, "", FromProtocolError(reply.Error)
	default:
		_ = ws.Close(websocket.StatusProtocolError, "unexpected handshake reply")
		return nil, "", NewError(ErrorConnection, "unexpected handshake reply "+reply.Type)
	}

	var welcome WelcomePayload
	if len(reply.Data) > 0 {
		if err := UnmarshalData(reply.Data, &welcome); err != nil {
			c.logger.Debug().Err(err).Msg("ignoring malformed welcome payload")
		}
	}
	return &link{ws: ws, out: make(chan Inbound, 16), done: make(chan struct{})}, welcome.SID, nil
}

// serve runs the transport until it dies and reports why.
func (c *Conn) serve(ctx context.Context, l *link) DisconnectReason {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(runCtx, l)
	}()
	// the writer is up, so emits made by connect listeners go out
	c.emit(EventConnect, nil)

	reason := c.readLoop(runCtx, l)
	close(l.done)
	cancel()
	wg.Wait()
	if reason == ReasonClientDisconnect {
		_ = l.ws.Close(websocket.StatusNormalClosure, "client disconnect")
	} else {
		_ = l.ws.CloseNow()
	}
	return reason
}

func (c *Conn) readLoop(ctx context.Context, l *link) DisconnectReason {
	for {
		var out Outbound
		if err := l.ws.Read(ctx, &out); err != nil {
			if ctx.Err() != nil {
				l.fail(ReasonClientDisconnect)
				return l.reason
			}
			switch internal.Classify(err) {
			case "server":
				l.fail(ReasonServerDisconnect)
			case "close":
				l.fail(ReasonTransportClose)
			default:
				c.logger.Warn().Err(err).Msg("read loop exit")
				l.fail(ReasonTransportError)
			}
			return l.reason
		}
		c.dispatcher.Dispatch(out)
	}
}

func (c *Conn) writeLoop(ctx context.Context, l *link) {
	for {
		select {
		case in := <-l.out:
			if err := l.ws.Write(ctx, in); err != nil {
				if ctx.Err() == nil {
					c.logger.Warn().Err(err).Str("event", in.Event).Msg("write loop exit")
					l.fail(ReasonTransportError)
					_ = l.ws.CloseNow()
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func connectErrorPayload(err error) json.RawMessage {
	p := ConnectErrorPayload{Code: ErrorConnection.String(), Message: err.Error()}
	var ce *ChatError
	if errors.As(err, &ce) {
		p.Code = ce.Code.String()
		p.Message = ce.Message
	}
	raw, _ := json.Marshal(p)
	return raw
}

func reasonPayload(reason DisconnectReason) json.RawMessage {
	raw, _ := json.Marshal(string(reason))
	return raw
}
