package chatsocket

import (
	"sync"

	"github.com/rs/zerolog"
)

// Manager owns the single realtime connection of a process and the listener
// registry attached to it. Pass it around instead of reaching for a global.
type Manager struct {
	cfg      Config
	logger   zerolog.Logger
	registry *Registry

	mu      sync.Mutex
	conn    *Conn
	onState func(StateEvent)
}

// NewManager constructs a manager with provided config.
// Use DefaultConfig() or LoadConfig() as a starting point.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		logger:   zerolog.Nop(),
		registry: NewRegistry(),
	}
}

// SetLogger overrides logger (optional).
func (m *Manager) SetLogger(l zerolog.Logger) {
	m.mu.Lock()
	m.logger = l
	m.mu.Unlock()
}

// OnStateChanged registers a hook for status transitions of every
// connection the manager creates.
func (m *Manager) OnStateChanged(fn func(StateEvent)) {
	m.mu.Lock()
	m.onState = fn
	m.mu.Unlock()
}

// Registry exposes the listener bookkeeping. Listeners attached before
// Initialize see the first connect.
func (m *Manager) Registry() *Registry { return m.registry }

// On attaches l to event.
func (m *Manager) On(event string, l *Listener) { m.registry.Subscribe(event, l) }

// Off detaches l from event, or every listener of event when l is nil.
func (m *Manager) Off(event string, l *Listener) { m.registry.Unsubscribe(event, l) }

// Initialize returns the live connection if there is one. Otherwise it
// releases the dead one, builds a new connection authenticated with token
// (Config.Token when empty) and starts connecting.
func (m *Manager) Initialize(token string) (*Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil && m.conn.Status().live() {
		return m.conn, nil
	}
	if err := m.cfg.Validate(); err != nil {
		return nil, err
	}
	if m.conn != nil {
		m.conn.release(false)
		m.conn = nil
	}
	if token == "" {
		token = m.cfg.Token
	}

	c := newConn(m.cfg, token, m.registry, m.logger, m.onState)
	m.conn = c
	c.Connect()
	return c, nil
}

// Conn returns the current connection, nil before Initialize or after Teardown.
func (m *Manager) Conn() *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// Teardown removes every listener, disconnects and forgets the connection.
// Without a connection it still empties the registry.
func (m *Manager) Teardown() {
	m.mu.Lock()
	c := m.conn
	m.conn = nil
	m.mu.Unlock()

	if c != nil {
		_ = c.Close()
		m.logger.Debug().Msg("socket disconnected and cleaned up")
	}
	m.registry.Clear()
}
