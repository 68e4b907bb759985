package chatsocket

import (
	"encoding/json"
	"sort"
	"sync"
)

// Listener wraps a callback for a named event. The pointer is the identity
// used by Subscribe and Unsubscribe, so keep it around to detach later.
type Listener struct {
	fn func(json.RawMessage)
}

// NewListener wraps fn.
func NewListener(fn func(json.RawMessage)) *Listener {
	return &Listener{fn: fn}
}

// ListenFor wraps a typed callback; payloads that fail to decode go to onErr
// (which may be nil).
func ListenFor[T any](fn func(T), onErr func(error)) *Listener {
	return NewListener(func(raw json.RawMessage) {
		var v T
		if len(raw) > 0 {
			if err := UnmarshalData(raw, &v); err != nil {
				if onErr != nil {
					onErr(WrapError(ErrorSerialization, "decode event payload", err))
				}
				return
			}
		}
		fn(v)
	})
}

func (l *Listener) call(payload json.RawMessage) {
	if l != nil && l.fn != nil {
		l.fn(payload)
	}
}

// Registry keeps the listeners attached per event name.
type Registry struct {
	mu     sync.RWMutex
	events map[string][]*Listener
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{events: make(map[string][]*Listener)}
}

// Subscribe attaches l to event. Attaching the same listener twice is a no-op.
func (r *Registry) Subscribe(event string, l *Listener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.events[event] {
		if existing == l {
			return
		}
	}
	r.events[event] = append(r.events[event], l)
}

// Unsubscribe detaches l from event, or every listener of event when l is nil.
func (r *Registry) Unsubscribe(event string, l *Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l == nil {
		delete(r.events, event)
		return
	}
	list := r.events[event]
	for i, existing := range list {
		if existing != l {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		break
	}
	if len(list) == 0 {
		delete(r.events, event)
		return
	}
	r.events[event] = list
}

// Listeners returns a copy of the listeners attached to event.
func (r *Registry) Listeners(event string) []*Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Listener(nil), r.events[event]...)
}

// Events returns the event names that have listeners, sorted.
func (r *Registry) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.events))
	for name := range r.events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len counts attached listeners across all events.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, list := range r.events {
		n += len(list)
	}
	return n
}

// Clear detaches everything.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.events = make(map[string][]*Listener)
	r.mu.Unlock()
}

// Emit delivers payload to the listeners of event in subscription order.
// Listeners run without the lock held and may (un)subscribe freely.
func (r *Registry) Emit(event string, payload json.RawMessage) {
	for _, l := range r.Listeners(event) {
		l.call(payload)
	}
}
