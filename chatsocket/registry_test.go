package chatsocket

import (
	"encoding/json"
	"testing"
)

func TestRegistrySubscribeIsSet(t *testing.T) {
	r := NewRegistry()
	calls := 0
	l := NewListener(func(json.RawMessage) { calls++ })

	r.Subscribe(EventMessageNew, l)
	r.Subscribe(EventMessageNew, l)
	if n := len(r.Listeners(EventMessageNew)); n != 1 {
		t.Fatalf("listeners = %d, want 1", n)
	}
	r.Emit(EventMessageNew, nil)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRegistryUnsubscribeOne(t *testing.T) {
	r := NewRegistry()
	var order []string
	a := NewListener(func(json.RawMessage) { order = append(order, "a") })
	b := NewListener(func(json.RawMessage) { order = append(order, "b") })
	c := NewListener(func(json.RawMessage) { order = append(order, "c") })
	r.Subscribe(EventTypingUser, a)
	r.Subscribe(EventTypingUser, b)
	r.Subscribe(EventTypingUser, c)

	r.Unsubscribe(EventTypingUser, b)
	r.Emit(EventTypingUser, nil)
	if len(order) != 2 || order[0] != "a" || order[1] != "c" {
		t.Fatalf("order = %v", order)
	}
}

func TestRegistryUnsubscribeAll(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(EventUserOnline, NewListener(func(json.RawMessage) {}))
	r.Subscribe(EventUserOnline, NewListener(func(json.RawMessage) {}))
	r.Subscribe(EventUserOffline, NewListener(func(json.RawMessage) {}))

	r.Unsubscribe(EventUserOnline, nil)
	if len(r.Listeners(EventUserOnline)) != 0 {
		t.Fatalf("user:online listeners left")
	}
	if events := r.Events(); len(events) != 1 || events[0] != EventUserOffline {
		t.Fatalf("events = %v", events)
	}
}

func TestRegistryPairedCallsLeaveNothing(t *testing.T) {
	tests := []struct {
		name string
		ops  func(r *Registry, ls []*Listener)
	}{
		{"in order", func(r *Registry, ls []*Listener) {
			for _, l := range ls {
				r.Subscribe(EventMessageNew, l)
			}
			for _, l := range ls {
				r.Unsubscribe(EventMessageNew, l)
			}
		}},
		{"reverse", func(r *Registry, ls []*Listener) {
			for _, l := range ls {
				r.Subscribe(EventMessageNew, l)
			}
			for i := len(ls) - 1; i >= 0; i-- {
				r.Unsubscribe(EventMessageNew, ls[i])
			}
		}},
		{"interleaved", func(r *Registry, ls []*Listener) {
			for _, l := range ls {
				r.Subscribe(EventMessageNew, l)
				r.Unsubscribe(EventMessageNew, l)
			}
		}},
		{"duplicate subscribe", func(r *Registry, ls []*Listener) {
			r.Subscribe(EventMessageNew, ls[0])
			r.Subscribe(EventMessageNew, ls[0])
			r.Unsubscribe(EventMessageNew, ls[0])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			ls := []*Listener{
				NewListener(func(json.RawMessage) {}),
				NewListener(func(json.RawMessage) {}),
				NewListener(func(json.RawMessage) {}),
			}
			tt.ops(r, ls)
			if r.Len() != 0 || len(r.Events()) != 0 {
				t.Fatalf("registry not empty: %d listeners, events %v", r.Len(), r.Events())
			}
		})
	}
}

func TestRegistryUnsubscribeDuringEmit(t *testing.T) {
	r := NewRegistry()
	calls := 0
	var self *Listener
	self = NewListener(func(json.RawMessage) {
		calls++
		r.Unsubscribe(EventConnect, self)
	})
	other := NewListener(func(json.RawMessage) { calls++ })
	r.Subscribe(EventConnect, self)
	r.Subscribe(EventConnect, other)

	r.Emit(EventConnect, nil)
	r.Emit(EventConnect, nil)
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestListenForDecodeError(t *testing.T) {
	var gotErr error
	l := ListenFor(func(UserOnline) { t.Fatalf("callback ran on bad payload") }, func(err error) { gotErr = err })
	l.call(json.RawMessage(`[`))
	if gotErr == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	r.Subscribe(EventConnect, NewListener(func(json.RawMessage) {}))
	r.Subscribe(EventMessageNew, NewListener(func(json.RawMessage) {}))
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("len = %d", r.Len())
	}
	r.Subscribe(EventConnect, nil)
	if r.Len() != 0 {
		t.Fatalf("nil listener stored")
	}
}
