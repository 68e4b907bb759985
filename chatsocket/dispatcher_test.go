package chatsocket

import (
	"encoding/json"
	"testing"
)

func TestDispatcherEvent(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r)

	var got NewMessage
	var errCalled bool
	r.Subscribe(EventMessageNew, ListenFor(func(ev NewMessage) { got = ev }, nil))
	d.SetOnError(func(err error) { errCalled = true; _ = err })

	raw, _ := json.Marshal(NewMessage{ID: "m1", ConversationID: "c1", Content: "hi"})
	d.Dispatch(Outbound{Type: outboundEvent, Event: EventMessageNew, Data: raw})

	if got.ID != "m1" || got.ConversationID != "c1" || got.Content != "hi" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if errCalled {
		t.Fatalf("unexpected error callback")
	}
}

func TestDispatcherError(t *testing.T) {
	var errGot error
	d := NewDispatcher(NewRegistry())
	d.SetOnError(func(err error) { errGot = err })

	d.Dispatch(Outbound{Type: outboundError, Error: &Error{Code: "unauthorized", Msg: "no token"}})
	if errGot == nil {
		t.Fatalf("expected error callback")
	}
	if !IsAuthError(errGot) || !IsProtocolError(errGot) {
		t.Fatalf("error not classified: %v", errGot)
	}
}

func TestDispatcherEventWithoutName(t *testing.T) {
	var errGot error
	d := NewDispatcher(NewRegistry())
	d.SetOnError(func(err error) { errGot = err })

	d.Dispatch(Outbound{Type: outboundEvent})
	if errGot == nil {
		t.Fatalf("expected error callback")
	}
}

func TestDispatcherAckFiresOnce(t *testing.T) {
	d := NewDispatcher(NewRegistry())

	calls := 0
	var payload string
	id := d.expectAck(func(raw json.RawMessage) {
		calls++
		payload = string(raw)
	})
	other := d.expectAck(func(json.RawMessage) { t.Fatalf("wrong ack fired") })
	if id == other {
		t.Fatalf("ack ids collide")
	}

	d.Dispatch(Outbound{Type: outboundAck, Ack: id, Data: json.RawMessage(`{"id":"m1"}`)})
	d.Dispatch(Outbound{Type: outboundAck, Ack: id, Data: json.RawMessage(`{"id":"m2"}`)})
	if calls != 1 || payload != `{"id":"m1"}` {
		t.Fatalf("calls = %d payload = %s", calls, payload)
	}
	if d.Pending() != 1 {
		t.Fatalf("pending = %d", d.Pending())
	}
	if n := d.dropAcks(); n != 1 || d.Pending() != 0 {
		t.Fatalf("dropAcks = %d pending = %d", n, d.Pending())
	}
	// dropped acks never fire
	d.Dispatch(Outbound{Type: outboundAck, Ack: other})
}

func TestDispatcherUnknownAckIgnored(t *testing.T) {
	d := NewDispatcher(NewRegistry())
	d.Dispatch(Outbound{Type: outboundAck, Ack: 42})
}
