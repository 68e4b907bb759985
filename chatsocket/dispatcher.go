package chatsocket

import (
	"encoding/json"
	"sync"
)

// Dispatcher routes outbound frames: events to the registry, acks to the
// callback waiting on them, protocol errors to the error hook.
type Dispatcher struct {
	registry *Registry
	deliver  func(event string, payload json.RawMessage)

	mu      sync.Mutex
	nextAck uint64
	acks    map[uint64]func(json.RawMessage)
	onError func(error)
}

// NewDispatcher builds a dispatcher delivering into registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		deliver:  registry.Emit,
		acks:     make(map[uint64]func(json.RawMessage)),
	}
}

func (d *Dispatcher) SetOnError(fn func(error)) {
	d.mu.Lock()
	d.onError = fn
	d.mu.Unlock()
}

// expectAck reserves an ack id for fn.
func (d *Dispatcher) expectAck(fn func(json.RawMessage)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextAck++
	d.acks[d.nextAck] = fn
	return d.nextAck
}

// forgetAck drops a reservation whose emit never made it out.
func (d *Dispatcher) forgetAck(id uint64) {
	d.mu.Lock()
	delete(d.acks, id)
	d.mu.Unlock()
}

// dropAcks forgets every outstanding ack; they can no longer arrive once the
// transport that carried the emit is gone.
func (d *Dispatcher) dropAcks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.acks)
	d.acks = make(map[uint64]func(json.RawMessage))
	return n
}

// Pending counts acks still outstanding.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.acks)
}

func (d *Dispatcher) Dispatch(out Outbound) {
	switch out.Type {
	case outboundError:
		if out.Error != nil {
			d.fireError(FromProtocolError(out.Error))
		}
	case outboundAck:
		d.mu.Lock()
		fn, ok := d.acks[out.Ack]
		delete(d.acks, out.Ack)
		d.mu.Unlock()
		if ok && fn != nil {
			fn(out.Data)
		}
	case outboundEvent:
		if out.Event == "" {
			d.fireError(NewError(ErrorSerialization, "event frame without name"))
			return
		}
		d.deliver(out.Event, out.Data)
	}
}

func (d *Dispatcher) fireError(err error) {
	d.mu.Lock()
	fn := d.onError
	d.mu.Unlock()
	if fn != nil && err != nil {
		fn(err)
	}
}

type queuedEvent struct {
	name    string
	payload json.RawMessage
}

// eventQueue hands events to a single delivery goroutine in arrival order.
// push never blocks.
type eventQueue struct {
	mu     sync.Mutex
	items  []queuedEvent
	closed bool
	wake   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

func (q *eventQueue) push(name string, payload json.RawMessage) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, queuedEvent{name: name, payload: payload})
	q.mu.Unlock()
	q.signal()
}

// close stops accepting events; run returns once the backlog is delivered.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *eventQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run(deliver func(queuedEvent)) {
	for {
		q.mu.Lock()
		batch := q.items
		q.items = nil
		closed := q.closed
		q.mu.Unlock()

		for _, ev := range batch {
			deliver(ev)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-q.wake
	}
}
