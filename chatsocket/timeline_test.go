package chatsocket

import (
	"testing"
	"time"
)

func TestTimelineAddPendingAndReconcile(t *testing.T) {
	tl := NewTimeline()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tl.now = func() time.Time { return fixed }

	a := tl.AddPending("c1", "u1", "hello")
	b := tl.AddPending("c1", "u1", "again")
	if !IsTempID(a.ID) || a.ID == b.ID || !a.Pending {
		t.Fatalf("unexpected pending entries: %+v %+v", a, b)
	}
	if a.CreatedAt != fixed || a.Type != MessageText {
		t.Fatalf("pending entry fields: %+v", a)
	}

	acked := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !tl.Reconcile(a.TempID, MessageAck{ID: "m1", CreatedAt: acked}) {
		t.Fatalf("reconcile failed")
	}
	if tl.Reconcile(a.TempID, MessageAck{ID: "m1"}) {
		t.Fatalf("second reconcile should miss")
	}
	if tl.Reconcile(b.TempID, MessageAck{}) {
		t.Fatalf("ack without id should not reconcile")
	}

	snap := tl.Snapshot()
	if len(snap) != 2 || snap[0].ID != "m1" || snap[0].Pending || !snap[0].CreatedAt.Equal(acked) {
		t.Fatalf("snapshot after reconcile: %+v", snap)
	}
	if snap[0].Content != "hello" {
		t.Fatalf("content lost: %q", snap[0].Content)
	}
	if p := tl.Pending(); len(p) != 1 || p[0].TempID != b.TempID {
		t.Fatalf("pending = %+v", p)
	}
}

func TestTimelineSeedThenAppend(t *testing.T) {
	tl := NewTimeline()
	tl.Seed([]Message{{ID: "h1"}, {ID: "h2"}})
	tl.Append(Message{ID: "live"})
	tl.Append(Message{ID: "live"})

	snap := tl.Snapshot()
	if tl.Len() != 4 || snap[0].ID != "h1" || snap[2].ID != "live" || snap[3].ID != "live" {
		t.Fatalf("unexpected timeline: %+v", snap)
	}
	snap[0].ID = "mutated"
	if tl.Snapshot()[0].ID != "h1" {
		t.Fatalf("snapshot aliases internal state")
	}
}

func TestTimelineSeedKeepsNewerEntries(t *testing.T) {
	tl := NewTimeline()
	tl.Append(Message{ID: "h2", Content: "pushed while fetching"})
	tl.Append(Message{ID: "m3", Content: "live"})
	pending := tl.AddPending("c1", "u1", "mine")

	tl.Seed([]Message{{ID: "h1"}, {ID: "h2", Content: "from history"}})

	snap := tl.Snapshot()
	ids := make([]string, 0, len(snap))
	for _, m := range snap {
		ids = append(ids, m.ID)
	}
	want := []string{"h1", "h2", "m3", pending.ID}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
	if snap[1].Content != "from history" {
		t.Fatalf("duplicate not replaced by history: %+v", snap[1])
	}
	if !tl.Reconcile(pending.TempID, MessageAck{ID: "m4"}) {
		t.Fatalf("pending entry lost by Seed")
	}
}

func TestMessageFromEvent(t *testing.T) {
	ev := NewMessage{ID: "m1", ConversationID: "c1", SenderID: "u2", Content: "yo", Type: MessageImage}
	m := MessageFromEvent(ev)
	if m.ID != "m1" || m.ConversationID != "c1" || m.SenderID != "u2" || m.Type != MessageImage || m.Pending {
		t.Fatalf("unexpected message: %+v", m)
	}
	if IsTempID(m.ID) {
		t.Fatalf("server id taken as temporary")
	}
}
