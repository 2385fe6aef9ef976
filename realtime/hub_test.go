package realtime

import (
	"encoding/json"
	"errors"
	"testing"
)

type fakeConn struct {
	messages [][]byte
	failWith error
	closed   bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	h := NewHub()
	a, b := &fakeConn{}, &fakeConn{}
	h.register(a)
	h.register(b)

	h.Broadcast("newReport", map[string]string{"id": "abc"})

	for _, c := range []*fakeConn{a, b} {
		if len(c.messages) != 1 {
			t.Fatalf("client got %d messages, want 1", len(c.messages))
		}
		var ev Event
		if err := json.Unmarshal(c.messages[0], &ev); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if ev.Event != "newReport" {
			t.Fatalf("event = %q, want newReport", ev.Event)
		}
		data, ok := ev.Data.(map[string]any)
		if !ok || data["id"] != "abc" {
			t.Fatalf("data = %#v, want id abc", ev.Data)
		}
	}
}

func TestBroadcastDropsFailingClient(t *testing.T) {
	h := NewHub()
	healthy := &fakeConn{}
	broken := &fakeConn{failWith: errors.New("write: broken pipe")}
	h.register(healthy)
	h.register(broken)

	h.Broadcast("reportDeleted", "abc")

	if !broken.closed {
		t.Fatal("failing client was not closed")
	}
	if got := h.Clients(); got != 1 {
		t.Fatalf("Clients() = %d, want 1 after drop", got)
	}

	// The healthy client keeps receiving.
	h.Broadcast("reportDeleted", "def")
	if len(healthy.messages) != 2 {
		t.Fatalf("healthy client got %d messages, want 2", len(healthy.messages))
	}
}

func TestUnregister(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	h.register(c)
	h.unregister(c)

	h.Broadcast("newReport", nil)
	if len(c.messages) != 0 {
		t.Fatalf("unregistered client got %d messages, want 0", len(c.messages))
	}
	if h.Clients() != 0 {
		t.Fatalf("Clients() = %d, want 0", h.Clients())
	}
}

func TestBroadcastUnmarshalableData(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	h.register(c)

	// Channels cannot be marshaled; the broadcast is skipped, not fatal.
	h.Broadcast("newReport", make(chan int))
	if len(c.messages) != 0 {
		t.Fatalf("client got %d messages, want 0", len(c.messages))
	}
}
