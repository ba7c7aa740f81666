package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newBareHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		broadcast:  make(chan []byte, 10),
		register:   make(chan *Client, 1),
		unregister: make(chan *Client, 1),
		logger:     zap.NewNop(),
	}
}

func TestHubSendToModerator(t *testing.T) {
	h := newBareHub()

	id1 := uuid.New()
	id2 := uuid.New()
	c1 := &Client{moderatorID: id1, send: make(chan []byte, 4)}
	c2 := &Client{moderatorID: id2, send: make(chan []byte, 4)}
	h.clients[id1] = c1
	h.clients[id2] = c2

	event := map[string]string{"event": "modlog.entry"}
	if err := h.SendToModerator(id1, event); err != nil {
		t.Fatalf("SendToModerator error: %v", err)
	}

	select {
	case b := <-c1.send:
		var got map[string]string
		json.Unmarshal(b, &got)
		if got["event"] != "modlog.entry" {
			t.Fatalf("unexpected payload: %v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}

	select {
	case b := <-c2.send:
		t.Fatalf("event leaked to another moderator: %s", b)
	default:
	}
}

func TestHubSendToModeratorSkipsFullBuffer(t *testing.T) {
	h := newBareHub()

	id := uuid.New()
	c := &Client{moderatorID: id, send: make(chan []byte)}
	h.clients[id] = c

	// Unbuffered channel with no reader; the send must not block.
	done := make(chan struct{})
	go func() {
		h.SendToModerator(id, map[string]string{"event": "x"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendToModerator blocked on a full client buffer")
	}
}

func TestHubOnlineModerators(t *testing.T) {
	h := newBareHub()

	id1 := uuid.New()
	id2 := uuid.New()
	h.clients[id1] = &Client{moderatorID: id1, send: make(chan []byte, 1)}
	h.clients[id2] = &Client{moderatorID: id2, send: make(chan []byte, 1)}

	online := h.OnlineModerators()
	if len(online) != 2 {
		t.Fatalf("expected 2 online moderators, got %d", len(online))
	}
}

func TestMatchOrigin(t *testing.T) {
	cases := []struct {
		pattern string
		origin  string
		want    bool
	}{
		{"http://localhost:3000", "http://localhost:3000", true},
		{"http://localhost:3000", "http://evil.example", false},
		{"*.example.com", "https://dash.example.com", true},
		{"*.example.com", "https://example.org", false},
		{"*", "https://anything.example", true},
	}
	for _, c := range cases {
		if got := matchOrigin(c.pattern, c.origin); got != c.want {
			t.Errorf("matchOrigin(%q, %q) = %v, want %v", c.pattern, c.origin, got, c.want)
		}
	}
}
