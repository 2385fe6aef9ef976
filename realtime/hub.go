// Package realtime fans lifecycle events out to connected websocket
// clients. Delivery is at-most-once and best-effort: a client connecting
// after an event misses it, and a failed write drops the client. The REST
// surface stays the source of truth.
package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Event is the wire envelope for every broadcast.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// conn is the slice of the websocket connection the hub needs; tests use
// fakes.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub is a single broadcast channel. Every connected client receives every
// event; there is no per-topic filtering.
type Hub struct {
	mu      sync.Mutex
	clients map[conn]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: map[conn]struct{}{}}
}

func (h *Hub) register(c conn) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("realtime: client connected (%d total)", n)
}

func (h *Hub) unregister(c conn) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("realtime: client disconnected (%d total)", n)
}

// Clients reports the current connection count.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends one event to every connected client. Marshal or write
// failures never propagate to the caller; a client whose write fails is
// dropped.
func (h *Hub) Broadcast(event string, data any) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		log.Printf("realtime: marshal %s: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = c.Close()
			delete(h.clients, c)
		}
	}
}

// Handler upgrades the connection and parks it in the hub until the client
// goes away. Inbound messages are drained and ignored; the channel is
// broadcast-only.
func (h *Hub) Handler() func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		h.register(c)
		defer h.unregister(c)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}
}
