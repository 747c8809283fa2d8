// Package transport implements the outbound/inbound overlay transport
// from spec.md §4.7/§6 (C9): a websocket hub broadcasting dispatcher
// events to connected overlay clients, and an HTTP surface for health,
// queue status, and audio retrieval.
package transport

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/alertvoice/internal/protocol"
)

// SendTimeout bounds how long a broadcast write to one client may block
// before that message is dropped for that client.
const SendTimeout = 50 * time.Millisecond

// clientBuf is the per-client outbound channel buffer depth.
const clientBuf = 32

// client is one connected overlay websocket session.
type client struct {
	id   string
	send chan *protocol.Message
}

// Hub tracks connected overlay clients and fans outbound messages out to
// all of them (spec.md §6's tts_ready/skip/queue_update events). All
// operations are atomic under a single mutex (spec.md §5).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	nextID  atomic.Uint64
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Register adds a new client and returns its ID and send channel. Call
// Unregister when the connection closes.
func (h *Hub) Register() (id string, send <-chan *protocol.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id = "c" + strconv.FormatUint(h.nextID.Add(1), 10)
	c := &client{id: id, send: make(chan *protocol.Message, clientBuf)}
	h.clients[id] = c
	slog.Debug("transport: client registered", "client_id", id, "total", len(h.clients))
	return id, c.send
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)
	slog.Debug("transport: client unregistered", "client_id", id, "total", len(h.clients))
}

// Broadcast sends msg to every connected client, dropping it for any
// client whose buffer is full past SendTimeout — the overlay must never
// stall the dispatcher (spec.md §5).
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if trySend(c.send, msg) {
			sent++
		}
	}
	slog.Debug("transport: broadcast", "type", msg.Type, "recipients", sent, "total", len(targets))
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func trySend(ch chan *protocol.Message, msg *protocol.Message) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case ch <- msg:
		return true
	case <-time.After(SendTimeout):
		slog.Debug("transport: send timeout", "type", msg.Type)
		return false
	}
}
