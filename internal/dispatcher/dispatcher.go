// Package dispatcher implements the single-message-in-flight state
// machine from spec.md §4.7 (C8): IDLE/PENDING, advancing from the
// priority queue after every enqueue and every IDLE transition.
package dispatcher

import (
	"log/slog"
	"sync"

	"github.com/example/alertvoice/internal/event"
	"github.com/example/alertvoice/internal/protocol"
	"github.com/example/alertvoice/internal/queue"
)

// Broadcaster sends an outbound message to every connected overlay
// client. Implemented by internal/transport.Hub.
type Broadcaster interface {
	Broadcast(msg *protocol.Message)
}

// Dispatcher owns the current in-flight message and drives the queue.
// All state transitions are atomic under a single mutex (spec.md §5).
type Dispatcher struct {
	mu         sync.Mutex
	q          *queue.Queue
	current    *event.TTSMessage
	out        Broadcaster
	rateLimits func() *protocol.RateLimitState
}

// New constructs a Dispatcher over q, emitting outbound events via out.
func New(q *queue.Queue, out Broadcaster) *Dispatcher {
	return &Dispatcher{q: q, out: out}
}

// SetRateLimitsProvider wires a callback used to populate queue_update's
// rate_limits field (spec.md §6). Optional; nil omits the field.
func (d *Dispatcher) SetRateLimitsProvider(f func() *protocol.RateLimitState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rateLimits = f
}

// Enqueue offers msg to the queue and attempts to advance. Returns false
// if the queue rejected msg (spec.md §4.4).
func (d *Dispatcher) Enqueue(msg *event.TTSMessage) bool {
	ok := d.q.Offer(msg)
	if !ok {
		slog.Warn("dispatcher: queue rejected message", "id", msg.ID, "priority", msg.Priority)
	}
	d.advance()
	d.emitQueueUpdate()
	return ok
}

// advance attempts the IDLE→PENDING transition: if idle and the queue is
// non-empty, poll the next message and emit tts_ready (spec.md §4.7).
func (d *Dispatcher) advance() {
	d.mu.Lock()
	busy := d.current != nil
	d.mu.Unlock()
	if busy {
		return
	}

	msg, ok := d.q.Poll()
	if !ok {
		return
	}

	d.mu.Lock()
	if d.current != nil {
		// Lost the race to a concurrent advance() that set d.current
		// first. Put msg back rather than drop it.
		d.mu.Unlock()
		d.q.Offer(msg)
		return
	}
	d.current = msg
	d.mu.Unlock()

	d.out.Broadcast(&protocol.Message{
		Type:      protocol.TypeTTSReady,
		ID:        msg.ID,
		AudioID:   msg.AudioID,
		Text:      msg.DisplayText,
		EventType: string(msg.Source.Kind),
		Platform:  string(msg.Source.Platform),
	})
}

// PlayComplete handles a play_complete ack from a client. A stale id
// (not matching the current message) is ignored (spec.md §4.7).
func (d *Dispatcher) PlayComplete(id string) {
	d.mu.Lock()
	if d.current == nil || d.current.ID != id {
		d.mu.Unlock()
		return
	}
	d.current = nil
	d.mu.Unlock()

	d.advance()
	d.emitQueueUpdate()
}

// ClientError treats a client-reported error as completion, to avoid
// stalling the dispatcher on a client that can't play the current
// message (spec.md §4.7).
func (d *Dispatcher) ClientError(id string) {
	d.mu.Lock()
	if d.current == nil || d.current.ID != id {
		d.mu.Unlock()
		return
	}
	d.current = nil
	d.mu.Unlock()

	d.advance()
	d.emitQueueUpdate()
}

// Skip clears the current message, emits a skip notification, and
// attempts to advance (spec.md §4.7).
func (d *Dispatcher) Skip() {
	d.mu.Lock()
	cur := d.current
	d.current = nil
	d.mu.Unlock()

	if cur == nil {
		return
	}
	d.out.Broadcast(&protocol.Message{Type: protocol.TypeSkip, ID: cur.ID})
	d.advance()
	d.emitQueueUpdate()
}

// Clear drains the queue but preserves a PENDING current message, per
// spec.md §4.7's "any → clear" row.
func (d *Dispatcher) Clear() {
	d.q.Drain()
	d.emitQueueUpdate()
}

// Current returns the in-flight message, if any.
func (d *Dispatcher) Current() (*event.TTSMessage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, d.current != nil
}

// emitQueueUpdate broadcasts the current queue depth and in-flight
// message, used to populate protocol.Message.Current/Size/MaxSize.
func (d *Dispatcher) emitQueueUpdate() {
	d.out.Broadcast(d.Snapshot())
}

// Snapshot builds a queue_update message describing the current queue
// depth and in-flight message, for unicast to a newly-connected overlay
// client as well as for broadcast on every state change.
func (d *Dispatcher) Snapshot() *protocol.Message {
	d.mu.Lock()
	var cur *protocol.Message
	if d.current != nil {
		cur = &protocol.Message{
			Type:      protocol.TypeTTSReady,
			ID:        d.current.ID,
			AudioID:   d.current.AudioID,
			Text:      d.current.DisplayText,
			EventType: string(d.current.Source.Kind),
			Platform:  string(d.current.Source.Platform),
		}
	}
	rl := d.rateLimits
	d.mu.Unlock()

	var rateLimits *protocol.RateLimitState
	if rl != nil {
		rateLimits = rl()
	}

	return &protocol.Message{
		Type:       protocol.TypeQueueUpdate,
		Size:       d.q.Size(),
		MaxSize:    d.q.Bound(),
		Current:    cur,
		RateLimits: rateLimits,
	}
}
