// Package queue implements the bounded priority queue from spec.md §4.4
// (C7): ordered by priority descending then creation-time ascending,
// with priority-aware eviction on overflow (the normative behavior per
// spec.md §4.4/§9, superseding the unconditional-evict-on-insert
// reference behavior).
//
// container/heap is the standard library's priority-queue primitive and
// is used here directly — no third-party repo in the corpus ships a
// priority-queue package, and container/heap is the idiomatic Go answer
// to this exact shape of problem.
package queue

import (
	"container/heap"
	"log/slog"
	"sync"
	"time"

	"github.com/example/alertvoice/internal/event"
)

type entry struct {
	priority  int
	createdAt time.Time
	msg       *event.TTSMessage
}

// heapSlice implements heap.Interface as a max-heap by priority, with
// older entries sorting first on ties — so heap.Pop always yields the
// next message to dispatch.
type heapSlice []*entry

func (h heapSlice) Len() int { return len(h) }
func (h heapSlice) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].createdAt.Before(h[j].createdAt)
}
func (h heapSlice) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *heapSlice) Push(x any)   { *h = append(*h, x.(*entry)) }
func (h *heapSlice) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is a bounded, priority-ordered message queue. All operations are
// atomic under a single mutex (spec.md §5).
type Queue struct {
	mu    sync.Mutex
	h     heapSlice
	bound int
}

// New constructs a Queue that never holds more than bound messages.
func New(bound int) *Queue {
	return &Queue{bound: bound}
}

// Bound returns the configured maximum size.
func (q *Queue) Bound() int {
	return q.bound
}

// Offer inserts msg, honoring the bound. When full, the lowest-priority
// entry (oldest on tie) is evicted to admit msg only if msg's priority
// is strictly higher; otherwise msg is rejected. Returns true if msg was
// enqueued (spec.md §4.4, §8 invariant 1).
func (q *Queue) Offer(msg *event.TTSMessage) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e := &entry{priority: msg.Priority, createdAt: msg.CreatedAt, msg: msg}

	if len(q.h) < q.bound {
		heap.Push(&q.h, e)
		return true
	}

	worstIdx := q.worstIndexLocked()
	worst := q.h[worstIdx]
	if msg.Priority <= worst.priority {
		return false
	}

	heap.Remove(&q.h, worstIdx)
	heap.Push(&q.h, e)
	slog.Warn("queue evicted message", "evicted_id", worst.msg.ID, "evicted_priority", worst.priority, "admitted_id", msg.ID, "admitted_priority", msg.Priority)
	return true
}

// worstIndexLocked scans for the lowest-priority, oldest-on-tie entry.
// O(n) is acceptable: n is bounded by the small configured queue bound.
func (q *Queue) worstIndexLocked() int {
	worst := 0
	for i := 1; i < len(q.h); i++ {
		if q.h[i].priority < q.h[worst].priority ||
			(q.h[i].priority == q.h[worst].priority && q.h[i].createdAt.Before(q.h[worst].createdAt)) {
			worst = i
		}
	}
	return worst
}

// Poll removes and returns the highest-priority (oldest-on-tie) message,
// or (nil, false) if empty.
func (q *Queue) Poll() (*event.TTSMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.h) == 0 {
		return nil, false
	}
	e := heap.Pop(&q.h).(*entry)
	return e.msg, true
}

// Size returns the current number of queued messages.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

// Drain removes all queued messages (the `clear` command, spec.md §4.7).
func (q *Queue) Drain() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.h = nil
}
