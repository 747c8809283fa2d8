package event

import "time"

// TTSMessage is the immutable unit that flows from the Event Processor
// into the priority queue and out to the dispatcher (spec.md §3).
type TTSMessage struct {
	ID          string
	SpokenText  string
	DisplayText string
	Priority    int
	Source      StreamEvent
	AudioID     string // cache key / filename stem; a weak reference (spec.md §9)
	CreatedAt   time.Time
}
