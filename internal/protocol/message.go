// Package protocol defines the JSON envelope exchanged with overlay
// browser clients over the outbound/inbound transport described in
// spec.md §6.
package protocol

// Outbound message types — server to overlay client.
const (
	TypeTTSReady    = "tts_ready"
	TypeSkip        = "skip"
	TypeQueueUpdate = "queue_update"
	TypeSnapshot    = "snapshot" // sent once on connect, not part of spec.md §6 but needed to seed a newly-connected overlay
)

// AudioContentType is the content-type served by GET /audio/:id.
const AudioContentType = "audio/wav"

// Inbound message types — overlay client to server.
const (
	TypePlayComplete = "play_complete"
	TypeError        = "error"
	TypeReady        = "ready"
)

// Message is the JSON envelope exchanged over the overlay websocket.
// Only the fields relevant to a given Type are populated; the rest are
// omitted via `omitempty`.
type Message struct {
	Type string `json:"type"`

	// tts_ready
	ID        string `json:"id,omitempty"`
	AudioID   string `json:"audio_id,omitempty"`
	Text      string `json:"text,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Platform  string `json:"platform,omitempty"`

	// queue_update
	Size       int             `json:"size,omitempty"`
	MaxSize    int             `json:"max_size,omitempty"`
	Current    *Message        `json:"current,omitempty"`
	RateLimits *RateLimitState `json:"rate_limits,omitempty"`

	// error (inbound)
	Error string `json:"error,omitempty"`
}

// RateLimitState reports remaining per-platform rate-limiter budget.
type RateLimitState struct {
	Twitch  int `json:"twitch"`
	YouTube int `json:"youtube"`
}
