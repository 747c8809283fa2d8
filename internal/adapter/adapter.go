// Package adapter provides the normalization helpers named in spec.md
// §4.8 (provider-field mapping) and a minimal FakeAdapter that turns a
// small JSON fixture format into event.StreamEvent values, giving the
// §4.8 contract a concrete, testable home. It is not a real Twitch or
// YouTube client — OAuth, long-poll, and push subscriptions are out of
// scope (spec.md §1 Non-goals).
package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/example/alertvoice/internal/event"
)

// AnonymousUsername is substituted for an anonymous cheer/gift's
// username (spec.md §4.8).
const AnonymousUsername = "Anonymous"

// TierFromProviderCode maps Twitch's wire tier codes ("1000"/"2000"/
// "3000") to the normalized 1/2/3 tier used by event.StreamEvent
// (spec.md §4.8).
func TierFromProviderCode(code string) (int, error) {
	switch code {
	case "1000":
		return 1, nil
	case "2000":
		return 2, nil
	case "3000":
		return 3, nil
	default:
		return 0, fmt.Errorf("adapter: unknown tier code %q", code)
	}
}

// MicrosToDecimal converts a YouTube micros amount to a decimal value
// (spec.md §4.8: micros → decimal by ÷10^6).
func MicrosToDecimal(micros int64) float64 {
	return float64(micros) / 1_000_000
}

// fixture is the wire shape consumed by FakeAdapter. type "handshake" and
// "ping" are discarded, matching §4.8's "discard verification/handshake
// messages" requirement.
type fixture struct {
	Type string `json:"type"`

	Username  string  `json:"username"`
	Anonymous bool    `json:"anonymous"`
	Amount    int     `json:"amount"`
	TierCode  string  `json:"tier_code"`
	IsResub   bool    `json:"is_resub"`
	Months    int     `json:"months"`
	Message   string  `json:"message"`
	Count     int     `json:"count"`
	Recipient string  `json:"recipient"`
	RewardID  string  `json:"reward_id"`
	RewardName string `json:"reward_name"`
	RewardCost int    `json:"reward_cost"`
	UserInput string  `json:"user_input"`
	AmountMicros int64 `json:"amount_micros"`
	Currency  string  `json:"currency"`
	StickerID string  `json:"sticker_id"`
	Level     string  `json:"level"`
	IsMilestone bool  `json:"is_milestone"`
}

// FakeAdapter decodes fixture JSON lines into normalized StreamEvents,
// for exercising the §4.8 adapter contract without a live platform
// connection.
type FakeAdapter struct{}

// Decode parses one fixture document. ok is false for discarded
// handshake/ping messages, not an error.
func (FakeAdapter) Decode(raw []byte) (ev event.StreamEvent, ok bool, err error) {
	var f fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return event.StreamEvent{}, false, fmt.Errorf("adapter: decode fixture: %w", err)
	}

	switch f.Type {
	case "handshake", "ping":
		return event.StreamEvent{}, false, nil

	case "twitch_bits":
		username := f.Username
		if f.Anonymous {
			username = AnonymousUsername
		}
		ev, err := event.NewTwitchBits(username, f.Amount, f.Message, f.Anonymous, nil)
		return ev, err == nil, err

	case "twitch_sub":
		tier, err := TierFromProviderCode(f.TierCode)
		if err != nil {
			return event.StreamEvent{}, false, err
		}
		ev, err := event.NewTwitchSub(f.Username, tier, f.IsResub, f.Months, f.Message, nil)
		return ev, err == nil, err

	case "twitch_gift":
		tier, err := TierFromProviderCode(f.TierCode)
		if err != nil {
			return event.StreamEvent{}, false, err
		}
		username := f.Username
		if f.Anonymous {
			username = AnonymousUsername
		}
		ev, err := event.NewTwitchGift(username, tier, f.Count, f.Recipient, nil)
		return ev, err == nil, err

	case "twitch_channel_points":
		ev, err := event.NewTwitchChannelPoints(f.Username, f.RewardID, f.RewardName, f.RewardCost, f.UserInput, nil)
		return ev, err == nil, err

	case "youtube_superchat":
		ev, err := event.NewYouTubeSuperchat(f.Username, MicrosToDecimal(f.AmountMicros), f.Currency, f.Message, nil)
		return ev, err == nil, err

	case "youtube_supersticker":
		ev, err := event.NewYouTubeSupersticker(f.Username, MicrosToDecimal(f.AmountMicros), f.Currency, f.StickerID, nil)
		return ev, err == nil, err

	case "youtube_membership":
		ev, err := event.NewYouTubeMembership(f.Username, f.Level, f.IsMilestone, f.Months, nil)
		return ev, err == nil, err

	default:
		return event.StreamEvent{}, false, fmt.Errorf("adapter: unknown fixture type %q", f.Type)
	}
}
