// Package event defines the normalized alert-event tagged union (spec.md
// §3, C1) shared by every component downstream of the inbound adapters.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Platform identifies the originating streaming service.
type Platform string

const (
	Twitch  Platform = "twitch"
	YouTube Platform = "youtube"
)

// Kind enumerates the normalized event variants from spec.md §3.
type Kind string

const (
	KindTwitchBits              Kind = "twitch_bits"
	KindTwitchSubNew            Kind = "twitch_sub_new"
	KindTwitchSubResub          Kind = "twitch_sub_resub"
	KindTwitchGiftSingle        Kind = "twitch_gift_single"
	KindTwitchGiftMulti         Kind = "twitch_gift_multi"
	KindTwitchChannelPoints     Kind = "twitch_channel_points"
	KindYouTubeSuperchat        Kind = "youtube_superchat"
	KindYouTubeSupersticker     Kind = "youtube_supersticker"
	KindYouTubeMembershipNew    Kind = "youtube_membership_new"
	KindYouTubeMembershipMileS  Kind = "youtube_membership_milestone"
)

// DefaultPriority maps a Kind to its dispatch priority (higher sends
// earlier). Values are deliberately spaced to leave room for future
// kinds without renumbering (spec.md §4.1 step 7).
var DefaultPriority = map[Kind]int{
	KindTwitchGiftMulti:        100,
	KindTwitchGiftSingle:       90,
	KindTwitchSubResub:         80,
	KindTwitchSubNew:           80,
	KindYouTubeMembershipMileS: 80,
	KindYouTubeMembershipNew:   80,
	KindYouTubeSupersticker:    70,
	KindYouTubeSuperchat:       70,
	KindTwitchBits:             60,
	KindTwitchChannelPoints:    40,
}

// Priority returns the configured priority for k, or 0 if unknown.
func Priority(k Kind) int {
	return DefaultPriority[k]
}

// StreamEvent is the normalized tagged union. Exactly one of the
// variant-field groups below is meaningful, selected by Kind; the
// invariants relating Kind to the raw fields (gift count, resub, and
// milestone) are enforced once at construction and never revisited.
type StreamEvent struct {
	ID        string
	Platform  Platform
	Kind      Kind
	Username  string
	CreatedAt time.Time
	Raw       map[string]any

	// twitch_bits
	BitsAmount  int
	BitsMessage string
	Anonymous   bool

	// twitch_sub_new / twitch_sub_resub
	SubTier   int
	SubMonths int
	SubMsg    string

	// twitch_gift_single / twitch_gift_multi
	GiftTier      int
	GiftRecipient string
	GiftCount     int

	// twitch_channel_points
	RewardID    string
	RewardName  string
	RewardCost  int
	UserInput   string

	// youtube_superchat / youtube_supersticker
	Amount     float64
	Currency   string
	StickerID  string

	// youtube_membership_new / youtube_membership_milestone
	MembershipLevel  string
	MembershipMonths int
}

// ErrInvalidEvent is returned by the New* constructors when a variant
// invariant from spec.md §3 is violated.
type ErrInvalidEvent struct {
	Reason string
}

func (e *ErrInvalidEvent) Error() string {
	return fmt.Sprintf("invalid event: %s", e.Reason)
}

func newBase(platform Platform, kind Kind, username string) StreamEvent {
	return StreamEvent{
		ID:        uuid.NewString(),
		Platform:  platform,
		Kind:      kind,
		Username:  username,
		CreatedAt: time.Now().UTC(),
		Raw:       map[string]any{},
	}
}

// NewTwitchBits constructs a twitch_bits event.
func NewTwitchBits(username string, amount int, message string, anonymous bool, raw map[string]any) (StreamEvent, error) {
	if amount < 0 {
		return StreamEvent{}, &ErrInvalidEvent{Reason: "bits amount must be non-negative"}
	}
	if anonymous {
		username = "Anonymous"
	}
	ev := newBase(Twitch, KindTwitchBits, username)
	ev.BitsAmount = amount
	ev.BitsMessage = message
	ev.Anonymous = anonymous
	ev.Raw = rawOrEmpty(raw)
	return ev, nil
}

// NewTwitchSub constructs either a twitch_sub_new or twitch_sub_resub
// event depending on isResub, per spec.md §3's invariant.
func NewTwitchSub(username string, tier int, isResub bool, months int, message string, raw map[string]any) (StreamEvent, error) {
	if err := checkTier(tier); err != nil {
		return StreamEvent{}, err
	}
	kind := KindTwitchSubNew
	if isResub {
		if months < 1 {
			return StreamEvent{}, &ErrInvalidEvent{Reason: "resub months must be >= 1"}
		}
		kind = KindTwitchSubResub
	}
	ev := newBase(Twitch, kind, username)
	ev.SubTier = tier
	ev.SubMonths = months
	ev.SubMsg = message
	ev.Raw = rawOrEmpty(raw)
	return ev, nil
}

// NewTwitchGift constructs either a twitch_gift_single or
// twitch_gift_multi event based on count, per spec.md §3's invariant.
func NewTwitchGift(username string, tier int, count int, recipient string, raw map[string]any) (StreamEvent, error) {
	if err := checkTier(tier); err != nil {
		return StreamEvent{}, err
	}
	if count < 1 {
		return StreamEvent{}, &ErrInvalidEvent{Reason: "gift count must be >= 1"}
	}
	ev := newBase(Twitch, KindTwitchGiftSingle, username)
	if count >= 2 {
		ev.Kind = KindTwitchGiftMulti
	}
	ev.GiftTier = tier
	ev.GiftCount = count
	ev.GiftRecipient = recipient
	ev.Raw = rawOrEmpty(raw)
	return ev, nil
}

// NewTwitchChannelPoints constructs a twitch_channel_points event.
func NewTwitchChannelPoints(username, rewardID, rewardName string, cost int, userInput string, raw map[string]any) (StreamEvent, error) {
	if rewardID == "" {
		return StreamEvent{}, &ErrInvalidEvent{Reason: "reward_id is required"}
	}
	ev := newBase(Twitch, KindTwitchChannelPoints, username)
	ev.RewardID = rewardID
	ev.RewardName = rewardName
	ev.RewardCost = cost
	ev.UserInput = userInput
	ev.Raw = rawOrEmpty(raw)
	return ev, nil
}

// NewYouTubeSuperchat constructs a youtube_superchat event.
func NewYouTubeSuperchat(username string, amount float64, currency, message string, raw map[string]any) (StreamEvent, error) {
	if err := checkCurrency(currency); err != nil {
		return StreamEvent{}, err
	}
	ev := newBase(YouTube, KindYouTubeSuperchat, username)
	ev.Amount = amount
	ev.Currency = currency
	ev.BitsMessage = message
	ev.Raw = rawOrEmpty(raw)
	return ev, nil
}

// NewYouTubeSupersticker constructs a youtube_supersticker event.
func NewYouTubeSupersticker(username string, amount float64, currency, stickerID string, raw map[string]any) (StreamEvent, error) {
	if err := checkCurrency(currency); err != nil {
		return StreamEvent{}, err
	}
	ev := newBase(YouTube, KindYouTubeSupersticker, username)
	ev.Amount = amount
	ev.Currency = currency
	ev.StickerID = stickerID
	ev.Raw = rawOrEmpty(raw)
	return ev, nil
}

// NewYouTubeMembership constructs either a youtube_membership_new or
// youtube_membership_milestone event based on isMilestone.
func NewYouTubeMembership(username, level string, isMilestone bool, months int, raw map[string]any) (StreamEvent, error) {
	kind := KindYouTubeMembershipNew
	if isMilestone {
		if months < 1 {
			return StreamEvent{}, &ErrInvalidEvent{Reason: "membership milestone months must be >= 1"}
		}
		kind = KindYouTubeMembershipMileS
	}
	ev := newBase(YouTube, kind, username)
	ev.MembershipLevel = level
	ev.MembershipMonths = months
	ev.Raw = rawOrEmpty(raw)
	return ev, nil
}

func checkTier(tier int) error {
	if tier != 1 && tier != 2 && tier != 3 {
		return &ErrInvalidEvent{Reason: "tier must be 1, 2, or 3"}
	}
	return nil
}

func checkCurrency(currency string) error {
	if len(currency) < 1 || len(currency) > 3 {
		return &ErrInvalidEvent{Reason: "currency must be 1-3 characters"}
	}
	return nil
}

func rawOrEmpty(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	return raw
}
