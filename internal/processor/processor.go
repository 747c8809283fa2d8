// Package processor implements the Event Processor pipeline from
// spec.md §4.1 (C4): enable/threshold checks, template rendering,
// profanity masking, speech sanitization, synthesis, and enqueueing.
package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasttemplate"

	"github.com/example/alertvoice/internal/config"
	"github.com/example/alertvoice/internal/dedup"
	"github.com/example/alertvoice/internal/event"
	"github.com/example/alertvoice/internal/ratelimit"
)

// Synthesizer produces a cached audio artifact path for spoken text.
// Implemented by internal/ttscache.Cache.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string, speed float64) (string, error)
}

// Enqueuer accepts a finished message for dispatch. Implemented by
// internal/dispatcher.Dispatcher.
type Enqueuer interface {
	Enqueue(msg *event.TTSMessage) bool
}

// Processor runs the full pipeline described in spec.md §4.1.
type Processor struct {
	cfg       config.Config
	limiter   *ratelimit.Limiter
	detector  *dedup.Detector
	synth     Synthesizer
	out       Enqueuer
	profanity []*regexp.Regexp
}

// New constructs a Processor. It configures limiter's per-platform rates
// from cfg as a convenience so callers don't have to duplicate that
// wiring at startup.
func New(cfg config.Config, limiter *ratelimit.Limiter, detector *dedup.Detector, synth Synthesizer, out Enqueuer) *Processor {
	p := &Processor{cfg: cfg, limiter: limiter, detector: detector, synth: synth, out: out}
	for _, w := range cfg.Filters.ProfanityWords {
		p.profanity = append(p.profanity, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	limiter.SetRate(string(event.Twitch), cfg.RateLimit.PerMinuteTwitch)
	limiter.SetRate(string(event.YouTube), cfg.RateLimit.PerMinuteYouTube)
	return p
}

// Process runs ev through the pipeline, returning true iff it produced
// a queued message (spec.md §4.1 contract).
func (p *Processor) Process(ctx context.Context, ev event.StreamEvent) bool {
	if !p.cfg.Filters.Enabled[string(ev.Kind)] {
		slog.Debug("processor: kind disabled", "kind", ev.Kind)
		return false
	}
	if !p.passesThreshold(ev) {
		slog.Debug("processor: below threshold", "kind", ev.Kind)
		return false
	}
	if !p.limiter.Allow(string(ev.Platform)) {
		slog.Warn("processor: rate limited", "platform", ev.Platform, "kind", ev.Kind)
		return false
	}

	key, values := templateValues(ev)
	raw, ok := p.cfg.Templates[key]
	if !ok {
		slog.Error("processor: unknown template key", "key", key)
		return false
	}
	rendered, err := renderTemplate(raw, values)
	if err != nil {
		slog.Error("processor: render template", "key", key, "err", err)
		return false
	}

	displayText := strings.TrimSpace(rendered)
	spokenText := sanitize(maskProfanity(displayText, p.profanity))
	if spokenText == "" {
		slog.Debug("processor: empty text after sanitize", "kind", ev.Kind)
		return false
	}

	if p.detector.IsDuplicate(spokenText) {
		slog.Debug("processor: duplicate suppressed", "kind", ev.Kind)
		return false
	}

	path, err := p.synth.Synthesize(ctx, spokenText, p.cfg.TTS.Voice, p.cfg.TTS.Speed)
	if err != nil {
		slog.Error("processor: synthesize", "kind", ev.Kind, "err", err)
		return false
	}

	msg := &event.TTSMessage{
		ID:          uuid.NewString(),
		SpokenText:  spokenText,
		DisplayText: displayText,
		Priority:    event.Priority(ev.Kind),
		Source:      ev,
		AudioID:     audioIDFromPath(path),
		CreatedAt:   time.Now().UTC(),
	}
	return p.out.Enqueue(msg)
}

func audioIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (p *Processor) passesThreshold(ev event.StreamEvent) bool {
	switch ev.Kind {
	case event.KindTwitchBits:
		return ev.BitsAmount >= p.cfg.Filters.MinBits
	case event.KindTwitchGiftSingle, event.KindTwitchGiftMulti:
		return ev.GiftCount >= p.cfg.Filters.MinGifts
	case event.KindTwitchChannelPoints:
		if len(p.cfg.Filters.ChannelPointsAllowlist) == 0 {
			return true
		}
		for _, id := range p.cfg.Filters.ChannelPointsAllowlist {
			if id == ev.RewardID {
				return true
			}
		}
		return false
	case event.KindYouTubeSuperchat, event.KindYouTubeSupersticker:
		cents := int(math.Round(ev.Amount * 100))
		return cents >= p.cfg.Filters.MinCents
	default:
		return true
	}
}

// templateValues selects a template key (choosing the has-message /
// no-message sub-variant where applicable) and the placeholder values
// for ev (spec.md §4.1 step 3).
func templateValues(ev event.StreamEvent) (string, map[string]string) {
	switch ev.Kind {
	case event.KindTwitchBits:
		key := "twitch_bits"
		if strings.TrimSpace(ev.BitsMessage) == "" {
			key = "twitch_bits_no_message"
		}
		return key, map[string]string{
			"username": ev.Username,
			"amount":   strconv.Itoa(ev.BitsAmount),
			"message":  ev.BitsMessage,
		}

	case event.KindTwitchSubNew:
		return "twitch_sub_new", map[string]string{
			"username": ev.Username,
			"tier":     strconv.Itoa(ev.SubTier),
		}

	case event.KindTwitchSubResub:
		key := "twitch_sub_resub"
		if strings.TrimSpace(ev.SubMsg) == "" {
			key = "twitch_sub_resub_no_message"
		}
		return key, map[string]string{
			"username": ev.Username,
			"tier":     strconv.Itoa(ev.SubTier),
			"months":   strconv.Itoa(ev.SubMonths),
			"message":  ev.SubMsg,
		}

	case event.KindTwitchGiftSingle:
		return "twitch_gift_single", map[string]string{
			"username":  ev.Username,
			"tier":      strconv.Itoa(ev.GiftTier),
			"recipient": ev.GiftRecipient,
		}

	case event.KindTwitchGiftMulti:
		return "twitch_gift_multi", map[string]string{
			"username": ev.Username,
			"tier":     strconv.Itoa(ev.GiftTier),
			"count":    strconv.Itoa(ev.GiftCount),
		}

	case event.KindTwitchChannelPoints:
		key := "twitch_channel_points"
		if strings.TrimSpace(ev.UserInput) == "" {
			key = "twitch_channel_points_no_message"
		}
		return key, map[string]string{
			"username":    ev.Username,
			"reward_name": ev.RewardName,
			"user_input":  ev.UserInput,
		}

	case event.KindYouTubeSuperchat:
		key := "youtube_superchat"
		if strings.TrimSpace(ev.BitsMessage) == "" {
			key = "youtube_superchat_no_message"
		}
		return key, map[string]string{
			"username": ev.Username,
			"amount":   strconv.FormatFloat(ev.Amount, 'f', 2, 64),
			"message":  ev.BitsMessage,
		}

	case event.KindYouTubeSupersticker:
		return "youtube_supersticker", map[string]string{
			"username": ev.Username,
			"amount":   strconv.FormatFloat(ev.Amount, 'f', 2, 64),
		}

	case event.KindYouTubeMembershipNew:
		return "youtube_membership_new", map[string]string{
			"username": ev.Username,
			"level":    ev.MembershipLevel,
		}

	case event.KindYouTubeMembershipMileS:
		return "youtube_membership_milestone", map[string]string{
			"username": ev.Username,
			"level":    ev.MembershipLevel,
			"months":   strconv.Itoa(ev.MembershipMonths),
		}

	default:
		return string(ev.Kind), map[string]string{"username": ev.Username}
	}
}

// renderTemplate substitutes raw's "{tag}" placeholders from values. A
// tag with no entry in values is a hard error — spec.md §4.1 step 3 and
// §9(c) both require treating a missing placeholder as a reject, not a
// blank substitution or a panic, so ExecuteFunc is used directly instead
// of fasttemplate's ExecuteFuncString (which panics on TagFunc errors).
func renderTemplate(raw string, values map[string]string) (string, error) {
	tpl, err := fasttemplate.NewTemplate(raw, "{", "}")
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	_, err = tpl.ExecuteFunc(&buf, func(w io.Writer, tag string) (int, error) {
		val, ok := values[tag]
		if !ok {
			return 0, fmt.Errorf("missing placeholder %q", tag)
		}
		return w.Write([]byte(val))
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
