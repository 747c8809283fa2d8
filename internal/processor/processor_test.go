package processor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/example/alertvoice/internal/config"
	"github.com/example/alertvoice/internal/dedup"
	"github.com/example/alertvoice/internal/event"
	"github.com/example/alertvoice/internal/ratelimit"
)

type fakeSynth struct {
	calls []string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voice string, speed float64) (string, error) {
	f.calls = append(f.calls, text)
	return "/cache/" + text[:minInt(len(text), 8)] + ".wav", nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

type fakeEnqueuer struct {
	msgs []*event.TTSMessage
}

func (f *fakeEnqueuer) Enqueue(msg *event.TTSMessage) bool {
	f.msgs = append(f.msgs, msg)
	return true
}

func newTestProcessor(t *testing.T, mutate func(*config.Config)) (*Processor, *fakeSynth, *fakeEnqueuer) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	limiter := ratelimit.New(time.Minute)
	detector := dedup.New(5 * time.Second)
	synth := &fakeSynth{}
	out := &fakeEnqueuer{}
	return New(cfg, limiter, detector, synth, out), synth, out
}

// TestBitsBelowThresholdRejected is boundary scenario S1.
func TestBitsBelowThresholdRejected(t *testing.T) {
	p, _, out := newTestProcessor(t, func(c *config.Config) {
		c.Filters.MinBits = 100
	})
	ev, err := event.NewTwitchBits("Alice", 99, "", false, nil)
	if err != nil {
		t.Fatalf("construct event: %v", err)
	}
	if p.Process(context.Background(), ev) {
		t.Fatalf("event below min_bits should be rejected")
	}
	if len(out.msgs) != 0 {
		t.Fatalf("no message should have been queued")
	}
}

// TestBitsAtThresholdQueued is boundary scenario S2.
func TestBitsAtThresholdQueued(t *testing.T) {
	p, _, out := newTestProcessor(t, func(c *config.Config) {
		c.Filters.MinBits = 100
	})
	ev, err := event.NewTwitchBits("Alice", 100, "", false, nil)
	if err != nil {
		t.Fatalf("construct event: %v", err)
	}
	if !p.Process(context.Background(), ev) {
		t.Fatalf("event at min_bits should be queued")
	}
	if len(out.msgs) != 1 {
		t.Fatalf("expected one queued message, got %d", len(out.msgs))
	}
	want := "Alice cheered 100 bits!"
	if out.msgs[0].DisplayText != want {
		t.Fatalf("display text = %q, want %q", out.msgs[0].DisplayText, want)
	}
}

// TestSuperchatBelowAndAtThreshold is boundary scenario S3.
func TestSuperchatBelowAndAtThreshold(t *testing.T) {
	p, _, out := newTestProcessor(t, func(c *config.Config) {
		c.Filters.MinCents = 100
	})

	below, err := event.NewYouTubeSuperchat("Bob", 0.50, "USD", "", nil)
	if err != nil {
		t.Fatalf("construct event: %v", err)
	}
	if p.Process(context.Background(), below) {
		t.Fatalf("$0.50 superchat should be rejected under min_cents=100")
	}

	atThreshold, err := event.NewYouTubeSuperchat("Bob", 1.00, "USD", "", nil)
	if err != nil {
		t.Fatalf("construct event: %v", err)
	}
	if !p.Process(context.Background(), atThreshold) {
		t.Fatalf("$1.00 superchat should be queued at min_cents=100")
	}
	if len(out.msgs) != 1 {
		t.Fatalf("expected one queued message, got %d", len(out.msgs))
	}
	if !strings.Contains(out.msgs[0].DisplayText, "$1.00") {
		t.Fatalf("display text %q should contain $1.00", out.msgs[0].DisplayText)
	}
}

// TestDuplicateSuppressedOnce is boundary scenario S4.
func TestDuplicateSuppressedOnce(t *testing.T) {
	p, _, out := newTestProcessor(t, nil)
	ev, err := event.NewTwitchBits("Carol", 5, "", false, nil)
	if err != nil {
		t.Fatalf("construct event: %v", err)
	}

	if !p.Process(context.Background(), ev) {
		t.Fatalf("first occurrence should be queued")
	}
	if p.Process(context.Background(), ev) {
		t.Fatalf("duplicate within window should be rejected")
	}
	if len(out.msgs) != 1 {
		t.Fatalf("expected exactly one queued message, got %d", len(out.msgs))
	}
}

func TestDisabledKindRejected(t *testing.T) {
	p, _, out := newTestProcessor(t, func(c *config.Config) {
		c.Filters.Enabled[string(event.KindTwitchBits)] = false
	})
	ev, _ := event.NewTwitchBits("Dave", 500, "", false, nil)
	if p.Process(context.Background(), ev) {
		t.Fatalf("disabled kind should be rejected")
	}
	if len(out.msgs) != 0 {
		t.Fatalf("no message should have been queued")
	}
}

func TestRateLimitedRejected(t *testing.T) {
	p, _, out := newTestProcessor(t, func(c *config.Config) {
		c.RateLimit.PerMinuteTwitch = 1
	})
	ev1, _ := event.NewTwitchBits("Eve", 10, "first", false, nil)
	ev2, _ := event.NewTwitchBits("Eve", 20, "second", false, nil)

	if !p.Process(context.Background(), ev1) {
		t.Fatalf("first event under rate limit should be queued")
	}
	if p.Process(context.Background(), ev2) {
		t.Fatalf("second event over rate limit should be rejected")
	}
	if len(out.msgs) != 1 {
		t.Fatalf("expected one queued message, got %d", len(out.msgs))
	}
}

func TestMissingTemplatePlaceholderRejects(t *testing.T) {
	p, _, out := newTestProcessor(t, func(c *config.Config) {
		c.Templates["twitch_bits_no_message"] = "{username} cheered {amount} bits via {unknown_field}"
	})
	ev, _ := event.NewTwitchBits("Frank", 10, "", false, nil)
	if p.Process(context.Background(), ev) {
		t.Fatalf("missing placeholder should reject, not panic or blank-fill")
	}
	if len(out.msgs) != 0 {
		t.Fatalf("no message should have been queued")
	}
}
