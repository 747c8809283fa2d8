package ratelimit

import (
	"testing"
	"time"
)

// TestAllowBoundedByRate is spec.md §8 invariant 5: at most r admissions
// per window per key.
func TestAllowBoundedByRate(t *testing.T) {
	l := New(time.Minute)
	l.SetRate("twitch", 3)

	allowed := 0
	for i := 0; i < 10; i++ {
		if l.Allow("twitch") {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want 3", allowed)
	}
}

func TestAllowResetsAfterWindow(t *testing.T) {
	l := New(time.Minute)
	l.SetRate("twitch", 1)

	fakeNow := time.Now()
	l.now = func() time.Time { return fakeNow }

	if !l.Allow("twitch") {
		t.Fatalf("first admission should be allowed")
	}
	if l.Allow("twitch") {
		t.Fatalf("second admission within window should be rejected")
	}

	fakeNow = fakeNow.Add(time.Minute + time.Second)
	if !l.Allow("twitch") {
		t.Fatalf("admission after window elapses should be allowed")
	}
}

func TestRemainingTracksAdmissions(t *testing.T) {
	l := New(time.Minute)
	l.SetRate("youtube", 5)

	if got := l.Remaining("youtube"); got != 5 {
		t.Fatalf("remaining = %d, want 5", got)
	}
	l.Allow("youtube")
	l.Allow("youtube")
	if got := l.Remaining("youtube"); got != 3 {
		t.Fatalf("remaining = %d, want 3", got)
	}
}

func TestUnconfiguredKeyAllowsNothing(t *testing.T) {
	l := New(time.Minute)
	if l.Allow("unknown") {
		t.Fatalf("key with no configured rate should allow nothing")
	}
}

func TestIndependentWindowsPerKey(t *testing.T) {
	l := New(time.Minute)
	l.SetRate("twitch", 1)
	l.SetRate("youtube", 1)

	if !l.Allow("twitch") || !l.Allow("youtube") {
		t.Fatalf("each key should get its own independent budget")
	}
	if l.Allow("twitch") || l.Allow("youtube") {
		t.Fatalf("both keys should now be exhausted")
	}
}
