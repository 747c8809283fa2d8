package adapter

import (
	"encoding/json"
	"testing"

	"github.com/example/alertvoice/internal/event"
)

func TestDecodeDiscardsHandshakeAndPing(t *testing.T) {
	a := FakeAdapter{}
	for _, typ := range []string{"handshake", "ping"} {
		raw, _ := json.Marshal(map[string]string{"type": typ})
		ev, ok, err := a.Decode(raw)
		if err != nil {
			t.Fatalf("Decode(%s): unexpected error %v", typ, err)
		}
		if ok {
			t.Fatalf("Decode(%s): should be discarded", typ)
		}
		if ev.Kind != "" {
			t.Fatalf("Decode(%s): discarded event should be zero value, got kind %q", typ, ev.Kind)
		}
	}
}

func TestDecodeTwitchBits(t *testing.T) {
	a := FakeAdapter{}
	raw, _ := json.Marshal(map[string]any{
		"type":     "twitch_bits",
		"username": "Alice",
		"amount":   250,
		"message":  "nice stream",
	})
	ev, ok, err := a.Decode(raw)
	if err != nil || !ok {
		t.Fatalf("Decode: ok=%v err=%v", ok, err)
	}
	if ev.Kind != event.KindTwitchBits || ev.BitsAmount != 250 || ev.Username != "Alice" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDecodeTwitchBitsAnonymous(t *testing.T) {
	a := FakeAdapter{}
	raw, _ := json.Marshal(map[string]any{
		"type":      "twitch_bits",
		"username":  "RealName",
		"anonymous": true,
		"amount":    10,
	})
	ev, ok, err := a.Decode(raw)
	if err != nil || !ok {
		t.Fatalf("Decode: ok=%v err=%v", ok, err)
	}
	if ev.Username != AnonymousUsername {
		t.Fatalf("username = %q, want %q", ev.Username, AnonymousUsername)
	}
}

func TestDecodeTwitchGiftMulti(t *testing.T) {
	a := FakeAdapter{}
	raw, _ := json.Marshal(map[string]any{
		"type":      "twitch_gift",
		"username":  "Bob",
		"tier_code": "2000",
		"count":     5,
	})
	ev, ok, err := a.Decode(raw)
	if err != nil || !ok {
		t.Fatalf("Decode: ok=%v err=%v", ok, err)
	}
	if ev.Kind != event.KindTwitchGiftMulti || ev.GiftTier != 2 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDecodeYouTubeSuperchatMicros(t *testing.T) {
	a := FakeAdapter{}
	raw, _ := json.Marshal(map[string]any{
		"type":          "youtube_superchat",
		"username":      "Carol",
		"amount_micros": 2500000,
		"currency":      "USD",
	})
	ev, ok, err := a.Decode(raw)
	if err != nil || !ok {
		t.Fatalf("Decode: ok=%v err=%v", ok, err)
	}
	if ev.Amount != 2.5 {
		t.Fatalf("amount = %v, want 2.5", ev.Amount)
	}
}

func TestDecodeUnknownTypeErrors(t *testing.T) {
	a := FakeAdapter{}
	raw, _ := json.Marshal(map[string]string{"type": "something_else"})
	_, ok, err := a.Decode(raw)
	if ok || err == nil {
		t.Fatalf("unknown fixture type should error, got ok=%v err=%v", ok, err)
	}
}

func TestDecodeBadTierCodeErrors(t *testing.T) {
	a := FakeAdapter{}
	raw, _ := json.Marshal(map[string]any{
		"type":      "twitch_sub",
		"username":  "Dave",
		"tier_code": "9999",
	})
	_, ok, err := a.Decode(raw)
	if ok || err == nil {
		t.Fatalf("unknown tier code should error, got ok=%v err=%v", ok, err)
	}
}

func TestTierFromProviderCode(t *testing.T) {
	cases := map[string]int{"1000": 1, "2000": 2, "3000": 3}
	for code, want := range cases {
		got, err := TierFromProviderCode(code)
		if err != nil || got != want {
			t.Fatalf("TierFromProviderCode(%q) = %d, %v; want %d, nil", code, got, err, want)
		}
	}
	if _, err := TierFromProviderCode("bogus"); err == nil {
		t.Fatalf("expected error for unknown tier code")
	}
}

func TestMicrosToDecimal(t *testing.T) {
	if got := MicrosToDecimal(1_000_000); got != 1.0 {
		t.Fatalf("MicrosToDecimal(1_000_000) = %v, want 1.0", got)
	}
}
