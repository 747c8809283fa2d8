package processor

import (
	"regexp"
	"testing"
)

func TestSanitizeChain(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"strips emote", "hello :Kappa: world", "hello world"},
		{"strips url", "check this https://example.com/x out", "check this out"},
		{"collapses whitespace", "a    b\t\tc", "a b c"},
		{"strips forbidden chars", "a<b>{c}[d]|e^f~g`h", "abcdefgh"},
		{"collapses long repeats", "yaaaaaay", "yaay"},
		{"leaves short repeats alone", "aaa", "aaa"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sanitize(tc.in); got != tc.want {
				t.Fatalf("sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

// TestSanitizeIdempotent checks the round-trip law from spec.md §8:
// sanitize(sanitize(x)) == sanitize(x).
func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"hello :Kappa: world https://x.io/y    spaced<>out",
		"yaaaaaaaaay!!!!",
		"plain text",
		"",
	}
	for _, in := range inputs {
		once := sanitize(in)
		twice := sanitize(once)
		if once != twice {
			t.Fatalf("sanitize not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestMaskProfanity(t *testing.T) {
	words := []*regexp.Regexp{regexp.MustCompile(`(?i)\bbadword\b`)}
	got := maskProfanity("this is a badword here", words)
	want := "this is a ******* here"
	if got != want {
		t.Fatalf("maskProfanity = %q, want %q", got, want)
	}
}

func TestMaskProfanityNoMatch(t *testing.T) {
	words := []*regexp.Regexp{regexp.MustCompile(`(?i)\bbadword\b`)}
	got := maskProfanity("nothing to see here", words)
	if got != "nothing to see here" {
		t.Fatalf("maskProfanity altered clean text: %q", got)
	}
}
