package processor

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emoteRe      = regexp.MustCompile(`:[A-Za-z0-9_]+:`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

const forbiddenChars = "<>{}[]|\\^~`"

// sanitize applies the speech-sanitization chain from spec.md §4.1 step
// 5, in order: strip emote tokens, strip URLs, collapse whitespace,
// strip forbidden characters, collapse long repeats. The chain is repeated
// until the text stops changing (stripping forbidden characters can join
// pieces into a new whitespace run, emote token or URL), so it is
// idempotent.
func sanitize(text string) string {
	for {
		prev := text
		text = emoteRe.ReplaceAllString(text, "")
		text = urlRe.ReplaceAllString(text, "")
		text = strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
		text = stripForbidden(text)
		text = collapseRepeats(text)
		if text == prev {
			return text
		}
	}
}

func stripForbidden(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenChars, r) {
			return -1
		}
		return r
	}, s)
}

// collapseRepeats collapses any run of 4 or more identical characters
// down to 2 (e.g. "yaaaay" → "yaay"). No stdlib or corpus regexp engine
// supports backreference-based repeat collapsing, so this is a plain
// hand-written scan.
func collapseRepeats(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes))

	i := 0
	for i < len(runes) {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		count := j - i
		if count >= 4 {
			count = 2
		}
		for k := 0; k < count; k++ {
			b.WriteRune(runes[i])
		}
		i = j
	}
	return b.String()
}

// maskProfanity replaces matches from the configured wordlist with
// asterisks of equal rune length, leaving surrounding text unchanged.
func maskProfanity(text string, words []*regexp.Regexp) string {
	for _, re := range words {
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			return strings.Repeat("*", utf8.RuneCountInString(m))
		})
	}
	return text
}
