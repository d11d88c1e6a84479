// Package textclean strips chat-client artifacts from message text before it
// is used as a prompt or posted back as a reply.
package textclean

import (
	"regexp"
	"strings"
)

// DefaultDelimiter starts a mention in most chat clients.
const DefaultDelimiter = "@"

// mojibake maps UTF-8 text that was decoded as Windows-1252 back to ASCII.
// Applied in order.
var mojibake = []struct{ from, to string }{
	{"ðŸ˜Š", ":)"},
	{"ðŸ˜", ":)"},
	{"ğŸ˜", ":)"},
	{"ä¸»ä¹‰", ""},
	{"€™", "'"},
	{"€\"", "-"},
	{"â€\"", "-"},
	{"â€™", "'"},
}

var (
	emptyParens   = regexp.MustCompile(`\(\s*\)`)
	emptyBrackets = regexp.MustCompile(`\[\s*\]`)

	leadingClock  = regexp.MustCompile(`^\s*\d{1,2}:\d{1,2}(?:\s*[AaPpMm]{2})?`)
	trailingClock = regexp.MustCompile(`\d{1,2}:\d{1,2}(?:\s*[AaPpMm]{2})?\s*$`)
)

// Sanitize returns raw reduced to single-spaced printable ASCII with empty
// bracket remnants removed. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(raw string) string {
	text := raw
	for _, r := range mojibake {
		text = strings.ReplaceAll(text, r.from, r.to)
	}
	text = collapse(asciiOnly(text))

	for {
		next := emptyBrackets.ReplaceAllString(emptyParens.ReplaceAllString(text, ""), "")
		if next == text {
			break
		}
		text = next
	}

	return strings.TrimSpace(collapse(text))
}

// SanitizeMention cleans an inbound chat row addressed to tag. Feed noise
// before the first delimiter, clock times the client renders around the body,
// and every case-insensitive occurrence of tag are removed before Sanitize.
// An empty delimiter means DefaultDelimiter.
func SanitizeMention(raw, tag, delimiter string) string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	text := raw
	if i := strings.Index(text, delimiter); i >= 0 {
		text = text[i:]
	}
	text = leadingClock.ReplaceAllString(text, "")
	text = trailingClock.ReplaceAllString(text, "")

	tagPattern := mentionPattern(tag, delimiter)
	for {
		next := text
		if tagPattern != nil {
			next = tagPattern.ReplaceAllString(next, "")
		}
		next = Sanitize(next)
		if next == text {
			return next
		}
		text = next
	}
}

func mentionPattern(tag, delimiter string) *regexp.Regexp {
	if tag == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:` + regexp.QuoteMeta(delimiter) + `)?` + regexp.QuoteMeta(tag) + `\s*`)
}

func asciiOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < 0x80 {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
