package provider

import (
	"regexp"
	"strings"
)

const (
	DefaultReasoningBegin = "<think>"
	DefaultReasoningEnd   = "</think>"
)

// Extractor splits a model response into its delimited reasoning segments and
// the final answer.
type Extractor struct {
	pattern *regexp.Regexp
}

// NewExtractor builds an extractor for the begin/end marker pair. Empty
// markers fall back to <think> and </think>.
func NewExtractor(begin, end string) *Extractor {
	if begin == "" {
		begin = DefaultReasoningBegin
	}
	if end == "" {
		end = DefaultReasoningEnd
	}
	return &Extractor{
		pattern: regexp.MustCompile(`(?s)` + regexp.QuoteMeta(begin) + `(.*?)` + regexp.QuoteMeta(end)),
	}
}

// Extract returns the reasoning segments joined by newlines and the text with
// those segments removed. Both are trimmed.
func (e *Extractor) Extract(text string) (reasoning, final string) {
	matches := e.pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", strings.TrimSpace(text)
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m[1])
	}
	reasoning = strings.TrimSpace(strings.Join(parts, "\n"))
	final = strings.TrimSpace(e.pattern.ReplaceAllLiteralString(text, ""))
	return reasoning, final
}
