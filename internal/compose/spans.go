package compose

import (
	"strings"
)

// maxSpanChars bounds a single verbatim span. Longer sentences are cut to a
// window that opens shortly before the first keyword hit.
const (
	maxSpanChars   = 240
	spanLeadChars  = 60
	fallbackChars  = 120
	minQuoteChars  = 21
	spansPerSource = 2
)

func isSpanBreak(r rune) bool {
	switch r {
	case '。', '！', '？', '；', '\n':
		return true
	}
	return false
}

// PickVerbatimSpans returns up to limit substrings of text, each a sentence
// (or a window of one) containing at least one keyword. Spans are never
// rewritten, only cut.
func PickVerbatimSpans(text string, keywords []string, limit int) []string {
	if limit <= 0 || len(keywords) == 0 {
		return nil
	}

	var spans []string
	for _, sentence := range splitSpans(text) {
		if len(spans) == limit {
			break
		}
		idx := firstKeyword(sentence, keywords)
		if idx < 0 {
			continue
		}
		spans = append(spans, window(sentence, idx))
	}
	return spans
}

// splitSpans cuts text after each span break, keeping the terminator, and
// trims surrounding whitespace.
func splitSpans(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if !isSpanBreak(r) {
			continue
		}
		end := i + len(string(r))
		if s := strings.TrimSpace(text[start:end]); s != "" {
			out = append(out, s)
		}
		start = end
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// firstKeyword returns the rune offset of the earliest keyword occurrence in
// s, or -1.
func firstKeyword(s string, keywords []string) int {
	best := -1
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if i := strings.Index(s, kw); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	if best < 0 {
		return -1
	}
	return len([]rune(s[:best]))
}

// window returns s whole when it fits, else a maxSpanChars slice starting a
// little before the keyword at rune offset hit.
func window(s string, hit int) string {
	runes := []rune(s)
	if len(runes) <= maxSpanChars {
		return s
	}
	start := hit - spanLeadChars
	if start < 0 {
		start = 0
	}
	if start+maxSpanChars > len(runes) {
		start = len(runes) - maxSpanChars
	}
	return string(runes[start : start+maxSpanChars])
}

// leadingSpan is the fallback quote: the first fallbackChars of the
// stripped text.
func leadingSpan(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > fallbackChars {
		runes = runes[:fallbackChars]
	}
	return string(runes)
}
