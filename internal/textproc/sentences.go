package textproc

import "strings"

const (
	// longSentenceChars triggers a structural split of a sentence.
	longSentenceChars = 200
	// veryLongSentenceChars triggers the comma fallback split.
	veryLongSentenceChars = 300
	// commaMergeChars caps the pieces re-merged by the comma fallback.
	commaMergeChars = 150
)

func isSentenceEnd(r rune) bool {
	switch r {
	case '。', '！', '？', '；':
		return true
	}
	return false
}

// SplitIntoSentences splits text on Chinese sentence terminators, keeping
// each terminator with its sentence. Sentences longer than 200 characters
// are split again at article/chapter/section/item boundaries when at least
// two occur inside them; failing that, sentences over 300 characters are cut
// at Chinese commas and greedily re-merged into pieces of at most 150
// characters. Only trimmed, non-empty sentences are returned, in order.
func SplitIntoSentences(text string) []string {
	var out []string
	for _, s := range splitOnTerminators(text) {
		for _, piece := range splitLong(s) {
			if piece = strings.TrimSpace(piece); piece != "" {
				out = append(out, piece)
			}
		}
	}
	return out
}

func splitOnTerminators(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if isSentenceEnd(r) {
			end := i + len(string(r))
			out = append(out, text[start:end])
			start = end
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func splitLong(s string) []string {
	if RuneLen(s) <= longSentenceChars {
		return []string{s}
	}

	if bounds := boundaryRe.FindAllStringIndex(s, -1); len(bounds) >= 2 {
		pieces := make([]string, 0, len(bounds)+1)
		prev := 0
		for _, b := range bounds {
			if b[0] > prev {
				pieces = append(pieces, s[prev:b[0]])
			}
			prev = b[0]
		}
		return append(pieces, s[prev:])
	}

	if RuneLen(s) > veryLongSentenceChars {
		return splitOnCommas(s)
	}
	return []string{s}
}

// splitOnCommas cuts s at '，', re-appends the comma to every fragment but
// the last, and greedily merges fragments into pieces of at most
// commaMergeChars characters. A single fragment longer than the cap is kept
// whole.
func splitOnCommas(s string) []string {
	frags := strings.Split(s, "，")
	for i := range frags[:len(frags)-1] {
		frags[i] += "，"
	}

	var pieces []string
	var current string
	for _, f := range frags {
		if current != "" && RuneLen(current)+RuneLen(f) > commaMergeChars {
			pieces = append(pieces, current)
			current = ""
		}
		current += f
	}
	if current != "" {
		pieces = append(pieces, current)
	}
	return pieces
}
