package textproc

import (
	"regexp"
	"strings"
)

const (
	// MinChineseRatio is the minimum CJK share of non-whitespace characters
	// for text and chunks to be considered Chinese regulatory content.
	MinChineseRatio = 0.5

	// MinTextChars is the shortest processed text worth keeping.
	MinTextChars = 50
)

var (
	multiSpaceRe    = regexp.MustCompile(` {2,}`)
	sentenceGapRe   = regexp.MustCompile(`([。！？])([^\s。！？])`)
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
)

// ProcessText normalizes, validates and structurally marks raw document
// text. It returns ok=false when the text is blank, less than half Chinese,
// or shorter than MinTextChars after processing; callers skip such documents.
//
// Processing an already processed text is a no-op.
func ProcessText(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}

	text := normalizeText(raw)
	if contentRatio(text) < MinChineseRatio {
		return "", false
	}

	text = markStructure(text)
	text = cleanText(text)

	if RuneLen(text) < MinTextChars {
		return "", false
	}
	return text, true
}

// contentRatio is ChineseRatio over text with structure tags removed.
func contentRatio(text string) float64 {
	return ChineseRatio(stripTags(text))
}

// cleanText collapses repeated spaces, puts one space after sentence-ending
// punctuation that runs straight into the next character, and strips
// trailing whitespace from every line.
func cleanText(text string) string {
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = sentenceGapRe.ReplaceAllString(text, "$1 $2")
	text = trailingSpaceRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
