package textproc

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// bracketReplacer maps full-width parentheses and brackets to half-width.
var bracketReplacer = strings.NewReplacer(
	"（", "(",
	"）", ")",
	"【", "[",
	"】", "]",
	"［", "[",
	"］", "]",
)

// ocrReplacer fixes common OCR digit confusions. It is context-free and will
// also rewrite legitimate Latin letters ("Tom" becomes "T0m"); existing
// indexed output depends on it, so it stays until OCR confidence is
// available to gate it.
var ocrReplacer = strings.NewReplacer(
	"O", "0",
	"o", "0",
	"l", "1",
)

var (
	horizontalSpaceRe = regexp.MustCompile(`[ \t\f\v\r\x{00a0}\x{3000}]+`)
	paragraphBreakRe  = regexp.MustCompile(`\n(?: ?\n)+`)
	repeatedPeriodRe  = regexp.MustCompile(`。{2,}`)
	repeatedCommaRe   = regexp.MustCompile(`，{2,}`)
	queryWhitespaceRe = regexp.MustCompile(`\s+`)
)

// normalizeText applies the bracket, whitespace, punctuation and OCR passes.
// Single newlines survive so the structural pass still sees line starts;
// blank-line runs collapse to one paragraph break.
func normalizeText(text string) string {
	text = bracketReplacer.Replace(text)
	text = horizontalSpaceRe.ReplaceAllString(text, " ")
	text = paragraphBreakRe.ReplaceAllString(text, "\n\n")
	text = repeatedPeriodRe.ReplaceAllString(text, "。")
	text = repeatedCommaRe.ReplaceAllString(text, "，")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = correctOCR(line)
	}
	return strings.Join(lines, "\n")
}

// correctOCR applies ocrReplacer to a line, leaving a leading structure tag
// untouched so re-processing already tagged text is stable.
func correctOCR(line string) string {
	if tag := leadingTag(line); tag != "" {
		return tag + ocrReplacer.Replace(line[len(tag):])
	}
	return ocrReplacer.Replace(line)
}

// NormalizeQuery canonicalizes raw user query text: full-width letters,
// digits and punctuation fold to their narrow forms, whitespace runs
// collapse to one space, and the ends are trimmed.
func NormalizeQuery(q string) string {
	q = width.Fold.String(q)
	q = queryWhitespaceRe.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}
