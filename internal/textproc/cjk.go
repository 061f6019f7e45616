// Package textproc turns raw, possibly OCR'd Chinese regulatory text into
// validated retrieval-ready chunks, and provides the sentence splitting and
// key-term extraction used by ingestion and answering.
//
// Every function here is pure: no I/O, no shared state, safe for concurrent
// use. Unusable input yields empty results, never errors.
package textproc

import (
	"unicode"
	"unicode/utf8"
)

// IsCJK reports whether r lies in the CJK Unified Ideographs block
// U+4E00..U+9FFF.
func IsCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

// ChineseRatio returns the share of CJK ideographs among the non-whitespace
// runes of s, or 0 when s has no non-whitespace runes.
func ChineseRatio(s string) float64 {
	var cjk, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if IsCJK(r) {
			cjk++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(cjk) / float64(total)
}

// CJKShare returns the share of CJK ideographs among all runes of s,
// whitespace included, or 0 for an empty string.
func CJKShare(s string) float64 {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	var cjk int
	for _, r := range s {
		if IsCJK(r) {
			cjk++
		}
	}
	return float64(cjk) / float64(n)
}

// RuneLen is the character length used for every size bound in this package.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
