// Package compose turns ranked candidate passages into a short Chinese
// answer built from verbatim quotes, with one citation per source URL.
package compose

import (
	"strings"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/internal/textproc"
)

const (
	// MaxCandidates is how many leading candidates are considered.
	MaxCandidates = 5

	// MaxQuotes is how many quote bullets make it into the answer.
	MaxQuotes = 4
)

// Default titles for sources that carry none.
const (
	UnknownTitleZH = "未知文档"
	UnknownTitleEN = "Unknown Document"
)

var provinceNames = map[string]string{
	"gd": "广东",
	"sd": "山东",
	"nm": "内蒙古",
}

var assetNames = map[string]string{
	"solar": "光伏",
	"coal":  "煤电",
	"wind":  "风电",
}

const (
	defaultProvinceName = "综合"
	defaultAssetName    = "能源"
)

// Compose builds an answer to question from the first MaxCandidates
// candidates. It returns model.EmptyAnswer() when no candidate yields a
// usable quote or no quote can be attributed to a source URL.
func Compose(candidates []model.Candidate, question, lang string) model.ComposedAnswer {
	if len(candidates) == 0 {
		return model.EmptyAnswer()
	}

	keywords := ExtractKeywords(question)
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	var quotes []string
	citations := []model.Citation{}
	seen := make(map[string]bool)

	for _, c := range candidates {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}

		spans := PickVerbatimSpans(text, keywords, spansPerSource)
		if len(spans) == 0 {
			spans = []string{leadingSpan(text)}
		}

		cite := FormatCitation(c, lang)
		for _, span := range spans {
			if textproc.RuneLen(span) < minQuoteChars {
				continue
			}
			quotes = append(quotes, formatQuote(span, cite))
			if cite.URL != "" && !seen[cite.URL] {
				seen[cite.URL] = true
				citations = append(citations, cite)
			}
		}
	}

	if len(quotes) == 0 || len(citations) == 0 {
		return model.EmptyAnswer()
	}

	if len(quotes) > MaxQuotes {
		quotes = quotes[:MaxQuotes]
	}

	var b strings.Builder
	b.WriteString("并网要点（")
	b.WriteString(displayName(candidates[0].Province, provinceNames, defaultProvinceName))
	b.WriteString(" / ")
	b.WriteString(displayName(candidates[0].Asset, assetNames, defaultAssetName))
	b.WriteString("）\n- 相关规定：\n")
	b.WriteString(strings.Join(quotes, "\n"))

	return model.ComposedAnswer{AnswerZH: b.String(), Citations: citations}
}

// FormatCitation projects a candidate's provenance into a Citation.
func FormatCitation(c model.Candidate, lang string) model.Citation {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = unknownTitle(lang)
	}
	return model.Citation{
		Title:         title,
		URL:           strings.TrimSpace(c.URL),
		EffectiveDate: strings.TrimSpace(c.EffectiveDate),
	}
}

func unknownTitle(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		return UnknownTitleEN
	}
	return UnknownTitleZH
}

func formatQuote(span string, cite model.Citation) string {
	var b strings.Builder
	b.WriteString(" • ")
	b.WriteString(span)
	b.WriteString("〔《")
	b.WriteString(cite.Title)
	b.WriteString("》")
	if cite.EffectiveDate != "" {
		b.WriteString("，生效：")
		b.WriteString(cite.EffectiveDate)
	}
	b.WriteString("〕")
	return b.String()
}

func displayName(code string, names map[string]string, empty string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return empty
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
