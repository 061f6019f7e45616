// Package metadata derives structured metadata from raw regulatory text and
// its source URL using ordered keyword and pattern tables. Nothing here
// performs I/O; every field degrades to its zero value when it cannot be
// determined.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/internal/textproc"
)

// Scan windows, in characters from the start of the text.
const (
	provinceWindow  = 1000
	assetWindow     = 2000
	gridWindow      = 1000
	authorityWindow = 500
	docNumberWindow = 300
	dateWindow      = 1000

	maxScopeKeywords = 10
)

// Extractor derives DocumentMetadata from text and URL.
type Extractor struct {
	rules Rules
}

// New creates an Extractor over the given rule tables.
func New(rules Rules) *Extractor {
	return &Extractor{rules: rules}
}

// Rules returns the extractor's rule tables.
func (e *Extractor) Rules() Rules { return e.rules }

// Extract builds the metadata record for one raw document. Hints override
// province, asset and doc class detection when they are usable.
func (e *Extractor) Extract(text, rawURL string, hints model.Hints) model.DocumentMetadata {
	ua := analyzeURL(rawURL)

	title := inferTitle(text)
	if title == "" {
		title = titleFromURL(rawURL)
	}

	return model.DocumentMetadata{
		Title:              title,
		EffectiveDate:      extractEffectiveDate(text),
		DocType:            docTypeFromURL(rawURL),
		URL:                rawURL,
		Checksum:           Checksum(text),
		Province:           e.detectProvince(text, rawURL, hints.Province),
		Asset:              e.detectAsset(text, rawURL, hints.Asset),
		DocClass:           e.detectDocClass(text, rawURL, hints.DocClass),
		IssuingAuthority:   extractAuthority(text),
		DocumentNumber:     extractDocumentNumber(text),
		PublicationDate:    extractPublicationDate(text),
		Language:           DetectLanguage(text),
		ContentLength:      textproc.RuneLen(text),
		RegulatoryScope:    e.regulatoryScope(text),
		SourceDomain:       ua.domain,
		IsGovernmentSource: ua.government,
		URLPathDepth:       ua.pathDepth,
		HasQueryParams:     ua.hasQuery,
	}
}

// Checksum returns the lowercase hex SHA-256 digest of text.
func Checksum(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// DetectLanguage classifies text by its share of Chinese characters.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return model.LanguageUnknown
	}
	ratio := textproc.ChineseRatio(text)
	switch {
	case ratio >= 0.3:
		return model.LanguageChinese
	case ratio < 0.1:
		return model.LanguageEnglish
	default:
		return model.LanguageMixed
	}
}

func (e *Extractor) detectProvince(text, rawURL, hint string) string {
	if code := e.rules.NormalizeProvince(hint); code != "" {
		return code
	}

	lowerURL := strings.ToLower(rawURL)
	for _, p := range e.rules.Provinces {
		for _, frag := range p.URLFragments {
			if frag != "" && strings.Contains(lowerURL, strings.ToLower(frag)) {
				return p.Code
			}
		}
	}

	head := textproc.Truncate(text, provinceWindow)
	for _, p := range e.rules.Provinces {
		for _, name := range p.TextNames {
			if name != "" && strings.Contains(head, name) {
				return p.Code
			}
		}
	}
	return ""
}

func (e *Extractor) detectAsset(text, rawURL, hint string) string {
	if code := e.rules.NormalizeAsset(hint); code != "" {
		return code
	}

	lowerURL := strings.ToLower(rawURL)
	for _, a := range e.rules.Assets {
		for _, kw := range a.URLKeywords {
			if kw != "" && strings.Contains(lowerURL, strings.ToLower(kw)) {
				return a.Code
			}
		}
	}

	head := textproc.Truncate(text, assetWindow)
	best, bestScore, tied := "", 0, false
	for _, a := range e.rules.Assets {
		score := 0
		for _, kw := range a.TextKeywords {
			if kw != "" {
				score += strings.Count(head, kw)
			}
		}
		switch {
		case score > bestScore:
			best, bestScore, tied = a.Code, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return best
}

func (e *Extractor) detectDocClass(text, rawURL, hint string) string {
	if hint = strings.TrimSpace(hint); hint != "" {
		return hint
	}

	haystack := strings.ToLower(textproc.Truncate(text, gridWindow)) + " " + strings.ToLower(rawURL)
	for _, kw := range e.rules.GridKeywords {
		if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
			return model.DocClassGrid
		}
	}
	return ""
}

func (e *Extractor) regulatoryScope(text string) []string {
	lower := strings.ToLower(text)
	scope := make([]string, 0, maxScopeKeywords)
	for _, kw := range e.rules.ScopeKeywords {
		if len(scope) == maxScopeKeywords {
			break
		}
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			scope = append(scope, kw)
		}
	}
	return scope
}

// ValidateCompleteness reports which required and optional fields of md are
// missing and scores the share of populated fields.
func ValidateCompleteness(md model.DocumentMetadata) model.CompletenessReport {
	required := []struct {
		name  string
		value string
	}{
		{"title", md.Title},
		{"url", md.URL},
		{"province", md.Province},
		{"asset", md.Asset},
		{"doc_class", md.DocClass},
	}
	optional := []struct {
		name  string
		value string
	}{
		{"effective_date", md.EffectiveDate},
		{"issuing_authority", md.IssuingAuthority},
		{"document_number", md.DocumentNumber},
	}

	report := model.CompletenessReport{
		MissingRequired: []string{},
		MissingOptional: []string{},
	}
	present := 0
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			report.MissingRequired = append(report.MissingRequired, f.name)
			continue
		}
		present++
	}
	for _, f := range optional {
		if strings.TrimSpace(f.value) == "" {
			report.MissingOptional = append(report.MissingOptional, f.name)
			continue
		}
		present++
	}

	report.IsComplete = len(report.MissingRequired) == 0
	report.QualityScore = float64(present) / float64(len(required)+len(optional))
	return report
}
