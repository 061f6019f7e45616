package model

import (
	"encoding/json"
	"strings"
)

// Candidate is a retrieved passage considered for quoting in an answer.
// It is immutable once built and consumed once by the composer.
type Candidate struct {
	Text          string `json:"text"`
	Title         string `json:"title,omitempty"`
	URL           string `json:"url,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
	Province      string `json:"province,omitempty"`
	Asset         string `json:"asset,omitempty"`
}

// candidateMeta is the nested "metadata" object some retrievers attach.
type candidateMeta struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	EffectiveDate string `json:"effective_date"`
	Province      string `json:"province"`
	Asset         string `json:"asset"`
}

// rawCandidate accepts both shapes retrievers emit: provenance either in a
// "metadata" sub-object or flattened at the top level, and the passage under
// "text" or "content".
type rawCandidate struct {
	Text          string         `json:"text"`
	Content       string         `json:"content"`
	Title         string         `json:"title"`
	URL           string         `json:"url"`
	EffectiveDate string         `json:"effective_date"`
	Province      string         `json:"province"`
	Asset         string         `json:"asset"`
	Metadata      *candidateMeta `json:"metadata"`
}

// UnmarshalJSON normalizes either candidate shape into one record.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw rawCandidate
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Candidate{Text: raw.Text}
	if strings.TrimSpace(c.Text) == "" {
		c.Text = raw.Content
	}

	if raw.Metadata != nil {
		c.Title = raw.Metadata.Title
		c.URL = raw.Metadata.URL
		c.EffectiveDate = raw.Metadata.EffectiveDate
		c.Province = raw.Metadata.Province
		c.Asset = raw.Metadata.Asset
		return nil
	}

	c.Title = raw.Title
	c.URL = raw.URL
	c.EffectiveDate = raw.EffectiveDate
	c.Province = raw.Province
	c.Asset = raw.Asset
	return nil
}

// Citation is a deduplicated reference to a source document backing a quote.
// URL is the dedup key.
type Citation struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	EffectiveDate string `json:"effective_date,omitempty"`
}

// ComposedAnswer is the composer output. An empty AnswerZH means no answer
// could be produced; Citations is then empty too.
type ComposedAnswer struct {
	AnswerZH  string     `json:"answer_zh"`
	Citations []Citation `json:"citations"`
}

// EmptyAnswer returns the "no answer producible" result.
func EmptyAnswer() ComposedAnswer {
	return ComposedAnswer{AnswerZH: "", Citations: []Citation{}}
}

// IsEmpty reports whether the answer carries no prose.
func (a ComposedAnswer) IsEmpty() bool {
	return a.AnswerZH == ""
}
