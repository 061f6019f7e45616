package model

import "time"

// Language tags produced by metadata extraction.
const (
	LanguageChinese = "zh-CN"
	LanguageEnglish = "en"
	LanguageMixed   = "mixed"
	LanguageUnknown = "unknown"
)

// DocClassGrid is the only document class the keyword heuristics populate.
const DocClassGrid = "grid"

// DocumentMetadata holds facts derived from a raw document and its source
// URL. Empty strings mean the field could not be determined.
type DocumentMetadata struct {
	Title              string   `json:"title,omitempty"`
	EffectiveDate      string   `json:"effective_date,omitempty"`
	DocType            string   `json:"doc_type,omitempty"`
	URL                string   `json:"url,omitempty"`
	Checksum           string   `json:"checksum"`
	Province           string   `json:"province,omitempty"`
	Asset              string   `json:"asset,omitempty"`
	DocClass           string   `json:"doc_class,omitempty"`
	IssuingAuthority   string   `json:"issuing_authority,omitempty"`
	DocumentNumber     string   `json:"document_number,omitempty"`
	PublicationDate    string   `json:"publication_date,omitempty"`
	Language           string   `json:"language"`
	ContentLength      int      `json:"content_length"`
	RegulatoryScope    []string `json:"regulatory_scope"`
	SourceDomain       string   `json:"source_domain"`
	IsGovernmentSource bool     `json:"is_government_source"`
	URLPathDepth       int      `json:"url_path_depth"`
	HasQueryParams     bool     `json:"has_query_params"`
}

// CompletenessReport summarizes which metadata fields are populated.
type CompletenessReport struct {
	IsComplete      bool     `json:"is_complete"`
	MissingRequired []string `json:"missing_required"`
	MissingOptional []string `json:"missing_optional"`
	QualityScore    float64  `json:"quality_score"`
}

// ChunkMetadata is the classification context embedded in every chunk.
type ChunkMetadata struct {
	Province      string `json:"province,omitempty"`
	Asset         string `json:"asset,omitempty"`
	DocClass      string `json:"doc_class,omitempty"`
	EffectiveDate string `json:"effective_date,omitempty"`
	Title         string `json:"title,omitempty"`
	URL           string `json:"url,omitempty"`
	Language      string `json:"language,omitempty"`
	ContentType   string `json:"content_type"`
}

// ContentTypeRegulatory tags chunks cut from regulatory documents.
const ContentTypeRegulatory = "regulatory_text"

// Chunk is a processed, retrieval-ready piece of document text.
type Chunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id,omitempty"`
	Text       string        `json:"text"`
	Index      int           `json:"chunk_index"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// Document is a stored, ingested document.
type Document struct {
	ID         string           `json:"id"`
	Metadata   DocumentMetadata `json:"metadata"`
	ChunkCount int              `json:"chunk_count"`
	CreatedAt  time.Time        `json:"created_at"`
}

// ToCandidate converts a stored chunk into a composer candidate.
func (c Chunk) ToCandidate() Candidate {
	return Candidate{
		Text:          c.Text,
		Title:         c.Metadata.Title,
		URL:           c.Metadata.URL,
		EffectiveDate: c.Metadata.EffectiveDate,
		Province:      c.Metadata.Province,
		Asset:         c.Metadata.Asset,
	}
}
