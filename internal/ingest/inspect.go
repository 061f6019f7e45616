package ingest

import (
	"context"

	"github.com/basedlsg/Nemo-Time-sub000/internal/metadata"
	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/internal/textproc"
)

// Report is what ingestion would derive from a source, without storing it.
type Report struct {
	Metadata     model.DocumentMetadata   `json:"metadata"`
	Completeness model.CompletenessReport `json:"completeness"`
	KeyTerms     []string                 `json:"key_terms"`
	Usable       bool                     `json:"usable"`
	Chunks       []model.Chunk            `json:"chunks"`
}

// Inspect loads src and runs metadata extraction, text processing and
// chunking over it.
func (p *Pipeline) Inspect(ctx context.Context, src model.Source) (Report, error) {
	raw, sourceURL, err := p.load(ctx, src.Location)
	if err != nil {
		return Report{}, err
	}

	md := p.extractor.Extract(raw, sourceURL, src.Hints)
	report := Report{
		Metadata:     md,
		Completeness: metadata.ValidateCompleteness(md),
		KeyTerms:     textproc.ExtractKeyTerms(raw),
		Chunks:       []model.Chunk{},
	}

	processed, ok := textproc.ProcessText(raw)
	if !ok {
		return report, nil
	}
	report.Usable = true
	report.Chunks = p.chunker.CreateChunks(processed, md)
	return report, nil
}
