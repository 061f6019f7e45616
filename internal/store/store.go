// Package store persists ingested documents, their chunks and the ingest
// dead-letter queue.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
)

// ErrDuplicate is returned when a document with the same checksum is
// already stored.
var ErrDuplicate = eris.New("store: duplicate document")

// DocumentFilter specifies criteria for listing documents.
type DocumentFilter struct {
	Province string `json:"province,omitempty"`
	Asset    string `json:"asset,omitempty"`
	DocClass string `json:"doc_class,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// ChunkFilter narrows a chunk search. Chunks without a province or asset
// match any filter value: national rules apply everywhere.
type ChunkFilter struct {
	Province string `json:"province,omitempty"`
	Asset    string `json:"asset,omitempty"`
}

// Store defines the persistence interface for ingestion and retrieval.
type Store interface {
	// Documents
	SaveDocument(ctx context.Context, doc *model.Document, chunks []model.Chunk) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	GetDocumentByChecksum(ctx context.Context, checksum string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error)

	// Retrieval
	SearchChunks(ctx context.Context, keywords []string, filter ChunkFilter, limit int) ([]model.Chunk, error)

	// Dead-letter queue
	SaveIngestFailure(ctx context.Context, f model.IngestFailure) error
	ListIngestFailures(ctx context.Context, limit int) ([]model.IngestFailure, error)
	UpdateIngestFailure(ctx context.Context, f model.IngestFailure) error
	DeleteIngestFailure(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

const defaultListLimit = 100

// chunkSearch builds the ranked keyword search shared by both backends.
// contains renders a "text contains keyword" test for the given
// placeholder; ph renders the n-th (1-based) placeholder.
func chunkSearch(keywords []string, filter ChunkFilter, limit int, contains func(ph string) string, ph func(n int) string) (string, []any) {
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}

	score := ""
	for i, kw := range keywords {
		if i > 0 {
			score += " + "
		}
		score += "(CASE WHEN " + contains(next(kw)) + " THEN 1 ELSE 0 END)"
	}

	q := `SELECT id, document_id, chunk_index, text, metadata, score FROM (
	SELECT id, document_id, chunk_index, text, metadata, province, asset, ` + score + ` AS score FROM chunks
) ranked WHERE score > 0`
	if filter.Province != "" {
		q += " AND (province = " + next(filter.Province) + " OR province = '')"
	}
	if filter.Asset != "" {
		q += " AND (asset = " + next(filter.Asset) + " OR asset = '')"
	}
	q += " ORDER BY score DESC, document_id, chunk_index LIMIT " + next(limit)
	return q, args
}

// usableKeywords drops blank keywords.
func usableKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
