package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/basedlsg/Nemo-Time-sub000/internal/db"
	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// uniqueViolation is the SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

var chunkColumns = []string{"id", "document_id", "chunk_index", "text", "province", "asset", "metadata"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	checksum    TEXT NOT NULL UNIQUE,
	url         TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	province    TEXT NOT NULL DEFAULT '',
	asset       TEXT NOT NULL DEFAULT '',
	doc_class   TEXT NOT NULL DEFAULT '',
	metadata    JSONB NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	text        TEXT NOT NULL,
	province    TEXT NOT NULL DEFAULT '',
	asset       TEXT NOT NULL DEFAULT '',
	metadata    JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_failures (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source         JSONB NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_province ON documents(province);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_province_asset ON chunks(province, asset);
CREATE INDEX IF NOT EXISTS idx_ingest_failures_last_failed ON ingest_failures(last_failed_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveDocument(ctx context.Context, doc *model.Document, chunks []model.Chunk) error {
	prepareDocument(doc, chunks)

	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metadata")
	}

	rows := make([][]any, 0, len(chunks))
	for _, c := range chunks {
		chunkMeta, err := json.Marshal(c.Metadata)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal chunk metadata")
		}
		rows = append(rows, []any{c.ID, doc.ID, c.Index, c.Text, c.Metadata.Province, c.Metadata.Asset, chunkMeta})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	md := doc.Metadata
	_, err = tx.Exec(ctx,
		`INSERT INTO documents (id, checksum, url, title, province, asset, doc_class, metadata, chunk_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, md.Checksum, md.URL, md.Title, md.Province, md.Asset, md.DocClass, metaJSON, doc.ChunkCount, doc.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return eris.Wrapf(ErrDuplicate, "checksum %s", md.Checksum)
		}
		return eris.Wrap(err, "postgres: insert document")
	}

	if _, err := db.CopyFrom(ctx, tx, "chunks", chunkColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: insert chunks")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit document")
}

const pgDocumentColumns = `id, metadata, chunk_count, created_at`

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgDocumentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanPgDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("document not found: %s", id)
	}
	return doc, eris.Wrap(err, "postgres: get document")
}

func (s *PostgresStore) GetDocumentByChecksum(ctx context.Context, checksum string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgDocumentColumns+` FROM documents WHERE checksum = $1`, checksum)
	doc, err := scanPgDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return doc, eris.Wrap(err, "postgres: get document by checksum")
}

func (s *PostgresStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT ` + pgDocumentColumns + ` FROM documents WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Province != "" {
		query += ` AND province = ` + arg(filter.Province)
	}
	if filter.Asset != "" {
		query += ` AND asset = ` + arg(filter.Asset)
	}
	if filter.DocClass != "" {
		query += ` AND doc_class = ` + arg(filter.DocClass)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY created_at DESC, id LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanPgDocument(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

func (s *PostgresStore) SearchChunks(ctx context.Context, keywords []string, filter ChunkFilter, limit int) ([]model.Chunk, error) {
	keywords = usableKeywords(keywords)
	if len(keywords) == 0 || limit <= 0 {
		return nil, nil
	}

	query, args := chunkSearch(keywords, filter, limit,
		func(ph string) string { return "strpos(text, " + ph + ") > 0" },
		func(n int) string { return "$" + strconv.Itoa(n) },
	)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search chunks")
	}
	defer rows.Close()

	var out []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var metaJSON []byte
		var score int
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &metaJSON, &score); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chunk")
		}
		if err := json.Unmarshal(metaJSON, &c.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal chunk metadata")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: search chunks iterate")
}

func (s *PostgresStore) SaveIngestFailure(ctx context.Context, f model.IngestFailure) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	srcJSON, err := json.Marshal(f.Source)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal failure source")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO ingest_failures (id, source, error, error_type, retry_count, max_retries, created_at, last_failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, srcJSON, f.Error, f.ErrorType, f.RetryCount, f.MaxRetries, f.CreatedAt, f.LastFailedAt,
	)
	return eris.Wrap(err, "postgres: insert ingest failure")
}

func (s *PostgresStore) ListIngestFailures(ctx context.Context, limit int) ([]model.IngestFailure, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, error, error_type, retry_count, max_retries, created_at, last_failed_at
		 FROM ingest_failures ORDER BY last_failed_at, id LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ingest failures")
	}
	defer rows.Close()

	var out []model.IngestFailure
	for rows.Next() {
		var f model.IngestFailure
		var srcJSON []byte
		if err := rows.Scan(&f.ID, &srcJSON, &f.Error, &f.ErrorType, &f.RetryCount, &f.MaxRetries, &f.CreatedAt, &f.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ingest failure")
		}
		if err := json.Unmarshal(srcJSON, &f.Source); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal failure source")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list ingest failures iterate")
}

func (s *PostgresStore) UpdateIngestFailure(ctx context.Context, f model.IngestFailure) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_failures SET error = $1, error_type = $2, retry_count = $3, last_failed_at = $4 WHERE id = $5`,
		f.Error, f.ErrorType, f.RetryCount, f.LastFailedAt, f.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update ingest failure %s", f.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("ingest failure not found: %s", f.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteIngestFailure(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM ingest_failures WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: delete ingest failure %s", id)
}

func scanPgDocument(row pgx.Row) (*model.Document, error) {
	var d model.Document
	var metaJSON []byte
	if err := row.Scan(&d.ID, &metaJSON, &d.ChunkCount, &d.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metaJSON, &d.Metadata); err != nil {
		return nil, eris.Wrap(err, "unmarshal document metadata")
	}
	return &d, nil
}
