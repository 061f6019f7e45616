package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; one connection keeps them in force and
	// serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	checksum    TEXT NOT NULL UNIQUE,
	url         TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	province    TEXT NOT NULL DEFAULT '',
	asset       TEXT NOT NULL DEFAULT '',
	doc_class   TEXT NOT NULL DEFAULT '',
	metadata    TEXT NOT NULL,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	text        TEXT NOT NULL,
	province    TEXT NOT NULL DEFAULT '',
	asset       TEXT NOT NULL DEFAULT '',
	metadata    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_failures (
	id             TEXT PRIMARY KEY,
	source         TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_documents_province ON documents(province);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_province_asset ON chunks(province, asset);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *model.Document, chunks []model.Chunk) error {
	prepareDocument(doc, chunks)

	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metadata")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	md := doc.Metadata
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, checksum, url, title, province, asset, doc_class, metadata, chunk_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, md.Checksum, md.URL, md.Title, md.Province, md.Asset, md.DocClass, string(metaJSON), doc.ChunkCount, doc.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: documents.checksum") {
			return eris.Wrapf(ErrDuplicate, "checksum %s", md.Checksum)
		}
		return eris.Wrap(err, "sqlite: insert document")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, chunk_index, text, province, asset, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare chunk insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, c := range chunks {
		chunkMeta, err := json.Marshal(c.Metadata)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal chunk metadata")
		}
		if _, err := stmt.ExecContext(ctx, c.ID, doc.ID, c.Index, c.Text, c.Metadata.Province, c.Metadata.Asset, string(chunkMeta)); err != nil {
			return eris.Wrapf(err, "sqlite: insert chunk %d", c.Index)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit document")
}

const documentColumns = `id, metadata, chunk_count, created_at`

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("document not found: %s", id)
	}
	return doc, eris.Wrap(err, "sqlite: get document")
}

func (s *SQLiteStore) GetDocumentByChecksum(ctx context.Context, checksum string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE checksum = ?`, checksum)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return doc, eris.Wrap(err, "sqlite: get document by checksum")
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	var args []any

	if filter.Province != "" {
		query += ` AND province = ?`
		args = append(args, filter.Province)
	}
	if filter.Asset != "" {
		query += ` AND asset = ?`
		args = append(args, filter.Asset)
	}
	if filter.DocClass != "" {
		query += ` AND doc_class = ?`
		args = append(args, filter.DocClass)
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close() //nolint:errcheck

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		docs = append(docs, *d)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list documents iterate")
}

func (s *SQLiteStore) SearchChunks(ctx context.Context, keywords []string, filter ChunkFilter, limit int) ([]model.Chunk, error) {
	keywords = usableKeywords(keywords)
	if len(keywords) == 0 || limit <= 0 {
		return nil, nil
	}

	query, args := chunkSearch(keywords, filter, limit,
		func(ph string) string { return "instr(text, " + ph + ") > 0" },
		func(int) string { return "?" },
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search chunks")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var metaJSON string
		var score int
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &metaJSON, &score); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan chunk")
		}
		if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal chunk metadata")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: search chunks iterate")
}

func (s *SQLiteStore) SaveIngestFailure(ctx context.Context, f model.IngestFailure) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	srcJSON, err := json.Marshal(f.Source)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal failure source")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ingest_failures (id, source, error, error_type, retry_count, max_retries, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, string(srcJSON), f.Error, f.ErrorType, f.RetryCount, f.MaxRetries, f.CreatedAt.UTC(), f.LastFailedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert ingest failure")
}

func (s *SQLiteStore) ListIngestFailures(ctx context.Context, limit int) ([]model.IngestFailure, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, error, error_type, retry_count, max_retries, created_at, last_failed_at
		 FROM ingest_failures ORDER BY last_failed_at, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ingest failures")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.IngestFailure
	for rows.Next() {
		var f model.IngestFailure
		var srcJSON string
		if err := rows.Scan(&f.ID, &srcJSON, &f.Error, &f.ErrorType, &f.RetryCount, &f.MaxRetries, &f.CreatedAt, &f.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ingest failure")
		}
		if err := json.Unmarshal([]byte(srcJSON), &f.Source); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal failure source")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list ingest failures iterate")
}

func (s *SQLiteStore) UpdateIngestFailure(ctx context.Context, f model.IngestFailure) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_failures SET error = ?, error_type = ?, retry_count = ?, last_failed_at = ? WHERE id = ?`,
		f.Error, f.ErrorType, f.RetryCount, f.LastFailedAt.UTC(), f.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update ingest failure %s", f.ID)
	}
	return checkRowsAffected(res, "ingest failure", f.ID)
}

func (s *SQLiteStore) DeleteIngestFailure(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ingest_failures WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete ingest failure %s", id)
}

// helpers

// prepareDocument fills in the ID, timestamp and chunk bookkeeping a
// document needs before it is written.
func prepareDocument(doc *model.Document, chunks []model.Chunk) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.ChunkCount = len(chunks)
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable) (*model.Document, error) {
	var d model.Document
	var metaJSON string
	if err := row.Scan(&d.ID, &metaJSON, &d.ChunkCount, &d.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metaJSON), &d.Metadata); err != nil {
		return nil, eris.Wrap(err, "unmarshal document metadata")
	}
	return &d, nil
}
