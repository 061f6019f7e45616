package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgres_SaveDocument(t *testing.T) {
	s, mock := newMockStore(t)

	doc := testDocument("pg1", "gd", "solar", time.Time{})
	chunks := testChunks(doc, "第一条 项目应当备案。", "第二条 电网企业应当配合。")

	mock.ExpectBegin()
	docArgs := anyArgs(10)
	docArgs[1] = "pg1"
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(docArgs...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"chunks"}, chunkColumns).WillReturnResult(2)
	mock.ExpectCommit()

	require.NoError(t, s.SaveDocument(context.Background(), doc, chunks))
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, 2, doc.ChunkCount)
	assert.Equal(t, doc.ID, chunks[1].DocumentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveDocumentDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	doc := testDocument("pg1", "gd", "solar", time.Time{})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(anyArgs(10)...).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := s.SaveDocument(context.Background(), doc, testChunks(doc, "正文"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveDocumentShortCopy(t *testing.T) {
	s, mock := newMockStore(t)

	doc := testDocument("pg2", "", "", time.Time{})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(anyArgs(10)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"chunks"}, chunkColumns).WillReturnResult(1)
	mock.ExpectRollback()

	err := s.SaveDocument(context.Background(), doc, testChunks(doc, "甲", "乙"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrote 1 of 2 rows")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetDocumentByChecksum(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM documents WHERE checksum = \$1`).
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows([]string{"id", "metadata", "chunk_count", "created_at"}).
			AddRow("d1", []byte(`{"title":"通知","checksum":"abc","province":"gd","language":"zh-CN"}`), 4, created))
	mock.ExpectQuery(`FROM documents WHERE checksum = \$1`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "metadata", "chunk_count", "created_at"}))

	doc, err := s.GetDocumentByChecksum(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, "gd", doc.Metadata.Province)
	assert.Equal(t, 4, doc.ChunkCount)
	assert.Equal(t, created, doc.CreatedAt)

	doc, err = s.GetDocumentByChecksum(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListDocuments(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE 1=1 AND province = \$1 AND doc_class = \$2 ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("sd", "grid", 10, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "metadata", "chunk_count", "created_at"}).
			AddRow("d2", []byte(`{"checksum":"x","province":"sd"}`), 1, time.Now()))

	docs, err := s.ListDocuments(context.Background(), DocumentFilter{Province: "sd", DocClass: "grid", Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d2", docs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SearchChunks(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`(?s)strpos\(text, \$1\) > 0 .* AND \(province = \$3 OR province = ''\) ORDER BY score DESC`).
		WithArgs("备案", "并网", "gd", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "document_id", "chunk_index", "text", "metadata", "score"}).
			AddRow("c1", "d1", 2, "并网项目应当备案。", []byte(`{"province":"gd","url":"https://gd.gov.cn/a","content_type":"regulatory_text"}`), 2))

	got, err := s.SearchChunks(context.Background(), []string{"备案", "", "并网"}, ChunkFilter{Province: "gd"}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Chunk{
		ID:         "c1",
		DocumentID: "d1",
		Index:      2,
		Text:       "并网项目应当备案。",
		Metadata:   model.ChunkMetadata{Province: "gd", URL: "https://gd.gov.cn/a", ContentType: model.ContentTypeRegulatory},
	}, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_IngestFailures(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO ingest_failures").
		WithArgs(anyArgs(8)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM ingest_failures ORDER BY last_failed_at").
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "source", "error", "error_type", "retry_count", "max_retries", "created_at", "last_failed_at"}).
			AddRow("f1", []byte(`{"location":"a.pdf","province":"gd"}`), "boom", "transient", 1, 3, now, now))
	mock.ExpectExec("UPDATE ingest_failures").
		WithArgs(anyArgs(5)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("DELETE FROM ingest_failures").
		WithArgs("f1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.SaveIngestFailure(ctx, model.IngestFailure{
		Source:    model.Source{Location: "a.pdf"},
		Error:     "boom",
		ErrorType: "transient",
	}))

	list, err := s.ListIngestFailures(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a.pdf", list[0].Source.Location)
	assert.Equal(t, "gd", list[0].Source.Province)
	assert.Equal(t, 1, list[0].RetryCount)

	err = s.UpdateIngestFailure(ctx, model.IngestFailure{ID: "gone"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest failure not found: gone")

	require.NoError(t, s.DeleteIngestFailure(ctx, "f1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
