package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chunkColumns = []string{"id", "document_id", "chunk_index", "text"}

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "chunks", chunkColumns, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"chunks"}, chunkColumns).WillReturnResult(2)

	rows := [][]any{{"c1", "d1", 0, "第一条"}, {"c2", "d1", 1, "第二条"}}
	n, err := CopyFrom(context.Background(), mock, "chunks", chunkColumns, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_ShortWrite(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"chunks"}, chunkColumns).WillReturnResult(1)

	rows := [][]any{{"c1", "d1", 0, "第一条"}, {"c2", "d1", 1, "第二条"}}
	_, err = CopyFrom(context.Background(), mock, "chunks", chunkColumns, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrote 1 of 2 rows")
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"chunks"}, chunkColumns).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "chunks", chunkColumns, [][]any{{"c1", "d1", 0, "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO chunks")
	assert.NoError(t, mock.ExpectationsWereMet())
}
