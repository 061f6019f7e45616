package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/internal/store"
)

func testDoc(checksum, province string) model.Document {
	return model.Document{
		ID: "doc-" + checksum,
		Metadata: model.DocumentMetadata{
			Title:              "关于分布式光伏并网的通知",
			URL:                "https://drc.gd.gov.cn/" + checksum + ".html",
			Checksum:           checksum,
			Province:           province,
			Asset:              "solar",
			DocClass:           model.DocClassGrid,
			IssuingAuthority:   "广东省能源局",
			DocumentNumber:     "粤能新能〔2024〕12号",
			PublicationDate:    "2024-03-01",
			EffectiveDate:      "2024-04-01",
			Language:           model.LanguageChinese,
			ContentLength:      1234,
			IsGovernmentSource: true,
		},
		ChunkCount: 3,
		CreatedAt:  time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	}
}

func readSheet(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok, "sheet %q missing", SheetName)

	var rows [][]string
	for _, row := range sheet.Rows {
		var cells []string
		for _, c := range row.Cells {
			cells = append(cells, c.String())
		}
		rows = append(rows, cells)
	}
	return rows
}

func TestWriteMetadataXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.xlsx")
	require.NoError(t, WriteMetadataXLSX(path, []model.Document{testDoc("abc", "gd")}))

	rows := readSheet(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{
		"关于分布式光伏并网的通知", "https://drc.gd.gov.cn/abc.html", "gd", "solar", "grid",
		"广东省能源局", "粤能新能〔2024〕12号", "2024-03-01", "2024-04-01",
		"zh-CN", "1234", "3", "true", "abc",
	}, rows[1])
}

func TestWriteMetadataXLSX_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteMetadataXLSX(path, nil))
	assert.Equal(t, [][]string{Columns}, readSheet(t, path))
}

func TestWriteMetadataXLSX_BadPath(t *testing.T) {
	err := WriteMetadataXLSX(filepath.Join(t.TempDir(), "missing", "docs.xlsx"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: save")
}

func TestExportStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "nemo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(ctx))

	for _, d := range []model.Document{testDoc("a1", "gd"), testDoc("b2", "sd")} {
		require.NoError(t, st.SaveDocument(ctx, &d, nil))
	}

	path := filepath.Join(t.TempDir(), "gd.xlsx")
	n, err := ExportStore(ctx, st, store.DocumentFilter{Province: "gd"}, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows := readSheet(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "a1", rows[1][len(Columns)-1])
}
