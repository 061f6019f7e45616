package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
)

// Source list columns. A header row naming them may appear in any order;
// without one, columns are read positionally in this order.
var sourceColumns = []string{"location", "province", "asset", "doc_class"}

// columnAliases maps accepted header spellings to source columns.
var columnAliases = map[string]string{
	"location":  "location",
	"url":       "location",
	"path":      "location",
	"province":  "province",
	"省份":        "province",
	"asset":     "asset",
	"资产类型":      "asset",
	"doc_class": "doc_class",
	"docclass":  "doc_class",
	"class":     "doc_class",
}

// ReadSourceList reads ingestion sources from a .csv or .xlsx file. Rows
// without a location are skipped.
func ReadSourceList(ctx context.Context, path string) ([]model.Source, error) {
	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		r, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: read source list %s", path)
		}
		rows = r
	case ".csv", ".txt":
		r, err := readCSVRows(ctx, path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: read source list %s", path)
		}
		rows = r
	default:
		return nil, eris.Errorf("fetcher: unsupported source list %q (want .csv or .xlsx)", path)
	}
	return parseSourceRows(rows), nil
}

func readCSVRows(ctx context.Context, path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck

	rowCh, errCh := StreamCSV(ctx, f, CSVOptions{Comment: '#', TrimSpace: true})
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}

func parseSourceRows(rows [][]string) []model.Source {
	if len(rows) == 0 {
		return nil
	}

	index := headerIndex(rows[0])
	if index != nil {
		rows = rows[1:]
	} else {
		index = make(map[string]int, len(sourceColumns))
		for i, col := range sourceColumns {
			index[col] = i
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []model.Source
	for _, row := range rows {
		loc := cell(row, "location")
		if loc == "" {
			continue
		}
		out = append(out, model.Source{
			Location: loc,
			Hints: model.Hints{
				Province: cell(row, "province"),
				Asset:    cell(row, "asset"),
				DocClass: cell(row, "doc_class"),
			},
		})
	}
	return out
}

// headerIndex returns column positions when row is a header naming the
// location column, nil otherwise.
func headerIndex(row []string) map[string]int {
	index := make(map[string]int)
	for i, name := range row {
		col, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, seen := index[col]; !seen {
			index[col] = i
		}
	}
	if _, ok := index["location"]; !ok {
		return nil
	}
	return index
}
