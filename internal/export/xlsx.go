// Package export writes ingested document metadata to spreadsheets.
package export

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/internal/store"
)

// SheetName is the worksheet holding one row per document.
const SheetName = "documents"

// Columns is the header row, in order.
var Columns = []string{
	"title", "url", "province", "asset", "doc_class",
	"issuing_authority", "document_number", "publication_date", "effective_date",
	"language", "content_length", "chunk_count", "is_government_source", "checksum",
}

// pageSize bounds each ListDocuments call made by ExportStore.
const pageSize = 500

// WriteMetadataXLSX writes docs to a new XLSX file at path.
func WriteMetadataXLSX(path string, docs []model.Document) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range Columns {
		header.AddCell().SetString(col)
	}

	for _, d := range docs {
		writeRow(sheet.AddRow(), d)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func writeRow(row *xlsx.Row, d model.Document) {
	md := d.Metadata
	for _, s := range []string{
		md.Title, md.URL, md.Province, md.Asset, md.DocClass,
		md.IssuingAuthority, md.DocumentNumber, md.PublicationDate, md.EffectiveDate,
		md.Language,
	} {
		row.AddCell().SetString(s)
	}
	row.AddCell().SetInt(md.ContentLength)
	row.AddCell().SetInt(d.ChunkCount)
	row.AddCell().SetString(strconv.FormatBool(md.IsGovernmentSource))
	row.AddCell().SetString(md.Checksum)
}

// ExportStore pages through every document matching filter and writes
// them to path. It returns the number of documents written. filter's
// Limit and Offset are ignored.
func ExportStore(ctx context.Context, st store.Store, filter store.DocumentFilter, path string) (int, error) {
	var docs []model.Document
	filter.Limit = pageSize
	for offset := 0; ; offset += pageSize {
		filter.Offset = offset
		page, err := st.ListDocuments(ctx, filter)
		if err != nil {
			return 0, eris.Wrap(err, "export: list documents")
		}
		docs = append(docs, page...)
		if len(page) < pageSize {
			break
		}
	}

	if err := WriteMetadataXLSX(path, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}
