// Package fetcher downloads regulation pages and documents, decodes them to
// UTF-8 text and reads ingestion source lists from CSV and XLSX files.
package fetcher

import (
	"context"
	"strings"
)

// Page is a downloaded document body with the headers needed to decode it.
type Page struct {
	URL         string
	ContentType string
	Body        []byte
}

// IsPDF reports whether the page holds a PDF document.
func (p *Page) IsPDF() bool {
	if strings.Contains(strings.ToLower(p.ContentType), "application/pdf") {
		return true
	}
	return len(p.Body) >= 5 && string(p.Body[:5]) == "%PDF-"
}

// Fetcher defines the interface for downloading remote documents.
type Fetcher interface {
	// Fetch downloads the URL and returns its body.
	Fetch(ctx context.Context, url string) (*Page, error)
}
