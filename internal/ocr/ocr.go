// Package ocr extracts text from PDF documents.
package ocr

import (
	"context"
	"os"

	"github.com/rotisserie/eris"

	"github.com/basedlsg/Nemo-Time-sub000/internal/config"
)

// Extractor extracts text content from PDF files.
type Extractor interface {
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.OCRConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral provider requires ocr.mistral_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// ExtractBytes runs ext over an in-memory PDF by staging it in a temp file.
func ExtractBytes(ctx context.Context, ext Extractor, data []byte) (string, error) {
	f, err := os.CreateTemp("", "nemo-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "ocr: create temp file")
	}
	defer os.Remove(f.Name()) //nolint:errcheck

	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck
		return "", eris.Wrap(err, "ocr: write temp file")
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrap(err, "ocr: close temp file")
	}
	return ext.ExtractText(ctx, f.Name())
}
