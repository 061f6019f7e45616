// Package ingest turns source documents into stored, retrieval-ready chunks.
package ingest

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/basedlsg/Nemo-Time-sub000/internal/fetcher"
	"github.com/basedlsg/Nemo-Time-sub000/internal/metadata"
	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/internal/ocr"
	"github.com/basedlsg/Nemo-Time-sub000/internal/resilience"
	"github.com/basedlsg/Nemo-Time-sub000/internal/store"
	"github.com/basedlsg/Nemo-Time-sub000/internal/textproc"
)

const defaultConcurrency = 4

// Pipeline runs sources through load, metadata extraction, text
// processing, chunking and storage.
type Pipeline struct {
	store       store.Store
	fetcher     fetcher.Fetcher
	ocr         ocr.Extractor
	extractor   *metadata.Extractor
	chunker     *textproc.Chunker
	concurrency int
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency sets how many sources IngestAll processes at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithClock overrides the time source used for dead-letter timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. ocrExt may be nil, in which case PDF sources fail.
func New(st store.Store, f fetcher.Fetcher, ocrExt ocr.Extractor, ext *metadata.Extractor, ch *textproc.Chunker, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:       st,
		fetcher:     f,
		ocr:         ocrExt,
		extractor:   ext,
		chunker:     ch,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Ingest processes one source. Data-quality outcomes (duplicate, unusable
// text, no chunks) are reported in the result; load and storage problems
// are returned as errors.
func (p *Pipeline) Ingest(ctx context.Context, src model.Source) (model.IngestResult, error) {
	log := zap.L().With(zap.String("source", src.Location))
	result := model.IngestResult{Location: src.Location}

	raw, sourceURL, err := p.load(ctx, src.Location)
	if err != nil {
		return result, err
	}

	md := p.extractor.Extract(raw, sourceURL, src.Hints)

	existing, err := p.store.GetDocumentByChecksum(ctx, md.Checksum)
	if err != nil {
		return result, eris.Wrap(err, "ingest: dedup lookup")
	}
	if existing != nil {
		log.Debug("ingest: duplicate document", zap.String("document_id", existing.ID))
		result.Status = model.IngestStatusDuplicate
		result.DocumentID = existing.ID
		return result, nil
	}

	processed, ok := textproc.ProcessText(raw)
	if !ok {
		log.Info("ingest: skipping unusable text", zap.Int("chars", md.ContentLength))
		result.Status = model.IngestStatusSkipped
		result.Reason = model.SkipReasonUnusableText
		return result, nil
	}

	chunks := p.chunker.CreateChunks(processed, md)
	if len(chunks) == 0 {
		log.Info("ingest: no valid chunks")
		result.Status = model.IngestStatusSkipped
		result.Reason = model.SkipReasonNoChunks
		return result, nil
	}

	doc := &model.Document{Metadata: md}
	if err := p.store.SaveDocument(ctx, doc, chunks); err != nil {
		if eris.Is(err, store.ErrDuplicate) {
			result.Status = model.IngestStatusDuplicate
			return result, nil
		}
		return result, eris.Wrap(err, "ingest: save document")
	}

	log.Info("ingest: document stored",
		zap.String("document_id", doc.ID),
		zap.String("province", md.Province),
		zap.String("asset", md.Asset),
		zap.Int("chunks", len(chunks)),
	)
	result.Status = model.IngestStatusIngested
	result.DocumentID = doc.ID
	result.Chunks = len(chunks)
	return result, nil
}

// IngestAll processes sources concurrently. A failing source is written to
// the dead-letter queue and reported as failed; it never aborts the batch.
// Results are in source order.
func (p *Pipeline) IngestAll(ctx context.Context, sources []model.Source) ([]model.IngestResult, error) {
	results := make([]model.IngestResult, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, src := range sources {
		g.Go(func() error {
			res, err := p.Ingest(gCtx, src)
			if err != nil {
				res = p.recordFailure(gCtx, src, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	summary := Summarize(results)
	zap.L().Info("ingest: batch complete",
		zap.Int("sources", len(sources)),
		zap.Int("ingested", summary[model.IngestStatusIngested]),
		zap.Int("duplicate", summary[model.IngestStatusDuplicate]),
		zap.Int("skipped", summary[model.IngestStatusSkipped]),
		zap.Int("failed", summary[model.IngestStatusFailed]),
	)
	return results, ctx.Err()
}

// RetryFailures re-ingests dead-letter entries that are still retryable.
// Entries that succeed (or resolve to duplicate/skipped) are removed; the
// rest have their retry count bumped.
func (p *Pipeline) RetryFailures(ctx context.Context) ([]model.IngestResult, error) {
	failures, err := p.store.ListIngestFailures(ctx, 0)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: list failures")
	}

	var results []model.IngestResult
	for i := range failures {
		f := &failures[i]
		if !f.CanRetry() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, ingestErr := p.Ingest(ctx, f.Source)
		if ingestErr != nil {
			resilience.RecordRetryFailure(f, ingestErr, p.now().UTC())
			if err := p.store.UpdateIngestFailure(ctx, *f); err != nil {
				return results, eris.Wrap(err, "ingest: update failure")
			}
			zap.L().Warn("ingest: retry failed",
				zap.String("source", f.Source.Location),
				zap.Int("retry_count", f.RetryCount),
				zap.String("error_type", f.ErrorType),
				zap.Error(ingestErr),
			)
			res.Status = model.IngestStatusFailed
			res.Error = ingestErr.Error()
			results = append(results, res)
			continue
		}

		if err := p.store.DeleteIngestFailure(ctx, f.ID); err != nil {
			return results, eris.Wrap(err, "ingest: delete failure")
		}
		results = append(results, res)
	}
	return results, nil
}

// Summarize counts results by status.
func Summarize(results []model.IngestResult) map[model.IngestStatus]int {
	out := make(map[model.IngestStatus]int)
	for _, r := range results {
		out[r.Status]++
	}
	return out
}

func (p *Pipeline) recordFailure(ctx context.Context, src model.Source, err error) model.IngestResult {
	f := resilience.NewIngestFailure(src, err, p.now().UTC())
	zap.L().Warn("ingest: source failed",
		zap.String("source", src.Location),
		zap.String("error_type", f.ErrorType),
		zap.Error(err),
	)
	if saveErr := p.store.SaveIngestFailure(ctx, f); saveErr != nil {
		zap.L().Error("ingest: failed to record failure",
			zap.String("source", src.Location),
			zap.Error(saveErr),
		)
	}
	return model.IngestResult{
		Location: src.Location,
		Status:   model.IngestStatusFailed,
		Error:    err.Error(),
	}
}

// load returns the raw text of a source and the URL to attribute it to.
// Local files are attributed to their file:// URL so answers can cite them.
func (p *Pipeline) load(ctx context.Context, location string) (string, string, error) {
	if IsURL(location) {
		text, err := p.loadURL(ctx, location)
		return text, location, err
	}
	text, err := p.loadFile(ctx, location)
	return text, FileURL(location), err
}

func (p *Pipeline) loadURL(ctx context.Context, u string) (string, error) {
	if p.fetcher == nil {
		return "", eris.Errorf("ingest: no fetcher configured for %s", u)
	}
	page, err := p.fetcher.Fetch(ctx, u)
	if err != nil {
		return "", err
	}
	if page.IsPDF() {
		if p.ocr == nil {
			return "", eris.Errorf("ingest: no OCR extractor configured for %s", u)
		}
		text, err := ocr.ExtractBytes(ctx, p.ocr, page.Body)
		return text, eris.Wrapf(err, "ingest: extract pdf %s", u)
	}
	text, err := fetcher.PageText(page)
	return text, eris.Wrapf(err, "ingest: decode %s", u)
}

func (p *Pipeline) loadFile(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		if p.ocr == nil {
			return "", eris.Errorf("ingest: no OCR extractor configured for %s", path)
		}
		text, err := p.ocr.ExtractText(ctx, path)
		return text, eris.Wrapf(err, "ingest: extract pdf %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "ingest: read %s", path)
	}
	// Files are expected in UTF-8; legacy GBK exports are sniffed and decoded.
	text, err := fetcher.DecodeText("", data)
	return text, eris.Wrapf(err, "ingest: decode %s", path)
}

// FileURL returns the file:// URL of a local path.
func FileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// IsURL reports whether location is an http(s) URL rather than a path.
func IsURL(location string) bool {
	l := strings.ToLower(location)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
