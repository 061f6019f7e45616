package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/basedlsg/Nemo-Time-sub000/internal/config"
	"github.com/basedlsg/Nemo-Time-sub000/internal/fetcher"
	"github.com/basedlsg/Nemo-Time-sub000/internal/ingest"
	"github.com/basedlsg/Nemo-Time-sub000/internal/metadata"
	"github.com/basedlsg/Nemo-Time-sub000/internal/ocr"
	"github.com/basedlsg/Nemo-Time-sub000/internal/query"
	"github.com/basedlsg/Nemo-Time-sub000/internal/resilience"
	"github.com/basedlsg/Nemo-Time-sub000/internal/store"
	"github.com/basedlsg/Nemo-Time-sub000/internal/textproc"
	"github.com/basedlsg/Nemo-Time-sub000/pkg/anthropic"
	"github.com/basedlsg/Nemo-Time-sub000/pkg/google"
	"github.com/basedlsg/Nemo-Time-sub000/pkg/perplexity"
)

// officialDomain restricts web retrieval and fallback answers to
// government sites.
const officialDomain = "gov.cn"

// appEnv bundles the components a command needs.
type appEnv struct {
	Store     store.Store
	Extractor *metadata.Extractor
	Pipeline  *ingest.Pipeline
	Query     *query.Service
	Breakers  *resilience.Breakers
}

// Close releases the store.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for mode and builds every component.
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	env := &appEnv{Store: st}
	env.Extractor, err = newExtractor()
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Pipeline, err = newPipeline(st, env.Extractor)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Breakers = resilience.NewBreakers(resilience.BreakerConfigFromConfig(cfg.Circuit))
	env.Query = newQueryService(st, env.Breakers)
	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newExtractor() (*metadata.Extractor, error) {
	rules := metadata.DefaultRules()
	if cfg.Ingest.RulesPath != "" {
		r, err := metadata.LoadRules(cfg.Ingest.RulesPath)
		if err != nil {
			return nil, err
		}
		rules = r
		zap.L().Info("loaded metadata rules", zap.String("path", cfg.Ingest.RulesPath))
	}
	return metadata.New(rules), nil
}

// newPipeline builds the ingestion pipeline. st may be nil for commands
// that only inspect sources.
func newPipeline(st store.Store, ext *metadata.Extractor) (*ingest.Pipeline, error) {
	ocrExt, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		return nil, err
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: cfg.Ingest.UserAgent,
		Timeout:   time.Duration(cfg.Ingest.TimeoutSecs) * time.Second,
		Retry:     resilience.PolicyFromConfig(cfg.Retry),
	})
	chunker := textproc.NewChunker(
		textproc.WithTokenBudget(cfg.Chunk.TokenBudget),
		textproc.WithOverlapTokens(cfg.Chunk.OverlapTokens),
	)
	return ingest.New(st, f, ocrExt, ext, chunker, ingest.WithConcurrency(cfg.Ingest.Concurrency)), nil
}

func newQueryService(st store.Store, breakers *resilience.Breakers) *query.Service {
	opts := []query.Option{
		query.WithMaxCandidates(cfg.Query.MaxCandidates),
		query.WithRetryPolicy(resilience.PolicyFromConfig(cfg.Retry)),
	}

	if cfg.Query.WebResults > 0 && cfg.Google.Key != "" {
		gc := google.NewClient(cfg.Google.Key, cfg.Google.CX,
			google.WithBaseURL(cfg.Google.BaseURL),
			google.WithRateLimit(cfg.Google.RatePerSec),
		)
		opts = append(opts, query.WithWebSearch(query.NewGoogleSearcher(gc, officialDomain), cfg.Query.WebResults))
		zap.L().Info("google web search enabled", zap.Int("results", cfg.Query.WebResults))
	}

	if a := newFallback(); a != nil {
		opts = append(opts, query.WithFallback(a, breakers.For(a.Name())))
		zap.L().Info("fallback answerer enabled", zap.String("answerer", a.Name()))
	}

	return query.New(st, opts...)
}

func newFallback() query.Answerer {
	switch cfg.Query.Fallback {
	case config.FallbackPerplexity:
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		return query.NewPerplexityAnswerer(client, []string{officialDomain})
	case config.FallbackAnthropic:
		// Retries happen in the query service.
		client := anthropic.NewClient(cfg.Anthropic.Key,
			anthropic.WithModel(cfg.Anthropic.Model),
			anthropic.WithMaxRetries(0),
		)
		return query.NewAnthropicAnswerer(client, "")
	default:
		return nil
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write output")
}
