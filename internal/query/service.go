// Package query answers questions from the document index, optional web
// search and an optional fallback answerer.
package query

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/basedlsg/Nemo-Time-sub000/internal/compose"
	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/internal/resilience"
	"github.com/basedlsg/Nemo-Time-sub000/internal/store"
	"github.com/basedlsg/Nemo-Time-sub000/internal/textproc"
)

// Answer sources reported in Response.Source.
const (
	SourceIndex    = "index"
	SourceWeb      = "web"
	SourceFallback = "fallback"
	SourceNone     = "none"
)

// DefaultLang is used when a request names no language.
const DefaultLang = "zh-CN"

// Searcher retrieves indexed chunks by keyword. store.Store satisfies it.
type Searcher interface {
	SearchChunks(ctx context.Context, keywords []string, filter store.ChunkFilter, limit int) ([]model.Chunk, error)
}

// WebSearcher retrieves candidate passages from the web.
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string, n int) ([]model.Candidate, error)
}

// Answerer produces an answer when retrieval finds nothing quotable.
type Answerer interface {
	Name() string
	Answer(ctx context.Context, question, lang string) (model.ComposedAnswer, error)
}

// Request is one question.
type Request struct {
	Question string `json:"question"`
	Province string `json:"province,omitempty"`
	Asset    string `json:"asset,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// Response is the answer and where it came from.
type Response struct {
	model.ComposedAnswer
	Source string `json:"source"`
}

// Service answers questions.
type Service struct {
	index         Searcher
	web           WebSearcher
	webResults    int
	fallback      Answerer
	breaker       *resilience.Breaker
	retry         resilience.Policy
	maxCandidates int
}

// Option configures a Service.
type Option func(*Service)

// WithWebSearch adds web retrieval returning up to n results.
func WithWebSearch(ws WebSearcher, n int) Option {
	return func(s *Service) {
		if ws != nil && n > 0 {
			s.web = ws
			s.webResults = n
		}
	}
}

// WithFallback adds an answerer guarded by breaker. A nil breaker gets a
// default one.
func WithFallback(a Answerer, breaker *resilience.Breaker) Option {
	return func(s *Service) {
		if a == nil {
			return
		}
		s.fallback = a
		if breaker == nil {
			breaker = resilience.NewBreaker(a.Name(), resilience.DefaultBreakerConfig())
		}
		s.breaker = breaker
	}
}

// WithRetryPolicy sets the retry policy for fallback calls.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(s *Service) { s.retry = p }
}

// WithMaxCandidates caps index results per question.
func WithMaxCandidates(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// New creates a Service over index.
func New(index Searcher, opts ...Option) *Service {
	s := &Service{
		index:         index,
		retry:         resilience.DefaultPolicy(),
		maxCandidates: compose.MaxCandidates,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Answer normalizes the question, retrieves candidates, composes a quoted
// answer and, when nothing is quotable, consults the fallback answerer.
// Only index failures are returned as errors; web and fallback failures
// degrade to the next stage.
func (s *Service) Answer(ctx context.Context, req Request) (Response, error) {
	question := textproc.NormalizeQuery(req.Question)
	if question == "" {
		return Response{ComposedAnswer: model.EmptyAnswer(), Source: SourceNone}, nil
	}
	lang := req.Lang
	if lang == "" {
		lang = DefaultLang
	}
	log := zap.L().With(zap.String("question", textproc.Truncate(question, 80)))

	keywords := compose.ExtractKeywords(question)
	filter := store.ChunkFilter{Province: req.Province, Asset: req.Asset}

	var indexCands, webCands []model.Candidate
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		chunks, err := s.index.SearchChunks(gCtx, keywords, filter, s.maxCandidates)
		if err != nil {
			return eris.Wrap(err, "query: search index")
		}
		indexCands = make([]model.Candidate, 0, len(chunks))
		for _, c := range chunks {
			indexCands = append(indexCands, c.ToCandidate())
		}
		return nil
	})
	if s.web != nil {
		g.Go(func() error {
			cands, err := s.web.SearchWeb(gCtx, question, s.webResults)
			if err != nil {
				log.Warn("query: web search failed", zap.Error(err))
				return nil
			}
			webCands = cands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Response{}, err
	}

	candidates := append(indexCands, webCands...)
	answer := compose.Compose(candidates, question, lang)
	log.Debug("query: composed",
		zap.Strings("keywords", keywords),
		zap.Int("index_candidates", len(indexCands)),
		zap.Int("web_candidates", len(webCands)),
		zap.Bool("answered", !answer.IsEmpty()),
	)
	if !answer.IsEmpty() {
		return Response{ComposedAnswer: answer, Source: answerSource(answer, indexCands)}, nil
	}

	if s.fallback != nil {
		if fb, ok := s.askFallback(ctx, question, lang); ok {
			return Response{ComposedAnswer: fb, Source: SourceFallback}, nil
		}
	}
	return Response{ComposedAnswer: model.EmptyAnswer(), Source: SourceNone}, nil
}

// askFallback calls the fallback answerer through the breaker with
// retries. Answers without a citation URL are discarded.
func (s *Service) askFallback(ctx context.Context, question, lang string) (model.ComposedAnswer, bool) {
	name := s.fallback.Name()
	policy := s.retry
	policy.OnRetry = resilience.LogRetry(name, "answer")

	answer, err := resilience.CallVal(ctx, s.breaker, func(ctx context.Context) (model.ComposedAnswer, error) {
		return resilience.DoVal(ctx, policy, func(ctx context.Context) (model.ComposedAnswer, error) {
			return s.fallback.Answer(ctx, question, lang)
		})
	})
	if err != nil {
		zap.L().Warn("query: fallback failed", zap.String("answerer", name), zap.Error(err))
		return model.ComposedAnswer{}, false
	}
	if answer.IsEmpty() || !hasCitationURL(answer) || !compose.ValidateAnswer(answer) {
		zap.L().Info("query: fallback answer rejected", zap.String("answerer", name))
		return model.ComposedAnswer{}, false
	}
	return answer, true
}

// answerSource reports "index" when any citation points at an indexed
// document, "web" otherwise.
func answerSource(answer model.ComposedAnswer, indexCands []model.Candidate) string {
	indexed := make(map[string]bool, len(indexCands))
	for _, c := range indexCands {
		if c.URL != "" {
			indexed[c.URL] = true
		}
	}
	for _, c := range answer.Citations {
		if indexed[c.URL] {
			return SourceIndex
		}
	}
	return SourceWeb
}

func hasCitationURL(a model.ComposedAnswer) bool {
	for _, c := range a.Citations {
		if strings.TrimSpace(c.URL) != "" {
			return true
		}
	}
	return false
}
