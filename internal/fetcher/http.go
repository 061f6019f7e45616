package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/basedlsg/Nemo-Time-sub000/internal/resilience"
)

// DefaultMaxBodyBytes caps a single download.
const DefaultMaxBodyBytes = 32 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64

	// RatePerHost is the starting request rate for each host. Government
	// portals throttle aggressively, so it adapts down on 429 responses.
	RatePerHost rate.Limit
	Burst       int

	Retry resilience.Policy
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(min(a.currentRate*1.2, a.maxRate))
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(max(a.currentRate*0.5, a.minRate))
	zap.L().Warn("fetcher: reducing host rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

func (a *AdaptiveLimiter) setLocked(r rate.Limit) {
	a.currentRate = r
	a.limiter.SetLimit(r)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher using net/http with per-host rate limiting
// and retries on throttling and server errors.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "nemo-ingest/1.0"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.RatePerHost <= 0 {
		opts.RatePerHost = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 2
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

// LimiterFor returns the limiter for host, creating it on first use.
func (f *HTTPFetcher) LimiterFor(host string) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(f.opts.RatePerHost, f.opts.Burst)
		f.limiters[host] = lim
	}
	return lim
}

// Fetch downloads rawURL, retrying transient failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("fetcher: invalid url %q", rawURL)
	}
	lim := f.LimiterFor(u.Host)

	policy := f.opts.Retry
	policy.OnRetry = resilience.LogRetry("fetcher", u.Host)

	page, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (*Page, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		return f.fetchOnce(ctx, rawURL, lim)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	return page, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string, lim *AdaptiveLimiter) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "fetcher: request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusTooManyRequests {
		lim.OnRateLimit()
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, resilience.StatusError("fetcher", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "fetcher: read body"), 0)
	}
	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, eris.Errorf("fetcher: body of %s exceeds %d bytes", rawURL, f.opts.MaxBodyBytes)
	}

	lim.OnSuccess()
	return &Page{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
