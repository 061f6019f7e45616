package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/basedlsg/Nemo-Time-sub000/internal/resilience"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:   "test-agent",
		Timeout:     5 * time.Second,
		RatePerHost: 1000,
		Burst:       100,
		Retry: resilience.Policy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	})
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Accept-Language"), "zh-CN")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<p>并网管理办法</p>"))
	}))
	defer srv.Close()

	page, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/notice.html")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/notice.html", page.URL)
	assert.Equal(t, "text/html; charset=utf-8", page.ContentType)
	assert.Equal(t, "<p>并网管理办法</p>", string(page.Body))
	assert.False(t, page.IsPDF())
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	page, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(page.Body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_NotFoundIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RateLimitSlowsHost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	u, _ := url.Parse(srv.URL)
	// Halved to 500, then raised 20% by the successful retry.
	assert.InDelta(t, 600, float64(f.LimiterFor(u.Host).Limit()), 0.001)
}

func TestFetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	f := newTestFetcher()
	f.opts.MaxBodyBytes = 16
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
}

func TestFetch_InvalidURL(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), "not a url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid url")
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestFetcher().Fetch(ctx, srv.URL)
	assert.Error(t, err)
}

func TestLimiterFor_OnePerHost(t *testing.T) {
	f := newTestFetcher()
	a := f.LimiterFor("www.gd.gov.cn")
	assert.Same(t, a, f.LimiterFor("www.gd.gov.cn"))
	assert.NotSame(t, a, f.LimiterFor("www.sd.gov.cn"))
}

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	lim := NewAdaptiveLimiter(rate.Limit(10), 1)
	for range 10 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20, float64(lim.Limit()), 0.001)

	for range 10 {
		lim.OnRateLimit()
	}
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.001)
}

func TestPageIsPDF(t *testing.T) {
	assert.True(t, (&Page{ContentType: "application/pdf"}).IsPDF())
	assert.True(t, (&Page{Body: []byte("%PDF-1.7 ...")}).IsPDF())
	assert.False(t, (&Page{ContentType: "text/html", Body: []byte("<html>")}).IsPDF())
}
