// Package google is a client for the Google Custom Search JSON API.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://www.googleapis.com"

	// MaxResults is the largest page the API returns.
	MaxResults = 10
)

// Client performs Custom Search queries.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest describes one Custom Search query.
type SearchRequest struct {
	Query string
	Num   int // 1..10; out-of-range values are clamped

	// Language restricts results, e.g. "lang_zh-CN".
	Language string
	// SiteSearch restricts results to one site or domain suffix, e.g. "gov.cn".
	SiteSearch string
}

// SearchResponse is the subset of the API response we use.
type SearchResponse struct {
	Items []Item `json:"items"`
}

// Item is a single search hit.
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink"`
}

// APIError is a non-200 response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google: unexpected status %d: %s", e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps requests per second. Zero or negative disables limiting.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

type httpClient struct {
	apiKey  string
	cx      string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Custom Search client for the search engine cx.
func NewClient(apiKey, cx string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		cx:      cx,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return &SearchResponse{}, nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "google: rate limit wait")
		}
	}

	num := req.Num
	if num < 1 {
		num = 1
	}
	if num > MaxResults {
		num = MaxResults
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("cx", c.cx)
	q.Set("q", req.Query)
	q.Set("num", strconv.Itoa(num))
	if req.Language != "" {
		q.Set("lr", req.Language)
	}
	if req.SiteSearch != "" {
		q.Set("siteSearch", req.SiteSearch)
		q.Set("siteSearchFilter", "i")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/customsearch/v1?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}

	return &result, nil
}
