package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/customsearch/v1", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "engine-1", q.Get("cx"))
		assert.Equal(t, "分布式光伏 备案", q.Get("q"))
		assert.Equal(t, "5", q.Get("num"))
		assert.Equal(t, "lang_zh-CN", q.Get("lr"))
		assert.Equal(t, "gov.cn", q.Get("siteSearch"))
		assert.Equal(t, "i", q.Get("siteSearchFilter"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Items: []Item{{
				Title:       "关于分布式光伏备案的通知",
				Link:        "https://www.nea.gov.cn/a.html",
				Snippet:     "分布式光伏发电项目应当备案。",
				DisplayLink: "www.nea.gov.cn",
			}},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", "engine-1", WithBaseURL(srv.URL), WithRateLimit(0))
	resp, err := client.Search(context.Background(), SearchRequest{
		Query:      "分布式光伏 备案",
		Num:        5,
		Language:   "lang_zh-CN",
		SiteSearch: "gov.cn",
	})

	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "https://www.nea.gov.cn/a.html", resp.Items[0].Link)
	assert.Equal(t, "分布式光伏发电项目应当备案。", resp.Items[0].Snippet)
}

func TestSearch_ClampsNum(t *testing.T) {
	var mu sync.Mutex
	var nums []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		nums = append(nums, r.URL.Query().Get("num"))
		mu.Unlock()
		assert.Empty(t, r.URL.Query().Get("lr"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("k", "cx", WithBaseURL(srv.URL+"/"), WithRateLimit(0))
	for _, n := range []int{0, 50} {
		resp, err := client.Search(context.Background(), SearchRequest{Query: "并网", Num: n})
		require.NoError(t, err)
		assert.Empty(t, resp.Items)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "10"}, nums)
}

func TestSearch_EmptyQuerySkipsRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	client := NewClient("k", "cx", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), SearchRequest{Query: "  "})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"message": "API key not valid"}}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", "cx", WithBaseURL(srv.URL), WithRateLimit(0))
	resp, err := client.Search(context.Background(), SearchRequest{Query: "test"})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "API key not valid")
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
}

func TestSearch_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	client := NewClient("k", "cx", WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := client.Search(context.Background(), SearchRequest{Query: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
	assert.Equal(t, 0, StatusCode(err))
}

func TestSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", "cx", WithBaseURL(srv.URL))
	resp, err := client.Search(ctx, SearchRequest{Query: "test"})

	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestSearch_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("k", "cx", WithBaseURL(srv.URL), WithRateLimit(20))
	start := time.Now()
	for range 3 {
		_, err := client.Search(context.Background(), SearchRequest{Query: "q"})
		require.NoError(t, err)
	}
	// Burst of one: the second and third calls each wait ~50ms.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}
