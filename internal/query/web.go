package query

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/internal/resilience"
	"github.com/basedlsg/Nemo-Time-sub000/pkg/google"
)

// GoogleSearcher turns Custom Search hits into candidates.
type GoogleSearcher struct {
	client     google.Client
	siteSearch string
}

// NewGoogleSearcher creates a WebSearcher. siteSearch, when set, restricts
// hits to one domain suffix such as "gov.cn".
func NewGoogleSearcher(client google.Client, siteSearch string) *GoogleSearcher {
	return &GoogleSearcher{client: client, siteSearch: siteSearch}
}

// SearchWeb returns up to n candidates whose text is the result snippet.
func (g *GoogleSearcher) SearchWeb(ctx context.Context, query string, n int) ([]model.Candidate, error) {
	resp, err := g.client.Search(ctx, google.SearchRequest{
		Query:      query,
		Num:        n,
		Language:   "lang_zh-CN",
		SiteSearch: g.siteSearch,
	})
	if err != nil {
		return nil, eris.Wrap(transient(err, google.StatusCode(err)), "query: google search")
	}

	out := make([]model.Candidate, 0, len(resp.Items))
	for _, item := range resp.Items {
		text := strings.TrimSpace(strings.ReplaceAll(item.Snippet, "\n", ""))
		if text == "" || item.Link == "" {
			continue
		}
		out = append(out, model.Candidate{
			Text:  text,
			Title: strings.TrimSpace(item.Title),
			URL:   item.Link,
		})
	}
	return out, nil
}

// transient marks API errors with a retryable status.
func transient(err error, status int) error {
	if status != 0 && resilience.IsTransientHTTPStatus(status) {
		return resilience.NewTransientError(err, status)
	}
	return err
}
