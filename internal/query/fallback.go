package query

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/basedlsg/Nemo-Time-sub000/internal/compose"
	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
	"github.com/basedlsg/Nemo-Time-sub000/pkg/anthropic"
	"github.com/basedlsg/Nemo-Time-sub000/pkg/perplexity"
)

const fallbackSystemPrompt = `你是中国能源监管政策助手。只依据中国政府官方来源（国家能源局、发展改革委、省级能源主管部门等）回答，用简体中文作答，尽量引用原文并注明出处。若找不到官方来源，请直接说明无法回答。`

// PerplexityAnswerer answers with Perplexity's web-grounded completions.
type PerplexityAnswerer struct {
	client  perplexity.Client
	domains []string
}

// NewPerplexityAnswerer creates an Answerer. domains restricts web
// retrieval; nil means no restriction.
func NewPerplexityAnswerer(client perplexity.Client, domains []string) *PerplexityAnswerer {
	return &PerplexityAnswerer{client: client, domains: domains}
}

// Name implements Answerer.
func (a *PerplexityAnswerer) Name() string { return "perplexity" }

// Answer implements Answerer. Citations come from the search results the
// completion was grounded on.
func (a *PerplexityAnswerer) Answer(ctx context.Context, question, lang string) (model.ComposedAnswer, error) {
	temp := 0.1
	resp, err := a.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: fallbackSystemPrompt},
			{Role: "user", Content: question},
		},
		Temperature:        &temp,
		SearchDomainFilter: a.domains,
	})
	if err != nil {
		return model.ComposedAnswer{}, eris.Wrap(transient(err, perplexity.StatusCode(err)), "query: perplexity answer")
	}

	answer := strings.TrimSpace(resp.Content())
	if answer == "" {
		return model.EmptyAnswer(), nil
	}

	cites := newCitationSet(lang)
	for _, r := range resp.SearchResults {
		cites.add(r.Title, r.URL)
	}
	for _, u := range resp.Citations {
		cites.add("", u)
	}
	return model.ComposedAnswer{AnswerZH: answer, Citations: cites.list}, nil
}

const anthropicSystemPrompt = fallbackSystemPrompt + `
只输出一个 JSON 对象，不要输出其他内容：{"answer_zh": "中文回答", "citations": [{"title": "文件标题", "url": "https://..."}]}。没有可靠官方来源时输出 {"answer_zh": "", "citations": []}。`

// AnthropicAnswerer answers with an Anthropic model instructed to return
// a JSON answer with citations.
type AnthropicAnswerer struct {
	client anthropic.Client
	model  string
}

// NewAnthropicAnswerer creates an Answerer. An empty model uses the
// client's default.
func NewAnthropicAnswerer(client anthropic.Client, model string) *AnthropicAnswerer {
	return &AnthropicAnswerer{client: client, model: model}
}

// Name implements Answerer.
func (a *AnthropicAnswerer) Name() string { return "anthropic" }

// Answer implements Answerer. Replies that are not a valid answer object
// yield the empty answer.
func (a *AnthropicAnswerer) Answer(ctx context.Context, question, lang string) (model.ComposedAnswer, error) {
	temp := 0.0
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   1024,
		System:      anthropicSystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: question}},
		Temperature: &temp,
	})
	if err != nil {
		return model.ComposedAnswer{}, eris.Wrap(transient(err, anthropic.StatusCode(err)), "query: anthropic answer")
	}
	resp.Usage.Log(resp.Model, "fallback_answer")

	answer, ok := ParseAnswerJSON(resp.Text(), lang)
	if !ok {
		zap.L().Debug("query: anthropic reply is not an answer object", zap.String("stop_reason", resp.StopReason))
		return model.EmptyAnswer(), nil
	}
	return answer, nil
}

// ParseAnswerJSON extracts the first JSON object in text and converts it
// to an answer when it passes compose.ValidateResponse. Citations without
// an http(s) URL are dropped.
func ParseAnswerJSON(text, lang string) (model.ComposedAnswer, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return model.ComposedAnswer{}, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return model.ComposedAnswer{}, false
	}
	if !compose.ValidateResponse(raw) {
		return model.ComposedAnswer{}, false
	}

	answer := strings.TrimSpace(raw["answer_zh"].(string))
	if answer == "" {
		return model.EmptyAnswer(), true
	}

	cites := newCitationSet(lang)
	for _, item := range raw["citations"].([]any) {
		obj := item.(map[string]any)
		title, _ := obj["title"].(string)
		u, _ := obj["url"].(string)
		cites.add(title, u)
	}
	return model.ComposedAnswer{AnswerZH: answer, Citations: cites.list}, true
}

// citationSet collects citations deduplicated by URL.
type citationSet struct {
	lang string
	seen map[string]bool
	list []model.Citation
}

func newCitationSet(lang string) *citationSet {
	return &citationSet{lang: lang, seen: make(map[string]bool), list: []model.Citation{}}
}

func (s *citationSet) add(title, rawURL string) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return
	}
	if s.seen[rawURL] {
		return
	}
	s.seen[rawURL] = true
	s.list = append(s.list, compose.FormatCitation(model.Candidate{Title: title, URL: rawURL}, s.lang))
}
