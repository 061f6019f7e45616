package textproc

import (
	"strings"

	"github.com/google/uuid"

	"github.com/basedlsg/Nemo-Time-sub000/internal/model"
)

const (
	// DefaultTokenBudget is the default chunk size in embedding tokens.
	DefaultTokenBudget = 1000

	// DefaultOverlapTokens is the default overlap between chunks in tokens.
	DefaultOverlapTokens = 200

	// tokensPerChar approximates how many tokens one Chinese character costs.
	tokensPerChar = 1.5

	// MinChunkChars and MaxChunkChars bound a valid chunk.
	MinChunkChars = 50
	MaxChunkChars = 2000
)

// Chunker packs sentences into overlapping chunks sized by a token budget.
type Chunker struct {
	targetChars  int
	overlapChars int
	newID        func() string
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithTokenBudget sets the chunk size in tokens.
func WithTokenBudget(tokens int) Option {
	return func(c *Chunker) {
		if tokens > 0 {
			c.targetChars = charsForTokens(tokens)
		}
	}
}

// WithOverlapTokens sets the overlap between consecutive chunks in tokens.
func WithOverlapTokens(tokens int) Option {
	return func(c *Chunker) {
		if tokens >= 0 {
			c.overlapChars = charsForTokens(tokens)
		}
	}
}

// WithIDFunc overrides chunk ID generation.
func WithIDFunc(fn func() string) Option {
	return func(c *Chunker) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewChunker creates a Chunker with the given options.
func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{
		targetChars:  charsForTokens(DefaultTokenBudget),
		overlapChars: charsForTokens(DefaultOverlapTokens),
		newID:        func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't swallow the whole chunk.
	if c.overlapChars >= c.targetChars {
		c.overlapChars = c.targetChars / 4
	}
	return c
}

func charsForTokens(tokens int) int {
	return int(float64(tokens) / tokensPerChar)
}

// TargetChars returns the chunk size in characters.
func (c *Chunker) TargetChars() int { return c.targetChars }

// OverlapChars returns the overlap size in characters.
func (c *Chunker) OverlapChars() int { return c.overlapChars }

// CreateChunks packs the sentences of processed text into chunks. When the
// next sentence would push a non-empty chunk past the target size, the chunk
// is finalized and the next one starts with its overlap tail. Chunks outside
// [MinChunkChars, MaxChunkChars] or below MinChineseRatio are dropped;
// indexes are contiguous over the chunks kept.
func (c *Chunker) CreateChunks(text string, meta model.DocumentMetadata) []model.Chunk {
	var drafts []string
	var current string
	for _, s := range SplitIntoSentences(text) {
		if current != "" && RuneLen(current)+RuneLen(s) > c.targetChars {
			drafts = append(drafts, current)
			current = overlapTail(current, c.overlapChars) + s
			continue
		}
		current += s
	}
	if strings.TrimSpace(current) != "" {
		drafts = append(drafts, current)
	}

	chunkMeta := model.ChunkMetadata{
		Province:      meta.Province,
		Asset:         meta.Asset,
		DocClass:      meta.DocClass,
		EffectiveDate: meta.EffectiveDate,
		Title:         meta.Title,
		URL:           meta.URL,
		Language:      meta.Language,
		ContentType:   model.ContentTypeRegulatory,
	}

	chunks := make([]model.Chunk, 0, len(drafts))
	for _, d := range drafts {
		d = strings.TrimSpace(d)
		if !ValidChunk(d) {
			continue
		}
		chunks = append(chunks, model.Chunk{
			ID:       c.newID(),
			Text:     d,
			Index:    len(chunks),
			Metadata: chunkMeta,
		})
	}
	return chunks
}

// ValidChunk reports whether text satisfies the chunk length and Chinese
// content bounds. Structure tags count toward length but not toward the
// Chinese share.
func ValidChunk(text string) bool {
	n := RuneLen(text)
	if n < MinChunkChars || n > MaxChunkChars {
		return false
	}
	return contentRatio(text) >= MinChineseRatio
}

// overlapTail returns the last n characters of chunk, advanced past the
// first sentence terminator inside that window so the overlap opens on a
// sentence start.
func overlapTail(chunk string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(chunk)
	if len(runes) > n {
		runes = runes[len(runes)-n:]
	}
	for i, r := range runes {
		if isSentenceEnd(r) && i < len(runes)-1 {
			runes = runes[i+1:]
			break
		}
	}
	return strings.TrimSpace(string(runes))
}
