package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/store"
)

func scoredChunk(dist float64) store.Scored {
	return store.Scored{
		Distance: dist,
		Chunk: filing.Chunk{
			ID:   "amzn_Q3-2025_earnings_chunk_2",
			Text: "Net sales increased 11% to $158.9 billion in the third quarter.",
			Meta: filing.ChunkMeta{
				DocID:      "amzn_Q3-2025_earnings",
				Ticker:     "amzn",
				FilingType: "10-Q",
				Period:     "Q3-2025",
				Section:    "revenue",
				PageStart:  2,
				PageEnd:    3,
				LineStart:  5,
				LineEnd:    41,
			},
		},
	}
}

func TestNewCitation(t *testing.T) {
	c := NewCitation(scoredChunk(0.4))

	assert.Equal(t, "amzn_Q3-2025_earnings_chunk_2", c.ChunkID)
	assert.Equal(t, "AMZN", c.Ticker, "citations carry the canonical uppercase ticker")
	assert.Equal(t, 2, c.PageStart)
	assert.Equal(t, 3, c.PageEnd)
	assert.Equal(t, 5, c.LineStart)
	assert.InDelta(t, 0.8, c.Score, 1e-9)
}

func TestSimilarityClamp(t *testing.T) {
	tests := []struct {
		dist float64
		want float64
	}{
		{0, 1},
		{2, 0},
		{1, 0.5},
		{-0.001, 1}, // float drift below zero
		{2.001, 0},  // float drift above two
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, similarity(tt.dist), 1e-9)
	}
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("x", 600)
	assert.Len(t, Snippet(long), 500)
	assert.Equal(t, "short", Snippet("short"))
}

func TestBuildSearchPhrase(t *testing.T) {
	long := strings.Repeat("word ", 40)
	phrase := BuildSearchPhrase(long)
	assert.Len(t, strings.Fields(phrase), 24)

	assert.Equal(t, "only three words", BuildSearchPhrase("only three words"))
}

func TestHighlightURL(t *testing.T) {
	base := scoredChunk(0).Chunk

	t.Run("local path wins", func(t *testing.T) {
		c := base
		c.Meta.LocalPath = "/filings/AMZN/q3.pdf"
		c.Meta.SourceURL = "https://example.com/q3.pdf"
		assert.Equal(t,
			"/documents/amzn_Q3-2025_earnings/chunks/amzn_Q3-2025_earnings_chunk_2/file",
			HighlightURL(&c))
	})

	t.Run("pdf url gets page and search fragment", func(t *testing.T) {
		c := base
		c.Meta.SourceURL = "https://example.com/q3.PDF"
		got := HighlightURL(&c)
		assert.True(t, strings.HasPrefix(got, "https://example.com/q3.PDF#page=2&search="), got)
		assert.Contains(t, got, "Net+sales")
	})

	t.Run("pdf url without page stays bare", func(t *testing.T) {
		c := base
		c.Meta.SourceURL = "https://example.com/q3.pdf"
		c.Meta.PageStart = 0
		assert.Equal(t, "https://example.com/q3.pdf", HighlightURL(&c))
	})

	t.Run("non-pdf url stays bare", func(t *testing.T) {
		c := base
		c.Meta.SourceURL = "https://example.com/earnings.html"
		assert.Equal(t, "https://example.com/earnings.html", HighlightURL(&c))
	})

	t.Run("nothing available", func(t *testing.T) {
		c := base
		assert.Empty(t, HighlightURL(&c))
	})
}
