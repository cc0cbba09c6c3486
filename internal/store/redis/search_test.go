package redis

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/store"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter store.Filter
		want   string
	}{
		{
			name:   "empty matches everything",
			filter: store.Filter{},
			want:   "*",
		},
		{
			name:   "single ticker is bare",
			filter: store.Filter{Tickers: []string{"AMZN"}},
			want:   "@ticker:{amzn}",
		},
		{
			name:   "period escapes the dash",
			filter: store.Filter{Period: "Q3-2025"},
			want:   "@period:{Q3\\-2025}",
		},
		{
			name:   "conditions are ANDed by juxtaposition",
			filter: store.Filter{Tickers: []string{"AAPL"}, Period: "FY-2024"},
			want:   "(@ticker:{aapl} @period:{FY\\-2024})",
		},
		{
			name:   "blank tickers are dropped",
			filter: store.Filter{Tickers: []string{"  ", ""}},
			want:   "*",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilter(tt.filter))
		})
	}
}

func TestBuildFilterTickerORSeparator(t *testing.T) {
	// A multi-ticker clause must use an unescaped | between values or the
	// whole clause matches a single literal tag.
	got := buildFilter(store.Filter{Tickers: []string{"AMZN", "MSFT"}})
	assert.Equal(t, "@ticker:{amzn|msft}", got)
}

func TestVectorToBytes(t *testing.T) {
	vec := []float32{1.5, -2.25, 0}
	raw := []byte(vectorToBytes(vec))
	require.Len(t, raw, 12)
	for i, want := range vec {
		got := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		assert.Equal(t, want, got)
	}
}

func TestChunkFieldsRoundTrip(t *testing.T) {
	chunk := filing.Chunk{
		ID:   "amzn_Q3-2025_earnings_chunk_4",
		Text: "Net sales increased 11% to $158.9 billion.",
		Meta: filing.ChunkMeta{
			DocID:      "amzn_Q3-2025_earnings",
			Ticker:     "amzn",
			FilingType: "10-Q",
			Period:     "Q3-2025",
			SourceURL:  "https://example.com/amzn-q3.pdf",
			Title:      "Amazon Q3 2025",
			LocalPath:  "/filings/AMZN/q3-2025.pdf",
			Section:    "income_statement",
			BlockIDs:   "p_2_0,p_2_1",
			PageStart:  2,
			PageEnd:    3,
			LineStart:  5,
			LineEnd:    41,
		},
	}

	got := chunkFromFields(chunk.ID, chunkFields(&chunk))
	assert.Equal(t, chunk, got)
}

func TestChunkFromFieldsUnknownNumerics(t *testing.T) {
	got := chunkFromFields("doc_chunk_1", map[string]string{
		"doc_id": "doc",
		"text":   "body",
	})
	assert.Zero(t, got.Meta.PageStart)
	assert.Zero(t, got.Meta.LineEnd)
	assert.Equal(t, "body", got.Text)
}
