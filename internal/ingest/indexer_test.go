package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartermill/finsight/internal/chunker"
	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/section"
	"github.com/quartermill/finsight/internal/store"
)

type fakeEmbedder struct {
	calls int
	fail  bool
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("provider unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

type fakeStore struct {
	store.Store
	upserts [][]store.Entry
}

func (f *fakeStore) Upsert(ctx context.Context, entries []store.Entry) error {
	f.upserts = append(f.upserts, entries)
	return nil
}

func newTestIndexer(t *testing.T, emb Embedder, st store.Store, batch int) *Indexer {
	t.Helper()
	chk, err := chunker.New(chunker.DefaultConfig(), nil)
	require.NoError(t, err)
	return NewIndexer(IndexerConfig{
		Chunker:   chk,
		Tagger:    section.NewRegexTagger(),
		Embedder:  emb,
		Store:     st,
		BatchSize: batch,
	})
}

func testMeta(t *testing.T) filing.Metadata {
	t.Helper()
	meta, err := filing.NewMetadata("amzn_Q3-2025_earnings", "AMZN", "10-Q", "Q3-2025")
	require.NoError(t, err)
	return meta
}

func TestIndexDocument(t *testing.T) {
	emb := &fakeEmbedder{}
	st := &fakeStore{}
	ix := newTestIndexer(t, emb, st, 64)

	input := "Net sales increased 11% to $158.9 billion.\n\nOperating income was $17.4 billion."
	var phases []string
	res, err := ix.IndexDocument(context.Background(), strings.NewReader(input), "amzn_q3_2025.txt",
		testMeta(t), func(p string) { phases = append(phases, p) })
	require.NoError(t, err)

	assert.Equal(t, "amzn_Q3-2025_earnings", res.DocID)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, []string{"parsing", "tagging", "chunking", "embedding", "storing"}, phases)

	require.Len(t, st.upserts, 1)
	entry := st.upserts[0][0]
	assert.Equal(t, "amzn_Q3-2025_earnings_chunk_1", entry.Chunk.ID)
	assert.Equal(t, "revenue", entry.Chunk.Meta.Section)
	assert.NotEmpty(t, entry.Vector)
}

func TestIndexDocumentEmbedFailureAborts(t *testing.T) {
	emb := &fakeEmbedder{fail: true}
	st := &fakeStore{}
	ix := newTestIndexer(t, emb, st, 64)

	_, err := ix.IndexDocument(context.Background(), strings.NewReader("some content here"),
		"amzn_q3_2025.txt", testMeta(t), nil)
	require.Error(t, err)
	assert.Empty(t, st.upserts, "no partial chunk set may be stored")
}

func TestIndexDocumentUnsupportedFormat(t *testing.T) {
	ix := newTestIndexer(t, &fakeEmbedder{}, &fakeStore{}, 64)
	_, err := ix.IndexDocument(context.Background(), strings.NewReader("x"), "report.xlsx", testMeta(t), nil)
	require.Error(t, err)
}

func TestIndexDocumentEmptyContent(t *testing.T) {
	ix := newTestIndexer(t, &fakeEmbedder{}, &fakeStore{}, 64)
	_, err := ix.IndexDocument(context.Background(), strings.NewReader("   \n \n"), "empty.txt", testMeta(t), nil)
	require.Error(t, err)
}

func TestIndexDocumentBatching(t *testing.T) {
	emb := &fakeEmbedder{}
	st := &fakeStore{}
	ix := newTestIndexer(t, emb, st, 1) // one chunk per embedding call

	input := strings.Repeat("alpha beta gamma delta epsilon ", 200) // ~1000 words, 3 chunks
	res, err := ix.IndexDocument(context.Background(), strings.NewReader(input), "big_q1_2024.txt", testMeta(t), nil)
	require.NoError(t, err)
	assert.Equal(t, res.Chunks, emb.calls, "batch size 1 means one call per chunk")
}
