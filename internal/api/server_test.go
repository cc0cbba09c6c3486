package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/chunker"
	"github.com/quartermill/finsight/internal/config"
	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/ingest"
	"github.com/quartermill/finsight/internal/llm"
	"github.com/quartermill/finsight/internal/rag"
	"github.com/quartermill/finsight/internal/section"
	"github.com/quartermill/finsight/internal/store"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubChat struct{}

func (stubChat) Complete(ctx context.Context, system, user string) (string, error) {
	return "Answer [Chunk 1].", nil
}

type stubStore struct {
	store.Store
	results   []store.Scored
	available map[string][]string
}

func (s *stubStore) Query(ctx context.Context, vector []float32, k int, f store.Filter) ([]store.Scored, error) {
	return s.results, nil
}

func (s *stubStore) TickerPeriods(ctx context.Context) (map[string][]string, error) {
	return s.available, nil
}

func (s *stubStore) Upsert(ctx context.Context, entries []store.Entry) error {
	return nil
}

func newTestServer(t *testing.T, st *stubStore, apiKey string) *Server {
	t.Helper()

	cfg := config.Config{Auth: config.AuthConfig{APIKey: apiKey}}
	cfg.HTTP.Port = 8080
	cfg.Database.Addrs = []string{"localhost:6379"}
	cfg.OpenAI.APIKey = "test"
	cfg.ApplyDefaults()

	emb := stubEmbedder{}
	retriever := rag.NewRetriever(emb, st, nil)
	qa := rag.NewService(retriever, stubChat{}, st, nil)

	chk, err := chunker.New(chunker.DefaultConfig(), nil)
	require.NoError(t, err)
	indexer := ingest.NewIndexer(ingest.IndexerConfig{
		Chunker:  chk,
		Tagger:   section.NewRegexTagger(),
		Embedder: emb,
		Store:    st,
	})
	orch := ingest.NewOrchestrator(indexer, ingest.OrchestratorConfig{Workers: 1, JobTTL: time.Minute}, nil)

	return NewServer(qa, retriever, orch, st, llm.NewStats(time.Hour), zap.NewNop(), cfg)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, "")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestChatRequiresQuestion(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"tickers":["AMZN"]}`))
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetrieve(t *testing.T) {
	st := &stubStore{
		results: []store.Scored{{
			Distance: 0.4,
			Chunk: filing.Chunk{
				ID:   "amzn_Q3-2025_earnings_chunk_1",
				Text: "Net sales increased 11%.",
				Meta: filing.ChunkMeta{DocID: "amzn_Q3-2025_earnings", Ticker: "amzn", Period: "Q3-2025", PageStart: 2},
			},
		}},
	}
	srv := newTestServer(t, st, "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/retrieve", strings.NewReader(`{"question":"revenue?"}`))
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Results []rag.Citation `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "AMZN", resp.Results[0].Ticker)
	assert.InDelta(t, 0.8, resp.Results[0].Score, 1e-9)
}

func TestTickers(t *testing.T) {
	st := &stubStore{available: map[string][]string{"MSFT": {"FY-2024"}, "AMZN": {"Q3-2025"}}}
	srv := newTestServer(t, st, "")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tickers":["AMZN","MSFT"]}`, rec.Body.String())
}

func TestTickerPeriods(t *testing.T) {
	st := &stubStore{available: map[string][]string{"AMZN": {"Q2-2025", "Q3-2025"}}}
	srv := newTestServer(t, st, "")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickers/amzn/periods", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ticker":"AMZN","periods":["Q2-2025","Q3-2025"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickers/TSLA/periods", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, "secret")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickers", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing bearer token")

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tickers", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "wrong key")

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/tickers", nil)
	req.Header.Set("Authorization", "Bearer secret")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// X-API-Key is an accepted alternative to the bearer token.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/tickers", nil)
	req.Header.Set("X-API-Key", "secret")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/tickers", nil)
	req.Header.Set("X-API-Key", "wrong")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "wrong X-API-Key")

	// Health stays public.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIngestStatusNotFound(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, "")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ingest/nope/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"a..b.pdf", "a_b.pdf"},
		{"", "unnamed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in))
	}
}
