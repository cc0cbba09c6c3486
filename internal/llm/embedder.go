// Package llm wraps the OpenAI-compatible API for the two calls the service
// makes: batch text embedding and chat completion.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/metrics"
)

// ErrEmbeddingService wraps every embedding-provider failure so callers can
// map it to a 502 without inspecting provider internals.
var ErrEmbeddingService = errors.New("embedding service error")

// Embedder issues embedding requests against an OpenAI-compatible endpoint.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	stats      *Stats
	logger     *zap.Logger
}

// EmbedderConfig holds embedding provider settings.
type EmbedderConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Stats      *Stats
	Logger     *zap.Logger
}

// NewEmbedder creates an embedding client.
func NewEmbedder(cfg EmbedderConfig) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		stats:      cfg.Stats,
		logger:     cfg.Logger,
	}
}

// EmbedBatch embeds texts in one API call, preserving input order. The call
// is all-or-nothing: any failure returns an error with no partial vectors.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	model := string(e.model)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("embedding", model, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues("embedding", model, "api_error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Data) != len(texts) {
		metrics.LLMRequestsTotal.WithLabelValues("embedding", model, "error").Inc()
		metrics.LLMErrorsTotal.WithLabelValues("embedding", model, "short_response").Inc()
		return nil, fmt.Errorf("got %d embeddings for %d inputs: %w", len(resp.Data), len(texts), ErrEmbeddingService)
	}

	metrics.LLMRequestsTotal.WithLabelValues("embedding", model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues("embedding", model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues("embedding", model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues("embedding", model, "total").Add(float64(resp.Usage.TotalTokens))
	}
	if e.stats != nil {
		e.stats.Record(duration.Milliseconds())
	}

	// The API may reorder data entries; Index restores input order.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range: %w", d.Index, ErrEmbeddingService)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Embed embeds a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// parseAPIError extracts a readable message from the provider response and
// wraps it with ErrEmbeddingService.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, ErrEmbeddingService)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), ErrEmbeddingService)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, ErrEmbeddingService)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, ErrEmbeddingService)
}

// extractDetail pulls the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
