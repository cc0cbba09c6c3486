// Package rag answers questions over indexed filings: embed the question,
// query the vector store, assemble a cited answer.
package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/store"
)

// QueryEmbedder is the slice of the LLM client the retriever needs.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Filters narrows retrieval to specific filings. Tickers are accepted in
// any case.
type Filters struct {
	Tickers []string
	Period  string
}

// Retriever embeds questions and runs filtered KNN queries.
type Retriever struct {
	embedder QueryEmbedder
	store    store.Store
	log      *zap.Logger
}

// NewRetriever wires the retriever.
func NewRetriever(embedder QueryEmbedder, st store.Store, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{embedder: embedder, store: st, log: log}
}

// Retrieve returns the top-k chunks for the question, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int, f Filters) ([]store.Scored, error) {
	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	filter := store.Filter{Period: f.Period}
	for _, t := range f.Tickers {
		if n := filing.NormalizeTicker(t); n != "" {
			filter.Tickers = append(filter.Tickers, n)
		}
	}

	results, err := r.store.Query(ctx, vector, k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	r.log.Debug("retrieved chunks",
		zap.Int("k", k),
		zap.Int("results", len(results)),
		zap.Strings("tickers", filter.Tickers),
		zap.String("period", filter.Period))
	return results, nil
}
