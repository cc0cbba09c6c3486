// Package ingest turns filing files into indexed chunks: parse, tag, chunk,
// embed in batches, upsert. It covers both the background upload pipeline
// and the batch directory loader.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/chunker"
	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/metrics"
	"github.com/quartermill/finsight/internal/parser"
	"github.com/quartermill/finsight/internal/section"
	"github.com/quartermill/finsight/internal/store"
)

// Embedder is the slice of the LLM client the indexer needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer runs the document-to-index pipeline for a single filing.
type Indexer struct {
	chunker  *chunker.Chunker
	tagger   section.Tagger
	embedder Embedder
	store    store.Store
	log      *zap.Logger

	batchSize int
	retries   int
}

// IndexerConfig holds pipeline dependencies and tuning.
type IndexerConfig struct {
	Chunker   *chunker.Chunker
	Tagger    section.Tagger
	Embedder  Embedder
	Store     store.Store
	Logger    *zap.Logger
	BatchSize int // embedding batch size, default 64
	Retries   int // transient embedding retries per batch, default 0
}

// NewIndexer wires the pipeline.
func NewIndexer(cfg IndexerConfig) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Indexer{
		chunker:   cfg.Chunker,
		tagger:    cfg.Tagger,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		log:       cfg.Logger,
		batchSize: cfg.BatchSize,
		retries:   cfg.Retries,
	}
}

// Result summarizes one indexed document.
type Result struct {
	DocID  string
	Chunks int
	Pages  int
}

// IndexDocument parses, tags, chunks, embeds and stores one filing. The
// phase callback, if non-nil, is invoked at each stage transition so job
// tracking can mirror progress. Embedding failure aborts the document; no
// partial chunk set is stored.
func (ix *Indexer) IndexDocument(ctx context.Context, r io.Reader, filename string, meta filing.Metadata, phase func(string)) (Result, error) {
	report := func(p string) {
		if phase != nil {
			phase(p)
		}
	}
	log := ix.log.With(zap.String("doc_id", meta.DocID), zap.String("filename", filename))

	report("parsing")
	p, err := parser.ForFile(filename)
	if err != nil {
		return Result{}, err
	}
	doc, err := p.Parse(r, filename, meta)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", filename, err)
	}

	report("tagging")
	ix.tagger.Tag(doc.Blocks)

	report("chunking")
	chunks := ix.chunker.Chunk(doc)
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("no indexable content in %s", filename)
	}
	log.Info("chunked document", zap.Int("blocks", len(doc.Blocks)), zap.Int("chunks", len(chunks)))

	report("embedding")
	entries := make([]store.Entry, 0, len(chunks))
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := ix.embedBatch(ctx, texts)
		if err != nil {
			return Result{}, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		for i := range batch {
			entries = append(entries, store.Entry{Chunk: batch[i], Vector: vectors[i]})
		}
	}

	report("storing")
	if err := ix.store.Upsert(ctx, entries); err != nil {
		return Result{}, fmt.Errorf("store %s: %w", meta.DocID, err)
	}
	metrics.ChunksIndexedTotal.WithLabelValues(filing.StorageTicker(meta.Ticker)).Add(float64(len(entries)))

	pages := 0
	for _, b := range doc.Blocks {
		if b.Page > pages {
			pages = b.Page
		}
	}
	return Result{DocID: meta.DocID, Chunks: len(entries), Pages: pages}, nil
}

// embedBatch retries transient failures with a flat backoff. Retries are
// bounded and off by default; a persistent failure still aborts the run.
func (ix *Indexer) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= ix.retries; attempt++ {
		if attempt > 0 {
			ix.log.Warn("retrying embedding batch", zap.Int("attempt", attempt), zap.Error(lastErr))
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
