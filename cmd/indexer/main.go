// Command indexer batch-indexes filings from disk into the vector store.
//
//	indexer -ticker AMZN          index one ticker's directory
//	indexer -all                  index every ticker under the filings root
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/chunker"
	"github.com/quartermill/finsight/internal/config"
	"github.com/quartermill/finsight/internal/ingest"
	"github.com/quartermill/finsight/internal/llm"
	"github.com/quartermill/finsight/internal/logger"
	"github.com/quartermill/finsight/internal/metrics"
	"github.com/quartermill/finsight/internal/section"
	"github.com/quartermill/finsight/internal/store/redis"
)

func main() {
	var (
		ticker = flag.String("ticker", "", "index a single ticker's filings directory")
		all    = flag.Bool("all", false, "index every ticker directory under the filings root")
		root   = flag.String("root", "", "override the configured filings root")
	)
	flag.Parse()

	if *ticker == "" && !*all {
		fmt.Fprintln(os.Stderr, "either -ticker or -all is required")
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	env := config.GetEnv()
	cfg := config.MustLoad(env)
	if *root != "" {
		cfg.Ingest.FilingsRoot = *root
	}

	log, err := logger.New(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	metrics.RegisterLLMMetrics()

	ctx := context.Background()

	st, err := redis.NewStore(redis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		DB:         cfg.Database.DB,
		KeyPrefix:  cfg.Storage.KeyPrefix,
		IndexName:  cfg.Storage.IndexName,
		VectorDim:  cfg.OpenAI.Dimensions,
		HNSWM:      cfg.Index.HNSWM,
		HNSWEFCons: cfg.Index.HNSWEFConstruct,
	})
	if err != nil {
		log.Fatal("connect store", zap.Error(err))
	}
	defer st.Close()

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := st.WaitForReady(ctx, readiness); err != nil {
		log.Fatal("store not ready", zap.Error(err))
	}
	if err := st.EnsureIndex(ctx); err != nil {
		log.Fatal("ensure index", zap.Error(err))
	}

	embedder := llm.NewEmbedder(llm.EmbedderConfig{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.Dimensions,
		Logger:     log,
	})

	chk, err := chunker.New(chunker.Config{
		MaxTokens:         cfg.Chunking.MaxTokens,
		OverlapTokens:     cfg.Chunking.OverlapTokens,
		MaxBlockTokens:    cfg.Chunking.MaxBlockTokens,
		KeepTablesIntact:  !cfg.Chunking.SplitTables,
		AddSectionHeaders: cfg.Chunking.AddSectionHeaders,
	}, log)
	if err != nil {
		log.Fatal("chunker config", zap.Error(err))
	}

	indexer := ingest.NewIndexer(ingest.IndexerConfig{
		Chunker:   chk,
		Tagger:    section.NewRegexTagger(),
		Embedder:  embedder,
		Store:     st,
		Logger:    log,
		BatchSize: cfg.Index.EmbedBatchSize,
		Retries:   cfg.Index.EmbedRetries,
	})
	loader := ingest.NewLoader(indexer, cfg.Ingest.FilingsRoot, log)

	start := time.Now()
	var summary ingest.LoadSummary
	if *all {
		summary, err = loader.LoadAll(ctx)
	} else {
		summary, err = loader.LoadTicker(ctx, *ticker)
	}
	if err != nil {
		log.Fatal("indexing failed", zap.Error(err),
			zap.Int("documents", summary.Documents), zap.Int("chunks", summary.Chunks))
	}

	log.Info("indexing complete",
		zap.Int("documents", summary.Documents),
		zap.Int("chunks", summary.Chunks),
		zap.Strings("skipped", summary.Skipped),
		zap.Duration("elapsed", time.Since(start)))
}
