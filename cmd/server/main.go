package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/api"
	"github.com/quartermill/finsight/internal/chunker"
	"github.com/quartermill/finsight/internal/config"
	"github.com/quartermill/finsight/internal/ingest"
	"github.com/quartermill/finsight/internal/llm"
	"github.com/quartermill/finsight/internal/logger"
	"github.com/quartermill/finsight/internal/metrics"
	"github.com/quartermill/finsight/internal/rag"
	"github.com/quartermill/finsight/internal/section"
	"github.com/quartermill/finsight/internal/store/redis"
)

func main() {
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg := config.MustLoad(env)

	log, err := logger.New(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	metrics.RegisterLLMMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	stats := llm.NewStats(time.Hour)
	embedder := llm.NewEmbedder(llm.EmbedderConfig{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.Dimensions,
		Stats:      stats,
		Logger:     log,
	})
	chat := llm.NewChat(llm.ChatConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.ChatModel,
		Stats:   stats,
		Logger:  log,
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

	orch := ingest.NewOrchestrator(indexer, ingest.OrchestratorConfig{
		Workers: cfg.Ingest.Workers,
		JobTTL:  time.Duration(cfg.Ingest.JobTTLSec) * time.Second,
	}, log)
	orch.Start(ctx)

	retriever := rag.NewRetriever(embedder, st, log)
	qa := rag.NewService(retriever, chat, st, log)

	srv := api.NewServer(qa, retriever, orch, st, stats, log, cfg)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      srv,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting finsight", zap.Int("port", cfg.HTTP.Port), zap.String("env", env))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
}
