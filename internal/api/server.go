// Package api exposes the HTTP surface: question answering, retrieval,
// filing uploads and the document file viewer.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/config"
	"github.com/quartermill/finsight/internal/ingest"
	"github.com/quartermill/finsight/internal/llm"
	"github.com/quartermill/finsight/internal/metrics"
	"github.com/quartermill/finsight/internal/rag"
	"github.com/quartermill/finsight/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	qa           *rag.Service
	retriever    *rag.Retriever
	orchestrator *ingest.Orchestrator
	store        store.Store
	stats        *llm.Stats
	log          *zap.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(
	qa *rag.Service,
	retriever *rag.Retriever,
	orch *ingest.Orchestrator,
	st store.Store,
	stats *llm.Stats,
	log *zap.Logger,
	cfg config.Config,
) *Server {
	s := &Server{
		qa:           qa,
		retriever:    retriever,
		orchestrator: orch,
		store:        st,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(metrics.Middleware())

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.Auth.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.Auth.APIKey, s.log))
		}

		r.Post("/api/chat", s.handleChat)
		r.Post("/api/retrieve", s.handleRetrieve)

		r.Get("/api/tickers", s.handleTickers)
		r.Get("/api/tickers/{ticker}/periods", s.handleTickerPeriods)

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)

		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/documents/{docID}/chunks/{chunkID}/file", s.handleChunkFile)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
