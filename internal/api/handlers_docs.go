package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/store"
)

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	available, err := s.store.TickerPeriods(r.Context())
	if err != nil {
		s.log.Error("list tickers failed", zap.Error(err))
		jsonError(w, "failed to list tickers", http.StatusInternalServerError)
		return
	}

	tickers := make([]string, 0, len(available))
	for t := range available {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"tickers": tickers})
}

func (s *Server) handleTickerPeriods(w http.ResponseWriter, r *http.Request) {
	ticker := filing.NormalizeTicker(chi.URLParam(r, "ticker"))

	available, err := s.store.TickerPeriods(r.Context())
	if err != nil {
		s.log.Error("list periods failed", zap.Error(err))
		jsonError(w, "failed to list periods", http.StatusInternalServerError)
		return
	}

	periods, ok := available[ticker]
	if !ok {
		jsonError(w, "unknown ticker: "+ticker, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ticker": ticker, "periods": periods})
}

// handleChunkFile serves the local source file a chunk came from, so the
// frontend can open the filing at the cited page.
func (s *Server) handleChunkFile(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	chunkID := chi.URLParam(r, "chunkID")

	chunk, err := s.store.Get(r.Context(), chunkID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "chunk not found", http.StatusNotFound)
			return
		}
		s.log.Error("chunk lookup failed", zap.Error(err))
		jsonError(w, "chunk lookup failed", http.StatusInternalServerError)
		return
	}
	if chunk.Meta.DocID != docID {
		jsonError(w, "chunk does not belong to document", http.StatusNotFound)
		return
	}
	if chunk.Meta.LocalPath == "" {
		jsonError(w, "no local file for this chunk", http.StatusNotFound)
		return
	}

	// The served path must stay inside the filings root.
	root, err := filepath.Abs(s.cfg.Ingest.FilingsRoot)
	if err != nil {
		jsonError(w, "invalid filings root", http.StatusInternalServerError)
		return
	}
	path, err := filepath.Abs(chunk.Meta.LocalPath)
	if err != nil || !filepath.IsLocal(mustRel(root, path)) {
		jsonError(w, "file is outside the filings root", http.StatusForbidden)
		return
	}

	http.ServeFile(w, r, path)
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return ".."
	}
	return rel
}
