package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/quartermill/finsight/internal/llm"
	"github.com/quartermill/finsight/internal/rag"
)

type chatRequest struct {
	Question string   `json:"question"`
	Tickers  []string `json:"tickers,omitempty"`
	Period   string   `json:"period,omitempty"`
	TopK     int      `json:"top_k,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	k := s.clampTopK(req.TopK)

	answer, err := s.qa.Ask(r.Context(), req.Question, k, rag.Filters{
		Tickers: req.Tickers,
		Period:  req.Period,
	})
	if err != nil {
		s.serviceError(w, "chat failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(answer)
}

type retrieveResponse struct {
	Results []rag.Citation `json:"results"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	k := s.clampTopK(req.TopK)

	results, err := s.retriever.Retrieve(r.Context(), req.Question, k, rag.Filters{
		Tickers: req.Tickers,
		Period:  req.Period,
	})
	if err != nil {
		s.serviceError(w, "retrieval failed", err)
		return
	}

	resp := retrieveResponse{Results: make([]rag.Citation, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, rag.NewCitation(res))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.stats.Snapshot())
}

func (s *Server) clampTopK(k int) int {
	if k <= 0 {
		return s.cfg.Index.DefaultTopK
	}
	if k > s.cfg.Index.MaxTopK {
		return s.cfg.Index.MaxTopK
	}
	return k
}

// serviceError maps upstream failures to 502 and everything else to 500.
func (s *Server) serviceError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, zap.Error(err))
	code := http.StatusInternalServerError
	if errors.Is(err, llm.ErrEmbeddingService) || errors.Is(err, llm.ErrChatService) {
		code = http.StatusBadGateway
	}
	jsonError(w, msg+": "+err.Error(), code)
}
