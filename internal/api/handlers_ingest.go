package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/quartermill/finsight/internal/filing"
	"github.com/quartermill/finsight/internal/ingest"
	"github.com/quartermill/finsight/internal/parser"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.HTTP.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	ticker := filing.NormalizeTicker(r.FormValue("ticker"))
	if ticker == "" {
		jsonError(w, "ticker is required", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > maxBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d MB)", s.cfg.HTTP.MaxUploadMB), http.StatusRequestEntityTooLarge)
		return
	}

	period := r.FormValue("period")
	if period == "" {
		period, err = ingest.PeriodFromFilename(filename)
		if err != nil {
			jsonError(w, "period is required when the filename carries none: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	meta, err := filing.NewMetadata(ingest.DocIDFor(ticker, period, filename), ticker, r.FormValue("filing_type"), period)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	meta.Title = r.FormValue("title")
	meta.SourceURL = r.FormValue("source_url")

	jobID, err := s.orchestrator.Submit(filename, meta, data)
	if err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   jobID,
		"doc_id":   meta.DocID,
		"status":   ingest.StatusQueued,
		"poll_url": fmt.Sprintf("/api/ingest/%s/status", jobID),
	})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
