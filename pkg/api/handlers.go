package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lab271/dmvoor/pkg/corpus"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListRuns returns indexed runs, newest first. An optional limit
// query parameter caps the result.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest,
				errorResponse{"limit must be a positive integer"})

			return
		}

		limit = parsed
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing runs: " + err.Error()})

		return
	}

	if runs == nil {
		runs = []corpus.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"generated": time.Now().Unix(),
		"runs":      runs,
	})
}

// handleGetRun returns a single indexed run by run id.
func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if runID == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"run id is required"})

		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if errors.Is(err, corpus.ErrRunNotFound) {
		writeJSON(w, http.StatusNotFound,
			errorResponse{"run not found"})

		return
	}

	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"getting run: " + err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleListWorkloads returns the distinct workload ids in the index.
func (s *server) handleListWorkloads(w http.ResponseWriter, r *http.Request) {
	workloads, err := s.store.ListWorkloads(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing workloads: " + err.Error()})

		return
	}

	if workloads == nil {
		workloads = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"workloads": workloads})
}

// handleFileRequest serves dataset files from the configured output roots.
func (s *server) handleFileRequest(w http.ResponseWriter, r *http.Request) {
	filePath := chi.URLParam(r, "*")
	if filePath == "" {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"file path is required"})

		return
	}

	if err := s.files.ServeFile(w, r, filePath); err != nil {
		writeJSON(w, http.StatusNotFound,
			errorResponse{"file not found"})
	}
}
