package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/idrecon/idrecon/internal/model"
	"github.com/idrecon/idrecon/internal/orchestrator"
)

// maxRequestBody bounds the submission request body size.
const maxRequestBody = 64 * 1024

// submitRequest is the POST /api/v1/queries request body.
// Deadline is a Go duration string (e.g. "45s"); empty means the
// configured default.
type submitRequest struct {
	Type      string   `json:"type"`
	Value     string   `json:"value"`
	Deadline  string   `json:"deadline,omitempty"`
	DeepScan  bool     `json:"deep_scan,omitempty"`
	Allowlist []string `json:"scanner_allowlist,omitempty"`
}

// submitResponse is the POST /api/v1/queries response body.
type submitResponse struct {
	ID string `json:"id"`
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// handleSubmit accepts a query and returns its id with 202 Accepted.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	qt, err := model.ParseQueryType(req.Type)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := model.Options{
		DeepScan:  req.DeepScan,
		Allowlist: req.Allowlist,
	}
	if req.Deadline != "" {
		d, err := time.ParseDuration(req.Deadline)
		if err != nil || d <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid deadline")
			return
		}
		opts.Deadline = d
	}

	id, err := s.svc.Submit(r.Context(), qt, req.Value, opts)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrEmptyQueryValue), errors.Is(err, model.ErrUnknownQueryType):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("submit failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	s.writeJSON(w, http.StatusAccepted, submitResponse{ID: id})
}

// handleGetResult returns the current view of a query. Results for
// running queries are interim snapshots.
func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.svc.GetResult(id)
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnknownQuery) {
			s.writeError(w, http.StatusNotFound, "unknown query id")
			return
		}
		s.logger.Error("get result failed", "query_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

// handleCancel cancels a running query.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.svc.Cancel(id); err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrUnknownQuery):
			s.writeError(w, http.StatusNotFound, "unknown query id")
		case errors.Is(err, orchestrator.ErrQueryTerminal):
			s.writeError(w, http.StatusConflict, "query already in a terminal state")
		default:
			s.logger.Error("cancel failed", "query_id", id, "error", err)
			s.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v as a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
