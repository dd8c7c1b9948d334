package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/okian/pulse/internal/adapters/collector"
	"github.com/okian/pulse/internal/adapters/mq/queue"
	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

const maxPreviewBody = 1 << 20

type recomputeResponse struct {
	SubjectID string `json:"subject_id"`
	Status    string `json:"status"`
}

// subjectVar returns the trimmed {subject} path variable, writing a 400 when blank.
func subjectVar(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	subject := strings.TrimSpace(mux.Vars(r)["subject"])
	if subject == "" {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, ErrBadRequest))
		return "", false
	}
	return subject, true
}

// handleComputeScore handles POST /scores/{subject}.
func (s *Server) handleComputeScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.compute_score"
	subject, ok := subjectVar(w, r, op)
	if !ok {
		return
	}
	score, err := s.deps.ComputeAndStoreScore(r.Context(), subject)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, score)
	case errors.Is(err, service.ErrInvalidSubject):
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, err))
	case errors.Is(err, collector.ErrUnresolvable):
		writeError(w, http.StatusNotFound, "not_found", opError(op, err))
	default:
		s.logger.Error(r.Context(), "compute failed", logger.String("subject", subject), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", opError(op, err))
	}
}

// handleRecompute handles POST /scores/{subject}/recompute.
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	const op = "api.recompute"
	subject, ok := subjectVar(w, r, op)
	if !ok {
		return
	}
	res, err := s.deps.EnqueueRecompute(r.Context(), subject)
	switch {
	case err == nil && res == service.Duplicate:
		writeJSON(w, http.StatusOK, recomputeResponse{SubjectID: subject, Status: string(res)})
	case err == nil:
		writeJSON(w, http.StatusAccepted, recomputeResponse{SubjectID: subject, Status: string(res)})
	case errors.Is(err, service.ErrInvalidSubject):
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, err))
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", opError(op, ErrBackpressure))
	case errors.Is(err, queue.ErrClosed), errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", opError(op, ErrUnavailable))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", opError(op, err))
	}
}

// handleLatestScore handles GET /scores/{subject}/latest.
func (s *Server) handleLatestScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.latest_score"
	subject, ok := subjectVar(w, r, op)
	if !ok {
		return
	}
	score, err := s.deps.GetLatestScore(r.Context(), subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", opError(op, err))
		return
	}
	if score == nil {
		writeError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

// handleScoreHistory handles GET /scores/{subject}/history?days=N.
func (s *Server) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_history"
	subject, ok := subjectVar(w, r, op)
	if !ok {
		return
	}
	days := defaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", opError(op, ErrBadRequest))
			return
		}
		if n > s.maxHistoryDays {
			writeError(w, http.StatusBadRequest, "days_exceeded", opError(op, ErrBadRequest))
			return
		}
		days = n
	}
	entries, err := s.deps.GetScoreHistory(r.Context(), subject, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", opError(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handlePreview handles POST /preview. The body is a metrics snapshot;
// nothing is persisted.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	const op = "api.preview"
	var snap model.MetricsSnapshot
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreviewBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, err))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Preview(r.Context(), snap))
}
