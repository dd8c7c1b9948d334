package api

import (
	"errors"
	"net/http"

	"github.com/okian/pulse/internal/adapters/repository"
)

// handleRank handles GET /rank/{subject}.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	subject, ok := subjectVar(w, r, op)
	if !ok {
		return
	}
	entry, err := s.deps.Rank(r.Context(), subject)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, entry)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", opError(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", opError(op, err))
	}
}
