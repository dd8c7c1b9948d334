package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/okian/pulse/internal/adapters/repository"
)

// handleActiveInterventions handles GET /interventions/{subject}.
func (s *Server) handleActiveInterventions(w http.ResponseWriter, r *http.Request) {
	const op = "api.active_interventions"
	subject, ok := subjectVar(w, r, op)
	if !ok {
		return
	}
	in, err := s.deps.GetActiveInterventions(r.Context(), subject)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", opError(op, err))
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// handleResolveIntervention handles POST /interventions/{id}/resolve.
func (s *Server) handleResolveIntervention(w http.ResponseWriter, r *http.Request) {
	const op = "api.resolve_intervention"
	id := strings.TrimSpace(mux.Vars(r)["id"])
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, ErrBadRequest))
		return
	}
	err := s.deps.ResolveIntervention(r.Context(), id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", opError(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", opError(op, err))
	}
}
