package api

import (
	"net/http"
	"strconv"
)

// handleLeaderboard handles GET /leaderboard?limit=N.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	n := min(defaultLeaderboardLimit, s.maxLeaderboardLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		n, err = strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", opError(op, ErrBadRequest))
			return
		}
		if n > s.maxLeaderboardLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", opError(op, ErrBadRequest))
			return
		}
	}
	entries, err := s.deps.Leaderboard(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", opError(op, err))
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
