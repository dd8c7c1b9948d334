// Package api exposes the scoring service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ComputeAndStoreScore(ctx context.Context, subjectID string) (*model.EnhancedScore, error)
	Preview(ctx context.Context, snap model.MetricsSnapshot) *model.EnhancedScore
	EnqueueRecompute(ctx context.Context, subjectID string) (service.EnqueueResult, error)

	GetLatestScore(ctx context.Context, subjectID string) (*model.EnhancedScore, error)
	GetScoreHistory(ctx context.Context, subjectID string, days int) ([]model.HistoryEntry, error)
	GetActiveInterventions(ctx context.Context, subjectID string) ([]model.Intervention, error)
	ResolveIntervention(ctx context.Context, id string) error

	Leaderboard(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, subjectID string) (Entry, error)

	StatsProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	activity ActivityStore

	maxLeaderboardLimit int
	maxHistoryDays      int
	logger              logger.Logger
	now                 func() time.Time
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:                deps,
		maxLeaderboardLimit: defaultMaxLeaderboardLimit,
		maxHistoryDays:      defaultMaxHistoryDays,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	r.HandleFunc("/scores/{subject}", s.handleComputeScore).Methods(http.MethodPost)
	r.HandleFunc("/scores/{subject}/recompute", s.handleRecompute).Methods(http.MethodPost)
	r.HandleFunc("/scores/{subject}/latest", s.handleLatestScore).Methods(http.MethodGet)
	r.HandleFunc("/scores/{subject}/history", s.handleScoreHistory).Methods(http.MethodGet)
	r.Handle("/preview", jsonOnly(s.handlePreview)).Methods(http.MethodPost)

	r.HandleFunc("/interventions/{subject}", s.handleActiveInterventions).Methods(http.MethodGet)
	r.HandleFunc("/interventions/{id}/resolve", s.handleResolveIntervention).Methods(http.MethodPost)

	r.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/rank/{subject}", s.handleRank).Methods(http.MethodGet)

	if s.activity != nil {
		s.registerActivityRoutes(r)
	}
	return r
}

// Handler returns the router wrapped with panic recovery.
func (s *Server) Handler() http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(s.Router())
}

// jsonOnly rejects request bodies that are not application/json with 415.
func jsonOnly(h http.HandlerFunc) http.Handler {
	return handlers.ContentTypeHandler(h, "application/json")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// opError prefixes err with the operation name.
func opError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
