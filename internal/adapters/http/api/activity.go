package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/okian/pulse/internal/adapters/collector"
	"github.com/okian/pulse/internal/adapters/repository/sqlite"
)

const (
	dayLayout       = "2006-01-02"
	maxActivityBody = 64 << 10
)

// ActivityStore records raw subject activity. It is only wired when the
// SQLite source feeds the collector.
type ActivityStore interface {
	Resolve(ctx context.Context, subjectID string) error
	AddSubject(ctx context.Context, id, name string, at time.Time) error
	AddTask(ctx context.Context, t sqlite.Task) (string, error)
	AddGoal(ctx context.Context, g sqlite.Goal) (string, error)
	AddContact(ctx context.Context, subjectID, name string, at time.Time) error
	AddAppointment(ctx context.Context, subjectID string, scheduledFor, at time.Time) error
	AddContent(ctx context.Context, subjectID, kind string, at time.Time) error
	SetIntegration(ctx context.Context, subjectID, provider string, connected bool, at time.Time) error
}

type createdResponse struct {
	ID string `json:"id"`
}

type subjectRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type taskRequest struct {
	Title       string     `json:"title"`
	Priority    string     `json:"priority"`
	DueDate     string     `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	At          *time.Time `json:"at"`
}

type goalRequest struct {
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	TargetValue  *float64   `json:"target_value"`
	CurrentValue float64    `json:"current_value"`
	StartDate    string     `json:"start_date"`
	TargetDate   string     `json:"target_date"`
	At           *time.Time `json:"at"`
}

type contactRequest struct {
	Name string     `json:"name"`
	At   *time.Time `json:"at"`
}

type appointmentRequest struct {
	ScheduledFor time.Time  `json:"scheduled_for"`
	At           *time.Time `json:"at"`
}

type contentRequest struct {
	Kind string     `json:"kind"`
	At   *time.Time `json:"at"`
}

type integrationRequest struct {
	Connected bool       `json:"connected"`
	At        *time.Time `json:"at"`
}

var validPriorities = map[string]bool{"": true, "low": true, "medium": true, "high": true}

func (s *Server) registerActivityRoutes(r *mux.Router) {
	r.Handle("/subjects", jsonOnly(s.handleAddSubject)).Methods(http.MethodPost)
	r.Handle("/subjects/{subject}/tasks", jsonOnly(s.handleAddTask)).Methods(http.MethodPost)
	r.Handle("/subjects/{subject}/goals", jsonOnly(s.handleAddGoal)).Methods(http.MethodPost)
	r.Handle("/subjects/{subject}/contacts", jsonOnly(s.handleAddContact)).Methods(http.MethodPost)
	r.Handle("/subjects/{subject}/appointments", jsonOnly(s.handleAddAppointment)).Methods(http.MethodPost)
	r.Handle("/subjects/{subject}/content", jsonOnly(s.handleAddContent)).Methods(http.MethodPost)
	r.Handle("/subjects/{subject}/integrations/{provider}", jsonOnly(s.handleSetIntegration)).Methods(http.MethodPut)
}

// decodeBody strictly decodes a bounded JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActivityBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, err))
		return false
	}
	return true
}

// activitySubject reads {subject} and checks that it exists, writing 400 or 404.
func (s *Server) activitySubject(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	subject, ok := subjectVar(w, r, op)
	if !ok {
		return "", false
	}
	if err := s.activity.Resolve(r.Context(), subject); err != nil {
		s.writeActivityError(w, op, err)
		return "", false
	}
	return subject, true
}

func (s *Server) writeActivityError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, collector.ErrUnresolvable) {
		writeError(w, http.StatusNotFound, "not_found", opError(op, err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", opError(op, err))
}

func (s *Server) at(t *time.Time) time.Time {
	if t != nil && !t.IsZero() {
		return t.UTC()
	}
	return s.now().UTC()
}

// parseDay parses an optional YYYY-MM-DD field.
func parseDay(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse(dayLayout, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrBadRequest, field)
	}
	return &d, nil
}

// handleAddSubject handles POST /subjects.
func (s *Server) handleAddSubject(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_subject"
	var req subjectRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || strings.Contains(req.ID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, ErrBadRequest))
		return
	}
	if err := s.activity.AddSubject(r.Context(), req.ID, req.Name, s.now().UTC()); err != nil {
		s.writeActivityError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: req.ID})
}

// handleAddTask handles POST /subjects/{subject}/tasks.
func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_task"
	var req taskRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	req.Priority = strings.ToLower(strings.TrimSpace(req.Priority))
	if !validPriorities[req.Priority] {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, fmt.Errorf("%w: unknown priority %q", ErrBadRequest, req.Priority)))
		return
	}
	due, err := parseDay("due_date", req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, err))
		return
	}
	subject, ok := s.activitySubject(w, r, op)
	if !ok {
		return
	}

	var completed *time.Time
	if req.CompletedAt != nil {
		c := req.CompletedAt.UTC()
		completed = &c
	}
	id, err := s.activity.AddTask(r.Context(), sqlite.Task{
		SubjectID:   subject,
		Title:       req.Title,
		Priority:    req.Priority,
		DueDate:     due,
		CompletedAt: completed,
		CreatedAt:   s.at(req.At),
	})
	if err != nil {
		s.writeActivityError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// handleAddGoal handles POST /subjects/{subject}/goals.
func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_goal"
	var req goalRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	start, err := parseDay("start_date", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, err))
		return
	}
	target, err := parseDay("target_date", req.TargetDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, err))
		return
	}
	subject, ok := s.activitySubject(w, r, op)
	if !ok {
		return
	}

	id, err := s.activity.AddGoal(r.Context(), sqlite.Goal{
		SubjectID:    subject,
		Title:        req.Title,
		Status:       strings.ToLower(strings.TrimSpace(req.Status)),
		TargetValue:  req.TargetValue,
		CurrentValue: req.CurrentValue,
		StartDate:    start,
		TargetDate:   target,
		CreatedAt:    s.at(req.At),
	})
	if err != nil {
		s.writeActivityError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

// handleAddContact handles POST /subjects/{subject}/contacts.
func (s *Server) handleAddContact(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_contact"
	var req contactRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	subject, ok := s.activitySubject(w, r, op)
	if !ok {
		return
	}
	if err := s.activity.AddContact(r.Context(), subject, req.Name, s.at(req.At)); err != nil {
		s.writeActivityError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleAddAppointment handles POST /subjects/{subject}/appointments.
func (s *Server) handleAddAppointment(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_appointment"
	var req appointmentRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	if req.ScheduledFor.IsZero() {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, fmt.Errorf("%w: scheduled_for is required", ErrBadRequest)))
		return
	}
	subject, ok := s.activitySubject(w, r, op)
	if !ok {
		return
	}
	if err := s.activity.AddAppointment(r.Context(), subject, req.ScheduledFor.UTC(), s.at(req.At)); err != nil {
		s.writeActivityError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleAddContent handles POST /subjects/{subject}/content.
func (s *Server) handleAddContent(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_content"
	var req contentRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	subject, ok := s.activitySubject(w, r, op)
	if !ok {
		return
	}
	if err := s.activity.AddContent(r.Context(), subject, req.Kind, s.at(req.At)); err != nil {
		s.writeActivityError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// handleSetIntegration handles PUT /subjects/{subject}/integrations/{provider}.
func (s *Server) handleSetIntegration(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_integration"
	var req integrationRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	provider := strings.TrimSpace(mux.Vars(r)["provider"])
	if provider == "" {
		writeError(w, http.StatusBadRequest, "bad_request", opError(op, ErrBadRequest))
		return
	}
	subject, ok := s.activitySubject(w, r, op)
	if !ok {
		return
	}
	if err := s.activity.SetIntegration(r.Context(), subject, provider, req.Connected, s.at(req.At)); err != nil {
		s.writeActivityError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
