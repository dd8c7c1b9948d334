package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pulse/internal/adapters/collector"
)

const (
	// trailingDays is the window of the contacts and appointments counts, today included.
	trailingDays = 7
	// maxStreakDays bounds how far back the streak query looks.
	maxStreakDays = 366
)

// ActivityRepo stores raw subject activity and serves it as a collector.Source.
type ActivityRepo struct {
	db *sql.DB
}

var _ collector.Source = (*ActivityRepo)(nil)

// NewActivityRepo creates a new ActivityRepo.
func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Resolve fails with collector.ErrUnresolvable for an unknown subject.
func (r *ActivityRepo) Resolve(ctx context.Context, subjectID string) error {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM subjects WHERE id = ?`, subjectID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("subject %s: %w", subjectID, collector.ErrUnresolvable)
	}
	if err != nil {
		return fmt.Errorf("resolving subject: %w", err)
	}
	return nil
}

// Count implements collector.Source.
func (r *ActivityRepo) Count(ctx context.Context, subjectID string, c collector.Category, day time.Time) (int, error) {
	start := startOfDay(day)
	end := start.AddDate(0, 0, 1)
	windowStart := start.AddDate(0, 0, -(trailingDays - 1))

	switch c {
	case collector.TasksCompleted:
		return r.scalar(ctx, `SELECT COUNT(*) FROM tasks
			WHERE subject_id = ? AND completed_at >= ? AND completed_at < ?`,
			subjectID, formatTime(start), formatTime(end))
	case collector.TasksOverdue:
		return r.scalar(ctx, `SELECT COUNT(*) FROM tasks
			WHERE subject_id = ? AND completed_at IS NULL AND due_date IS NOT NULL AND due_date < ?`,
			subjectID, start.Format(dayLayout))
	case collector.HighPriorityCompleted:
		return r.scalar(ctx, `SELECT COUNT(*) FROM tasks
			WHERE subject_id = ? AND priority = 'high' AND completed_at >= ? AND completed_at < ?`,
			subjectID, formatTime(start), formatTime(end))
	case collector.GoalsActive:
		return r.scalar(ctx, `SELECT COUNT(*) FROM goals WHERE subject_id = ? AND status = 'active'`, subjectID)
	case collector.GoalsOnTrack:
		return r.goalsOnTrack(ctx, subjectID, start)
	case collector.ContactsAdded:
		return r.scalar(ctx, `SELECT COUNT(*) FROM contacts
			WHERE subject_id = ? AND created_at >= ? AND created_at < ?`,
			subjectID, formatTime(windowStart), formatTime(end))
	case collector.AppointmentsSet:
		return r.scalar(ctx, `SELECT COUNT(*) FROM appointments
			WHERE subject_id = ? AND created_at >= ? AND created_at < ?`,
			subjectID, formatTime(windowStart), formatTime(end))
	case collector.ContentGenerated:
		return r.scalar(ctx, `SELECT COUNT(*) FROM content_items
			WHERE subject_id = ? AND created_at >= ? AND created_at < ?`,
			subjectID, formatTime(start), formatTime(end))
	case collector.IntegrationsConnected:
		return r.scalar(ctx, `SELECT COUNT(*) FROM integrations WHERE subject_id = ? AND status = 'connected'`, subjectID)
	case collector.ConsistencyStreak:
		return r.streak(ctx, subjectID, start)
	default:
		return 0, fmt.Errorf("unknown category %q", c)
	}
}

func (r *ActivityRepo) scalar(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return n, nil
}

// goalsOnTrack counts active goals whose progress ratio is at least the
// elapsed fraction of their start to target window. Goals without a target
// value or a usable window count as on track.
func (r *ActivityRepo) goalsOnTrack(ctx context.Context, subjectID string, today time.Time) (int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT target_value, current_value, start_date, target_date
		FROM goals WHERE subject_id = ? AND status = 'active'`, subjectID)
	if err != nil {
		return 0, fmt.Errorf("listing goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	n := 0
	for rows.Next() {
		var target sql.NullFloat64
		var current float64
		var startDate, targetDate sql.NullString
		if err := rows.Scan(&target, &current, &startDate, &targetDate); err != nil {
			return 0, fmt.Errorf("scanning goal: %w", err)
		}
		if onTrack(target, current, startDate, targetDate, today) {
			n++
		}
	}
	return n, rows.Err()
}

func onTrack(target sql.NullFloat64, current float64, startDate, targetDate sql.NullString, today time.Time) bool {
	if !target.Valid || target.Float64 <= 0 {
		return true
	}
	if !startDate.Valid || !targetDate.Valid {
		return true
	}
	from, err1 := time.Parse(dayLayout, startDate.String)
	to, err2 := time.Parse(dayLayout, targetDate.String)
	if err1 != nil || err2 != nil || !to.After(from) {
		return true
	}

	elapsed := today.Sub(from).Hours() / to.Sub(from).Hours()
	elapsed = max(0, min(1, elapsed))
	return current/target.Float64 >= elapsed
}

// streak counts consecutive UTC days with a qualifying action, ending today
// or, when today has no activity yet, yesterday.
func (r *ActivityRepo) streak(ctx context.Context, subjectID string, today time.Time) (int, error) {
	from := formatTime(today.AddDate(0, 0, -maxStreakDays))
	to := formatTime(today.AddDate(0, 0, 1))
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT substr(ts, 1, 10) FROM (
			SELECT completed_at AS ts FROM tasks WHERE subject_id = ?1 AND completed_at IS NOT NULL
			UNION ALL SELECT created_at FROM contacts WHERE subject_id = ?1
			UNION ALL SELECT created_at FROM appointments WHERE subject_id = ?1
			UNION ALL SELECT created_at FROM content_items WHERE subject_id = ?1
		) WHERE ts >= ?2 AND ts < ?3`,
		subjectID, from, to)
	if err != nil {
		return 0, fmt.Errorf("listing active days: %w", err)
	}
	defer func() { _ = rows.Close() }()

	active := make(map[string]bool)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return 0, fmt.Errorf("scanning active day: %w", err)
		}
		active[d] = true
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	day := today
	if !active[day.Format(dayLayout)] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for active[day.Format(dayLayout)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n, nil
}

// Writers. They back the ingest routes and the seed command.

// AddSubject registers a subject; it is a no-op for a known one.
func (r *ActivityRepo) AddSubject(ctx context.Context, id, name string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subjects (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		id, name, formatTime(at))
	if err != nil {
		return fmt.Errorf("inserting subject: %w", err)
	}
	return nil
}

// Task is a to-do item. DueDate is a UTC day; CompletedAt is nil while open.
type Task struct {
	ID          string
	SubjectID   string
	Title       string
	Priority    string
	DueDate     *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// AddTask inserts a task, assigning an id when empty.
func (r *ActivityRepo) AddTask(ctx context.Context, t Task) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	var due, completed any
	if t.DueDate != nil {
		due = t.DueDate.UTC().Format(dayLayout)
	}
	if t.CompletedAt != nil {
		completed = formatTime(*t.CompletedAt)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, subject_id, title, priority, due_date, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SubjectID, t.Title, t.Priority, due, completed, formatTime(t.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("inserting task: %w", err)
	}
	return t.ID, nil
}

// Goal is a tracked objective. A nil TargetValue, StartDate or TargetDate
// disables the progress check.
type Goal struct {
	ID           string
	SubjectID    string
	Title        string
	Status       string
	TargetValue  *float64
	CurrentValue float64
	StartDate    *time.Time
	TargetDate   *time.Time
	CreatedAt    time.Time
}

// AddGoal inserts a goal, assigning an id when empty.
func (r *ActivityRepo) AddGoal(ctx context.Context, g Goal) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = "active"
	}
	var target, startDate, targetDate any
	if g.TargetValue != nil {
		target = *g.TargetValue
	}
	if g.StartDate != nil {
		startDate = g.StartDate.UTC().Format(dayLayout)
	}
	if g.TargetDate != nil {
		targetDate = g.TargetDate.UTC().Format(dayLayout)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, subject_id, title, status, target_value, current_value, start_date, target_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.SubjectID, g.Title, g.Status, target, g.CurrentValue, startDate, targetDate, formatTime(g.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("inserting goal: %w", err)
	}
	return g.ID, nil
}

// AddContact records a contact added at at.
func (r *ActivityRepo) AddContact(ctx context.Context, subjectID, name string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (id, subject_id, name, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), subjectID, name, formatTime(at))
	if err != nil {
		return fmt.Errorf("inserting contact: %w", err)
	}
	return nil
}

// AddAppointment records an appointment set at at for scheduledFor.
func (r *ActivityRepo) AddAppointment(ctx context.Context, subjectID string, scheduledFor, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO appointments (id, subject_id, scheduled_for, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), subjectID, formatTime(scheduledFor), formatTime(at))
	if err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

// AddContent records a generated content item.
func (r *ActivityRepo) AddContent(ctx context.Context, subjectID, kind string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO content_items (id, subject_id, kind, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), subjectID, kind, formatTime(at))
	if err != nil {
		return fmt.Errorf("inserting content item: %w", err)
	}
	return nil
}

// SetIntegration connects or disconnects a provider for a subject.
func (r *ActivityRepo) SetIntegration(ctx context.Context, subjectID, provider string, connected bool, at time.Time) error {
	status := "disconnected"
	if connected {
		status = "connected"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO integrations (id, subject_id, provider, status, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, provider) DO UPDATE SET status = excluded.status`,
		uuid.NewString(), subjectID, provider, status, formatTime(at))
	if err != nil {
		return fmt.Errorf("upserting integration: %w", err)
	}
	return nil
}
