// Package collector assembles a metrics snapshot for one subject from a
// Source, one concurrent read per metric category.
package collector

import (
	"context"
	"time"
)

// Category names one raw count read from a Source.
type Category string

const (
	TasksCompleted        Category = "tasks_completed"
	TasksOverdue          Category = "tasks_overdue"
	HighPriorityCompleted Category = "high_priority_completed"
	GoalsActive           Category = "goals_active"
	GoalsOnTrack          Category = "goals_on_track"
	ContactsAdded         Category = "contacts_added"
	AppointmentsSet       Category = "appointments_set"
	ContentGenerated      Category = "content_generated"
	IntegrationsConnected Category = "integrations_connected"
	ConsistencyStreak     Category = "consistency_streak"
)

// Categories lists every category a snapshot is assembled from.
var Categories = [...]Category{
	TasksCompleted,
	TasksOverdue,
	HighPriorityCompleted,
	GoalsActive,
	GoalsOnTrack,
	ContactsAdded,
	AppointmentsSet,
	ContentGenerated,
	IntegrationsConnected,
	ConsistencyStreak,
}

// Source supplies raw activity counts.
type Source interface {
	// Resolve checks that the subject can be scored. A failure aborts the run.
	Resolve(ctx context.Context, subjectID string) error

	// Count returns the count of one category for the subject on the UTC day
	// of day. Windowed categories look back from that day.
	Count(ctx context.Context, subjectID string, c Category, day time.Time) (int, error)
}

// TokenProvider supplies a bearer token per request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }
