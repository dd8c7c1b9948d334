// Package repository defines the score store contract, the peer ranking
// store and their errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
)

// ScoreStore persists scoring runs. Records are append-only except for the
// resolved flag of an intervention.
type ScoreStore interface {
	SaveSnapshot(ctx context.Context, snap model.MetricsSnapshot) error
	SaveScore(ctx context.Context, score *model.EnhancedScore) error
	AppendHistory(ctx context.Context, entry model.HistoryEntry) error
	SaveIntervention(ctx context.Context, in model.Intervention) error

	// LatestScore returns ErrNotFound when the subject has no score yet.
	LatestScore(ctx context.Context, subjectID string) (*model.EnhancedScore, error)
	// History returns entries computed at or after since, oldest first.
	History(ctx context.Context, subjectID string, since time.Time) ([]model.HistoryEntry, error)
	// ActiveInterventions returns unresolved interventions, newest first.
	ActiveInterventions(ctx context.Context, subjectID string) ([]model.Intervention, error)
	// ResolveIntervention returns ErrNotFound for an unknown id.
	ResolveIntervention(ctx context.Context, id string, at time.Time) error
	// LatestOverallScores maps every scored subject to its latest overall score.
	LatestOverallScores(ctx context.Context) (map[string]int, error)
}

// Ranking keeps the latest overall score of every subject in rank order.
type Ranking interface {
	// Upsert replaces the subject's score.
	Upsert(ctx context.Context, subjectID string, overall int) error

	// Standing counts the other subjects below and equal to overall.
	Standing(ctx context.Context, subjectID string, overall int) (types.Standing, error)

	// Rank returns ErrNotFound if the subject is unknown.
	Rank(ctx context.Context, subjectID string) (types.Entry, error)

	// TopN returns the top-N entries ordered by score desc, subject asc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of ranked subjects.
	Count(ctx context.Context) int
}
