package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/pulse/internal/domain/model"
)

// ScoreOption customizes NewTestScore.
type ScoreOption func(*model.EnhancedScore)

func WithOverall(overall int) ScoreOption {
	return func(s *model.EnhancedScore) {
		s.Overall = overall
	}
}

func WithComputedAt(t time.Time) ScoreOption {
	return func(s *model.EnhancedScore) {
		s.ComputedAt = t
	}
}

// NewTestScore builds a plausible score for subjectID.
func NewTestScore(subjectID string, opts ...ScoreOption) *model.EnhancedScore {
	s := &model.EnhancedScore{
		ID:                  uuid.NewString(),
		SubjectID:           subjectID,
		ComputedAt:          time.Now().UTC(),
		Pillars:             model.PillarScores{Planning: 12, Urgency: 14, LeadEngagement: 8, Systems: 16, Execution: 10},
		Overall:             60,
		TrendDirection:      model.TrendStable,
		PredictiveScore:     60,
		ConfidenceInterval:  0.2,
		StrongestPillar:     model.PillarSystems,
		WeakestPillar:       model.PillarLeadEngagement,
		ImprovementPriority: model.PillarLeadEngagement,
		PeerPercentile:      50,
		PerformanceTier:     model.TierMedium,
		Interventions:       []model.Intervention{},
		Recommendations:     []string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTestIntervention builds an unresolved intervention for subjectID.
func NewTestIntervention(subjectID string, createdAt time.Time) model.Intervention {
	return model.Intervention{
		ID:             uuid.NewString(),
		SubjectID:      subjectID,
		TriggerType:    model.TriggerScoreDrop,
		PillarAffected: string(model.PillarPlanning),
		Severity:       model.SeverityHigh,
		Recommendation: "Your Planning score needs immediate attention",
		ActionSteps:    []string{"one", "two", "three"},
		CreatedAt:      createdAt,
	}
}
