package model

import "time"

// TrendDirection classifies the recent movement of the overall score.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

// Tier is the performance tier derived from the overall score or percentile.
type Tier string

const (
	TierElite  Tier = "elite"
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TriggerType is what caused an intervention.
type TriggerType string

const (
	TriggerScoreDrop   TriggerType = "score_drop"
	TriggerStagnation  TriggerType = "stagnation"
	TriggerPattern     TriggerType = "pattern"
	TriggerOpportunity TriggerType = "opportunity"
)

// Severity of an intervention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Trend is the output of trend analysis.
type Trend struct {
	Direction  TrendDirection `json:"direction"`
	Velocity   float64        `json:"velocity"`
	Confidence float64        `json:"confidence"`
}

// EnhancedScore is the full record produced by one scoring run.
// Records are append-only: later runs create new records.
type EnhancedScore struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	ComputedAt time.Time `json:"computed_at"`

	Pillars PillarScores `json:"pillars"`
	Overall int          `json:"overall"`

	TrendDirection     TrendDirection `json:"trend_direction"`
	TrendVelocity      float64        `json:"trend_velocity"`
	PredictiveScore    float64        `json:"predictive_score"`
	ConfidenceInterval float64        `json:"confidence_interval"`

	StrongestPillar     Pillar `json:"strongest_pillar"`
	WeakestPillar       Pillar `json:"weakest_pillar"`
	ImprovementPriority Pillar `json:"improvement_priority"`

	PeerPercentile  int  `json:"peer_percentile"`
	PerformanceTier Tier `json:"performance_tier"`

	Interventions   []Intervention `json:"interventions"`
	Recommendations []string       `json:"recommendations"`
}

// Intervention is a coaching recommendation emitted by a scoring run.
type Intervention struct {
	ID             string      `json:"id"`
	SubjectID      string      `json:"subject_id"`
	ScoreID        string      `json:"score_id,omitempty"`
	TriggerType    TriggerType `json:"trigger_type"`
	PillarAffected string      `json:"pillar_affected"`
	Severity       Severity    `json:"severity"`
	Recommendation string      `json:"recommendation"`
	ActionSteps    []string    `json:"action_steps"`
	Resolved       bool        `json:"resolved"`
	CreatedAt      time.Time   `json:"created_at"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
}

// HistoryEntry is one score value written per pillar, plus one for overall, per run.
type HistoryEntry struct {
	SubjectID  string    `json:"subject_id"`
	ScoreType  string    `json:"score_type"`
	ScoreValue int       `json:"score_value"`
	ComputedAt time.Time `json:"computed_at"`
}

// HistoryEntries expands a score into its six history rows.
func HistoryEntries(s *EnhancedScore) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(PillarOrder)+1)
	for _, p := range PillarOrder {
		out = append(out, HistoryEntry{SubjectID: s.SubjectID, ScoreType: string(p), ScoreValue: s.Pillars.Get(p), ComputedAt: s.ComputedAt})
	}
	out = append(out, HistoryEntry{SubjectID: s.SubjectID, ScoreType: ScoreTypeOverall, ScoreValue: s.Overall, ComputedAt: s.ComputedAt})
	return out
}

// ScoreJob is a unit of work on the recompute queue.
type ScoreJob struct {
	JobID       string
	SubjectID   string
	RequestedAt time.Time
}
