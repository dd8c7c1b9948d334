// Package intervention turns pillar scores and a trend into coaching
// interventions.
package intervention

import (
	"fmt"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/scoring"
)

// Default rule thresholds.
const (
	defaultWeakPillarBelow   = 10
	defaultDecliningVelocity = -1.0
)

// TrendRecommendation is the fixed text of the declining-trend intervention.
const TrendRecommendation = "Your overall score is trending down. Let's get back on track."

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeakPillarThreshold sets the score below which the weakest pillar triggers.
func WithWeakPillarThreshold(below int) Option {
	return func(e *Engine) {
		if below > 0 {
			e.weakBelow = below
		}
	}
}

// Engine applies the intervention rules. It holds no state between calls.
type Engine struct {
	weakBelow         int
	decliningVelocity float64
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weakBelow:         defaultWeakPillarBelow,
		decliningVelocity: defaultDecliningVelocity,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate returns the interventions for one run: the weak pillar one first,
// then the trend one. Either or both may be absent.
func (e *Engine) Generate(scores model.PillarScores, trend model.Trend) []model.Intervention {
	var out []model.Intervention

	if weakest := scoring.Weakest(scores); scores.Get(weakest) < e.weakBelow {
		out = append(out, model.Intervention{
			TriggerType:    model.TriggerScoreDrop,
			PillarAffected: string(weakest),
			Severity:       model.SeverityHigh,
			Recommendation: fmt.Sprintf("Your %s score needs immediate attention", weakest.Label()),
			ActionSteps:    ActionSteps(weakest),
		})
	}

	if trend.Direction == model.TrendDeclining && trend.Velocity < e.decliningVelocity {
		out = append(out, model.Intervention{
			TriggerType:    model.TriggerStagnation,
			PillarAffected: model.ScoreTypeOverall,
			Severity:       model.SeverityMedium,
			Recommendation: TrendRecommendation,
			ActionSteps:    append([]string(nil), trendSteps...),
		})
	}

	return out
}

// Recommendations lists the recommendation of each intervention in order.
func Recommendations(in []model.Intervention) []string {
	out := make([]string, 0, len(in))
	for _, i := range in {
		out = append(out, i.Recommendation)
	}
	return out
}
