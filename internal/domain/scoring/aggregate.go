package scoring

import (
	"github.com/okian/pulse/internal/domain/model"
)

// Summary is the aggregate view of a set of pillar scores.
type Summary struct {
	Overall             int
	Strongest           model.Pillar
	Weakest             model.Pillar
	ImprovementPriority model.Pillar
}

// Result is the outcome of Evaluate.
type Result struct {
	Snapshot model.MetricsSnapshot
	Pillars  model.PillarScores
	Summary
}

// Aggregate sums the pillars and derives the strongest and weakest pillar.
// The weakest pillar is always the improvement priority.
func Aggregate(s model.PillarScores) Summary {
	weakest := Weakest(s)
	return Summary{
		Overall:             s.Overall(),
		Strongest:           Strongest(s),
		Weakest:             weakest,
		ImprovementPriority: weakest,
	}
}

// Evaluate scores a snapshot and aggregates the result.
func Evaluate(m model.MetricsSnapshot) Result {
	pillars := ScorePillars(m)
	return Result{
		Snapshot: m.Normalize(),
		Pillars:  pillars,
		Summary:  Aggregate(pillars),
	}
}

// Strongest returns the highest scoring pillar; ties go to the first in PillarOrder.
func Strongest(s model.PillarScores) model.Pillar {
	best := model.PillarOrder[0]
	for _, p := range model.PillarOrder[1:] {
		if s.Get(p) > s.Get(best) {
			best = p
		}
	}
	return best
}

// Weakest returns the lowest scoring pillar; ties go to the first in PillarOrder.
func Weakest(s model.PillarScores) model.Pillar {
	worst := model.PillarOrder[0]
	for _, p := range model.PillarOrder[1:] {
		if s.Get(p) < s.Get(worst) {
			worst = p
		}
	}
	return worst
}
