// Package scoring computes the five pillar scores and the overall score
// from a metrics snapshot. Every function here is pure and never fails.
package scoring

import (
	"math"

	"github.com/okian/pulse/internal/domain/model"
)

// step is one threshold of a tiered contribution: at least min earns points.
type step struct {
	min    int
	points int
}

// tier returns the points of the first step whose min v reaches.
// Steps must be ordered by descending min.
func tier(v int, steps ...step) int {
	for _, s := range steps {
		if v >= s.min {
			return s.points
		}
	}
	return 0
}

func capPillar(score int) int {
	return max(0, min(model.MaxPillarScore, score))
}

// perUnit returns n*points, saturating at limit. n must not be negative.
func perUnit(n, points, limit int) int {
	if n >= limit/points {
		return limit
	}
	return n * points
}

// share returns floor(scale * part / whole) for 0 <= part <= whole, or 0
// when whole is 0. Float math keeps huge counts from overflowing; scaling
// by a small integer and one correctly rounded division keep exact
// integer results exact.
func share(scale, part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Floor(float64(part) * float64(scale) / float64(whole)))
}

// sum adds non-negative counts, saturating at math.MaxInt.
func sum(vs ...int) int {
	total := 0
	for _, v := range vs {
		if v > math.MaxInt-total {
			return math.MaxInt
		}
		total += v
	}
	return total
}

// ScorePillars maps one snapshot to five pillar scores in [0, 20].
// The snapshot is normalized before any rule is evaluated.
func ScorePillars(in model.MetricsSnapshot) model.PillarScores {
	m := in.Normalize()
	return model.PillarScores{
		Planning:       planning(m),
		Urgency:        urgency(m),
		LeadEngagement: leadEngagement(m),
		Systems:        systems(m),
		Execution:      execution(m),
	}
}

func planning(m model.MetricsSnapshot) int {
	score := 0
	if m.GoalsActive > 0 {
		score += 4
	}
	if m.GoalsActive >= 3 {
		score += 2
	}
	if m.GoalsOnTrack > 0 {
		score += 3
	}
	// onTrack/active >= 0.7; ratio is 0 when there are no goals.
	if share(10, m.GoalsOnTrack, m.GoalsActive) >= 7 {
		score += 3
	}
	if m.ContentGenerated > 0 {
		score += 2
	}
	if m.SystemsUsed >= 3 {
		score += 3
	}
	if m.ConsistencyStreak >= 7 {
		score += 3
	}
	return capPillar(score)
}

func urgency(m model.MetricsSnapshot) int {
	score := 0
	score += share(8, m.TasksCompleted, sum(m.TasksCompleted, m.TasksOverdue))
	score += perUnit(m.HighPriorityCompleted, 2, 6)
	switch {
	case m.TasksOverdue == 0:
		score += 6
	case m.TasksOverdue <= 2:
		score += 3
	}
	return capPillar(score)
}

func leadEngagement(m model.MetricsSnapshot) int {
	score := tier(m.ContactsAdded, step{10, 7}, step{5, 5}, step{1, 3})
	score += tier(m.AppointmentsSet, step{3, 7}, step{1, 5}, step{0, 2})
	score += tier(m.ConsistencyStreak, step{14, 6}, step{7, 4}, step{3, 2})
	return capPillar(score)
}

// systems rewards SystemsUsed twice, once as usage and once as integration depth.
func systems(m model.MetricsSnapshot) int {
	score := perUnit(m.SystemsUsed, 2, 8)
	score += tier(m.ContentGenerated, step{5, 6}, step{2, 4}, step{1, 2})
	score += tier(m.SystemsUsed, step{4, 6}, step{2, 4}, step{1, 2})
	return capPillar(score)
}

func execution(m model.MetricsSnapshot) int {
	volume := sum(m.TasksCompleted, m.ContactsAdded, m.AppointmentsSet)
	score := tier(volume, step{15, 7}, step{8, 5}, step{3, 3})
	score += share(7, m.GoalsOnTrack, m.GoalsActive)
	score += tier(m.ConsistencyStreak, step{21, 6}, step{14, 4}, step{7, 2})
	return capPillar(score)
}
