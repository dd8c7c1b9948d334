// Package trend classifies the direction and velocity of a subject's overall
// score from its recent history and projects it forward.
package trend

import (
	"context"
	"math"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

// Default analysis parameters.
const (
	defaultLookbackDays     = 14
	defaultStableBand       = 0.5
	defaultSparseConfidence = 0.2
	defaultMaxConfidence    = 0.95
	defaultFullPoints       = 7

	// ForecastDays is the horizon of Forecast.
	ForecastDays = 7
)

// HistoryReader reads history entries for a subject computed at or after since.
type HistoryReader interface {
	History(ctx context.Context, subjectID string, since time.Time) ([]model.HistoryEntry, error)
}

// Analyzer fits a least-squares line through recent overall scores.
type Analyzer struct {
	history HistoryReader

	lookbackDays     int
	stableBand       float64
	sparseConfidence float64
	maxConfidence    float64
	fullPoints       int

	logger logger.Logger
}

// NewAnalyzer creates an analyzer over the given history.
func NewAnalyzer(history HistoryReader, opts ...Option) *Analyzer {
	a := &Analyzer{
		history:          history,
		lookbackDays:     defaultLookbackDays,
		stableBand:       defaultStableBand,
		sparseConfidence: defaultSparseConfidence,
		maxConfidence:    defaultMaxConfidence,
		fullPoints:       defaultFullPoints,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("trend")
	}
	return a
}

// Sparse is the trend reported when there is not enough history.
func (a *Analyzer) Sparse() model.Trend {
	return model.Trend{Direction: model.TrendStable, Velocity: 0, Confidence: a.sparseConfidence}
}

// Analyze classifies the trend of the subject's overall score, treating
// current as the newest point at now. It never fails: a history read error
// degrades to the sparse result.
func (a *Analyzer) Analyze(ctx context.Context, subjectID string, current int, now time.Time) model.Trend {
	if a.history == nil {
		return a.Sparse()
	}

	since := now.AddDate(0, 0, -a.lookbackDays)
	entries, err := a.history.History(ctx, subjectID, since)
	if err != nil {
		a.logger.Warn(ctx, "history read failed, using sparse trend",
			logger.String("subject", subjectID),
			logger.Error(err),
		)
		return a.Sparse()
	}

	xs := make([]float64, 0, len(entries)+1)
	ys := make([]float64, 0, len(entries)+1)
	for _, e := range entries {
		if e.ScoreType != model.ScoreTypeOverall || e.ComputedAt.After(now) {
			continue
		}
		xs = append(xs, e.ComputedAt.Sub(now).Hours()/24)
		ys = append(ys, float64(e.ScoreValue))
	}
	if len(xs) < 2 {
		return a.Sparse()
	}
	xs = append(xs, 0)
	ys = append(ys, float64(current))

	slope, r2, ok := regress(xs, ys)
	if !ok {
		return a.Sparse()
	}

	return model.Trend{
		Direction:  a.direction(slope),
		Velocity:   slope,
		Confidence: a.confidence(len(xs), r2),
	}
}

func (a *Analyzer) direction(velocity float64) model.TrendDirection {
	switch {
	case velocity >= a.stableBand:
		return model.TrendImproving
	case velocity <= -a.stableBand:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func (a *Analyzer) confidence(points int, r2 float64) float64 {
	coverage := math.Min(1, float64(points)/float64(a.fullPoints))
	c := a.sparseConfidence + (a.maxConfidence-a.sparseConfidence)*coverage*(0.5+0.5*r2)
	return clamp(c, 0, 1)
}

// regress returns the least-squares slope and the coefficient of
// determination. ok is false when all x values coincide.
func regress(xs, ys []float64) (slope, r2 float64, ok bool) {
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var sxx, sxy, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return 0, 0, false
	}
	slope = sxy / sxx
	if syy == 0 {
		return slope, 1, true
	}
	return slope, clamp(sxy*sxy/(sxx*syy), 0, 1), true
}

// Forecast projects the overall score ForecastDays ahead, clamped to [0, 100].
func Forecast(overall int, velocity float64) float64 {
	return clamp(float64(overall)+velocity*ForecastDays, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
