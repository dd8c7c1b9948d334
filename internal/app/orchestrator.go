package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pulse/internal/adapters/collector"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/benchmark"
	"github.com/okian/pulse/internal/domain/intervention"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/scoring"
	"github.com/okian/pulse/internal/domain/trend"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

const (
	defaultHistoryDays    = 30
	defaultMaxHistoryDays = 365
)

// Run outcomes reported to metrics.
const (
	outcomeOK           = "ok"
	outcomeInvalid      = "invalid"
	outcomeUnresolvable = "unresolvable"
	outcomeFailed       = "failed"
)

// Persistence kinds reported to metrics.
const (
	kindSnapshot     = "snapshot"
	kindScore        = "score"
	kindHistory      = "history"
	kindIntervention = "intervention"
	kindRanking      = "ranking"
)

// Collector builds a metrics snapshot for a subject.
type Collector interface {
	Collect(ctx context.Context, subjectID string) (model.MetricsSnapshot, error)
}

// TrendAnalyzer classifies recent movement of the overall score.
type TrendAnalyzer interface {
	Analyze(ctx context.Context, subjectID string, current int, now time.Time) model.Trend
	Sparse() model.Trend
}

// Benchmarker places an overall score among peers.
type Benchmarker interface {
	Benchmark(ctx context.Context, subjectID string, overall int) benchmark.Result
}

// InterventionEngine derives interventions from pillar scores and the trend.
type InterventionEngine interface {
	Generate(scores model.PillarScores, t model.Trend) []model.Intervention
}

// Orchestrator runs the scoring pipeline for one subject and persists the result.
type Orchestrator struct {
	collector     Collector
	store         repository.ScoreStore
	trend         TrendAnalyzer
	benchmark     Benchmarker
	interventions InterventionEngine
	ranking       repository.Ranking

	maxHistoryDays int
	now            func() time.Time
	logger         logger.Logger
}

// NewOrchestrator wires the pipeline. Analyzer, benchmarker and engine default
// to the domain implementations; the default analyzer reads history from store.
func NewOrchestrator(c Collector, store repository.ScoreStore, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		collector:      c,
		store:          store,
		maxHistoryDays: defaultMaxHistoryDays,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("orchestrator")
	}
	if o.trend == nil {
		o.trend = trend.NewAnalyzer(store, trend.WithLogger(o.logger.Named("trend")))
	}
	if o.benchmark == nil {
		o.benchmark = benchmark.New(benchmark.WithLogger(o.logger.Named("benchmark")))
	}
	if o.interventions == nil {
		o.interventions = intervention.NewEngine()
	}
	return o
}

// ComputeAndStoreScore collects, scores and persists one run for subjectID.
// Only an invalid subject or a failed collection is fatal; persistence
// failures are logged and counted, and the computed score is still returned.
func (o *Orchestrator) ComputeAndStoreScore(ctx context.Context, subjectID string) (*model.EnhancedScore, error) {
	start := time.Now()
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		metrics.RecordScoringRun(outcomeInvalid, 0)
		return nil, ErrInvalidSubject
	}

	snap, err := o.collector.Collect(ctx, subjectID)
	if err != nil {
		outcome := outcomeFailed
		if errors.Is(err, collector.ErrUnresolvable) {
			outcome = outcomeUnresolvable
		}
		metrics.RecordScoringRun(outcome, float64(time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("collecting metrics for %s: %w", subjectID, err)
	}

	if err := o.store.SaveSnapshot(ctx, snap); err != nil {
		o.persistFailed(ctx, kindSnapshot, subjectID, err)
	}

	now := o.now().UTC()
	result := scoring.Evaluate(snap)
	t := o.trend.Analyze(ctx, subjectID, result.Overall, now)
	score := o.build(ctx, subjectID, result, t, now)
	score.ID = uuid.NewString()
	for i := range score.Interventions {
		score.Interventions[i].ID = uuid.NewString()
		score.Interventions[i].ScoreID = score.ID
	}

	if err := o.store.SaveScore(ctx, score); err != nil {
		o.persistFailed(ctx, kindScore, subjectID, err)
	}

	var wg sync.WaitGroup
	for _, e := range model.HistoryEntries(score) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.store.AppendHistory(ctx, e); err != nil {
				o.persistFailed(ctx, kindHistory, subjectID, err, logger.String("score_type", e.ScoreType))
			}
		}()
	}
	for _, in := range score.Interventions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.store.SaveIntervention(ctx, in); err != nil {
				o.persistFailed(ctx, kindIntervention, subjectID, err, logger.String("trigger", string(in.TriggerType)))
			}
		}()
	}
	wg.Wait()

	if o.ranking != nil {
		if err := o.ranking.Upsert(ctx, subjectID, score.Overall); err != nil {
			o.persistFailed(ctx, kindRanking, subjectID, err)
		}
	}

	o.observe(score)
	metrics.RecordScoringRun(outcomeOK, float64(time.Since(start).Milliseconds()))
	o.logger.Debug(ctx, "score computed",
		logger.String("subject", subjectID),
		logger.Int("overall", score.Overall),
		logger.String("tier", string(score.PerformanceTier)),
		logger.String("trend", string(score.TrendDirection)),
		logger.Int("interventions", len(score.Interventions)),
	)
	return score, nil
}

// Preview scores a snapshot without reading history or persisting anything.
// The trend is the sparse, stable one.
func (o *Orchestrator) Preview(ctx context.Context, snap model.MetricsSnapshot) *model.EnhancedScore {
	now := o.now().UTC()
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = now
	}
	return o.build(ctx, snap.SubjectID, scoring.Evaluate(snap), o.trend.Sparse(), now)
}

// build assembles the score record from the pipeline stages after trend analysis.
func (o *Orchestrator) build(ctx context.Context, subjectID string, r scoring.Result, t model.Trend, now time.Time) *model.EnhancedScore {
	bench := o.benchmark.Benchmark(ctx, subjectID, r.Overall)
	interventions := o.interventions.Generate(r.Pillars, t)
	if interventions == nil {
		interventions = []model.Intervention{}
	}
	for i := range interventions {
		interventions[i].SubjectID = subjectID
		interventions[i].CreatedAt = now
	}

	return &model.EnhancedScore{
		SubjectID:           subjectID,
		ComputedAt:          now,
		Pillars:             r.Pillars,
		Overall:             r.Overall,
		TrendDirection:      t.Direction,
		TrendVelocity:       t.Velocity,
		PredictiveScore:     trend.Forecast(r.Overall, t.Velocity),
		ConfidenceInterval:  t.Confidence,
		StrongestPillar:     r.Strongest,
		WeakestPillar:       r.Weakest,
		ImprovementPriority: r.ImprovementPriority,
		PeerPercentile:      bench.Percentile,
		PerformanceTier:     bench.Tier,
		Interventions:       interventions,
		Recommendations:     intervention.Recommendations(interventions),
	}
}

func (o *Orchestrator) observe(s *model.EnhancedScore) {
	for _, p := range model.PillarOrder {
		metrics.ObservePillarScore(string(p), s.Pillars.Get(p))
	}
	metrics.ObserveOverallScore(s.Overall)
	metrics.RecordTier(string(s.PerformanceTier))
	for _, in := range s.Interventions {
		metrics.RecordIntervention(string(in.TriggerType), string(in.Severity))
	}
}

func (o *Orchestrator) persistFailed(ctx context.Context, kind, subjectID string, err error, fields ...logger.Field) {
	metrics.RecordPersistenceFailure(kind)
	fields = append([]logger.Field{
		logger.String("kind", kind),
		logger.String("subject", subjectID),
		logger.Error(err),
	}, fields...)
	o.logger.Error(ctx, "persistence failed", fields...)
}

// GetLatestScore returns the newest stored score, or nil when there is none.
func (o *Orchestrator) GetLatestScore(ctx context.Context, subjectID string) (*model.EnhancedScore, error) {
	s, err := o.store.LatestScore(ctx, subjectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest score for %s: %w", subjectID, err)
	}
	return s, nil
}

// GetScoreHistory returns the history rows of the last days days, oldest
// first. Non-positive days use the default window; larger ones are capped.
func (o *Orchestrator) GetScoreHistory(ctx context.Context, subjectID string, days int) ([]model.HistoryEntry, error) {
	if days <= 0 {
		days = defaultHistoryDays
	}
	days = min(days, o.maxHistoryDays)

	since := o.now().UTC().AddDate(0, 0, -days)
	entries, err := o.store.History(ctx, subjectID, since)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", subjectID, err)
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return entries, nil
}

// GetActiveInterventions returns the unresolved interventions, newest first.
func (o *Orchestrator) GetActiveInterventions(ctx context.Context, subjectID string) ([]model.Intervention, error) {
	in, err := o.store.ActiveInterventions(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("interventions for %s: %w", subjectID, err)
	}
	if in == nil {
		in = []model.Intervention{}
	}
	return in, nil
}

// ResolveIntervention marks an intervention resolved. Unknown ids return
// repository.ErrNotFound.
func (o *Orchestrator) ResolveIntervention(ctx context.Context, id string) error {
	if err := o.store.ResolveIntervention(ctx, id, o.now().UTC()); err != nil {
		return fmt.Errorf("resolving intervention: %w", err)
	}
	return nil
}
