package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/okian/pulse/internal/adapters/collector"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/adapters/repository/sqlite"
	app "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/internal/domain/benchmark"
	"github.com/okian/pulse/internal/domain/trend"
	"github.com/okian/pulse/pkg/logger"
)

// components is the wired scoring pipeline shared by serve and the one-shot commands.
type components struct {
	db           *sql.DB
	ranking      *repository.TreapStore
	orchestrator *app.Orchestrator

	// activity is nil unless the SQLite source feeds the collector.
	activity *sqlite.ActivityRepo
}

func (c *components) Close() error {
	return c.db.Close()
}

// wire opens the database, seeds the peer ranking from stored scores and
// builds the orchestrator from cfg.
func wire(ctx context.Context, cfg *config.Config, log logger.Logger) (*components, error) {
	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	scores := sqlite.NewScoreRepo(db)

	seed, err := scores.LatestOverallScores(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seeding peer ranking: %w", err)
	}
	ranking := repository.NewTreapStore(ctx,
		repository.WithSeed(seed),
		repository.WithLogger(log.Named("ranking")),
	)

	var (
		source   collector.Source
		activity *sqlite.ActivityRepo
	)
	if cfg.MetricsSource == "http" {
		source = newHTTPSource(cfg)
	} else {
		activity = sqlite.NewActivityRepo(db)
		source = activity
	}

	c := collector.New(source,
		collector.WithBaseSystems(cfg.BaseSystems),
		collector.WithLogger(log.Named("collector")),
	)

	orchestrator := app.NewOrchestrator(c, scores,
		app.WithTrendAnalyzer(trend.NewAnalyzer(scores,
			trend.WithLookbackDays(cfg.TrendLookbackDays),
			trend.WithStableBand(cfg.TrendStableBand),
			trend.WithConfidence(cfg.TrendSparseConfidence, cfg.TrendMaxConfidence, cfg.TrendFullConfidencePoints),
			trend.WithLogger(log.Named("trend")),
		)),
		app.WithBenchmarker(benchmark.New(
			benchmark.WithPeerRanker(ranking),
			benchmark.WithMinPeers(cfg.PeerMinPopulation),
			benchmark.WithLogger(log.Named("benchmark")),
		)),
		app.WithRanking(ranking),
		app.WithMaxHistoryDays(cfg.MaxHistoryDays),
		app.WithOrchestratorLogger(log.Named("orchestrator")),
	)

	return &components{db: db, ranking: ranking, orchestrator: orchestrator, activity: activity}, nil
}

func newHTTPSource(cfg *config.Config) *collector.HTTPSource {
	var opts []collector.HTTPOption
	if cfg.MetricsSourceToken != "" {
		opts = append(opts, collector.WithTokenProvider(collector.StaticToken(cfg.MetricsSourceToken)))
	}
	return collector.NewHTTPSource(cfg.MetricsSourceURL, opts...)
}
