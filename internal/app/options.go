package service

import (
	"time"

	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/pkg/logger"
)

// OrchestratorOption applies a configuration option to the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTrendAnalyzer replaces the default analyzer, which reads the store's history.
func WithTrendAnalyzer(a TrendAnalyzer) OrchestratorOption {
	return func(o *Orchestrator) {
		if a != nil {
			o.trend = a
		}
	}
}

// WithBenchmarker replaces the default static-table benchmarker.
func WithBenchmarker(b Benchmarker) OrchestratorOption {
	return func(o *Orchestrator) {
		if b != nil {
			o.benchmark = b
		}
	}
}

// WithInterventionEngine replaces the default intervention engine.
func WithInterventionEngine(e InterventionEngine) OrchestratorOption {
	return func(o *Orchestrator) {
		if e != nil {
			o.interventions = e
		}
	}
}

// WithRanking sets the peer population updated after every run.
func WithRanking(r repository.Ranking) OrchestratorOption {
	return func(o *Orchestrator) {
		o.ranking = r
	}
}

// WithMaxHistoryDays caps the history window callers may ask for.
func WithMaxHistoryDays(days int) OrchestratorOption {
	return func(o *Orchestrator) {
		if days > 0 {
			o.maxHistoryDays = days
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithOrchestratorLogger sets a custom logger for the orchestrator.
func WithOrchestratorLogger(l logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many subject/day keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
