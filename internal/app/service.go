// Package service provides the scoring orchestrator and the long-running
// service around it: the recompute queue, its workers and the read paths
// used by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pulse/internal/adapters/mq/queue"
	"github.com/okian/pulse/internal/adapters/mq/worker"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/dedupe"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
)

const (
	defaultQueueSize  = 10_000
	defaultDedupeSize = 100_000
	stopTimeout       = 30 * time.Second
)

// EnqueueResult is the outcome of EnqueueRecompute.
type EnqueueResult string

const (
	// Accepted means a job was queued.
	Accepted EnqueueResult = "accepted"
	// Duplicate means the subject was already scheduled for today.
	Duplicate EnqueueResult = "duplicate"
)

// Service embeds the Orchestrator and adds asynchronous recomputes.
type Service struct {
	*Orchestrator

	mu sync.RWMutex

	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	workerCount int
	queueSize   int
	dedupeSize  int

	started bool
	logger  logger.Logger
}

// New constructs a Service around o.
func New(o *Orchestrator, opts ...Option) *Service {
	s := &Service{
		Orchestrator: o,
		workerCount:  runtime.NumCPU(),
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.Orchestrator,
		worker.WithDeduper(s.deduper),
		worker.WithLogger(s.logger.Named("worker")),
	)
	// Workers outlive the request that started the service.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue and waits for queued jobs to drain.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping scoring service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// EnqueueRecompute schedules an asynchronous recompute for subjectID, at
// most once per subject per UTC day. A rejected job is forgotten so it can
// be retried; the returned error wraps queue.ErrFull or queue.ErrClosed.
func (s *Service) EnqueueRecompute(ctx context.Context, subjectID string) (EnqueueResult, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return "", ErrInvalidSubject
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}

	now := s.now().UTC()
	key := dedupe.PeriodKey(subjectID, now)
	if s.deduper.SeenAndRecord(ctx, key) {
		s.logger.Debug(ctx, "recompute already scheduled today", logger.String("subject", subjectID))
		return Duplicate, nil
	}

	job := model.ScoreJob{JobID: uuid.NewString(), SubjectID: subjectID, RequestedAt: now}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, key)
		return "", fmt.Errorf("enqueue %s: %w", subjectID, err)
	}
	return Accepted, nil
}

// Leaderboard returns the top n subjects by latest overall score.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]types.Entry, error) {
	if s.ranking == nil {
		if n < 1 {
			return nil, repository.ErrInvalidLimit
		}
		return []types.Entry{}, nil
	}
	return s.ranking.TopN(ctx, n)
}

// Rank returns the competition rank of a subject's latest overall score.
func (s *Service) Rank(ctx context.Context, subjectID string) (types.Entry, error) {
	if s.ranking == nil {
		return types.Entry{}, repository.ErrNotFound
	}
	return s.ranking.Rank(ctx, subjectID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if s.ranking != nil {
		stats["peerPopulation"] = s.ranking.Count(ctx)
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["dedupeTracked"] = s.deduper.Size()
	}
	return stats
}
