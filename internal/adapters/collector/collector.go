package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

const defaultBaseSystems = 3

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithBaseSystems sets the constant added to connected integrations.
func WithBaseSystems(n int) Option {
	return func(c *Collector) {
		if n >= 0 {
			c.baseSystems = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// Collector builds snapshots from a Source.
type Collector struct {
	source      Source
	baseSystems int
	now         func() time.Time
	logger      logger.Logger
}

// New creates a Collector over source.
func New(source Source, opts ...Option) *Collector {
	c := &Collector{
		source:      source,
		baseSystems: defaultBaseSystems,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("collector")
	}
	return c
}

// Collect resolves the subject and reads every category concurrently.
// Only the resolve step can fail; sources wrap ErrUnresolvable for unknown
// subjects. A failed category read counts as zero.
func (c *Collector) Collect(ctx context.Context, subjectID string) (model.MetricsSnapshot, error) {
	if err := c.source.Resolve(ctx, subjectID); err != nil {
		return model.MetricsSnapshot{}, fmt.Errorf("resolving %s: %w", subjectID, err)
	}

	now := c.now().UTC()
	var counts [len(Categories)]int
	var wg sync.WaitGroup
	for i, cat := range Categories {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counts[i] = c.count(ctx, subjectID, cat, now)
		}()
	}
	wg.Wait()

	byCategory := make(map[Category]int, len(Categories))
	for i, cat := range Categories {
		byCategory[cat] = counts[i]
	}
	get := func(cat Category) int { return byCategory[cat] }

	snap := model.MetricsSnapshot{
		SubjectID:             subjectID,
		CapturedAt:            now,
		TasksCompleted:        get(TasksCompleted),
		TasksOverdue:          get(TasksOverdue),
		HighPriorityCompleted: get(HighPriorityCompleted),
		GoalsActive:           get(GoalsActive),
		GoalsOnTrack:          get(GoalsOnTrack),
		ContactsAdded:         get(ContactsAdded),
		AppointmentsSet:       get(AppointmentsSet),
		ContentGenerated:      get(ContentGenerated),
		SystemsUsed:           get(IntegrationsConnected) + c.baseSystems,
		ConsistencyStreak:     get(ConsistencyStreak),
	}
	return snap.Normalize(), nil
}

// count reads one category and absorbs its failure, including a panic.
func (c *Collector) count(ctx context.Context, subjectID string, cat Category, day time.Time) (n int) {
	defer func() {
		if r := recover(); r != nil {
			c.fallback(ctx, subjectID, cat, fmt.Errorf("panic: %v", r))
			n = 0
		}
	}()

	n, err := c.source.Count(ctx, subjectID, cat, day)
	if err != nil {
		c.fallback(ctx, subjectID, cat, err)
		return 0
	}
	return n
}

func (c *Collector) fallback(ctx context.Context, subjectID string, cat Category, err error) {
	metrics.RecordCollectorFallback(string(cat))
	c.logger.Warn(ctx, "metric read failed, defaulting to zero",
		logger.String("subject", subjectID),
		logger.String("category", string(cat)),
		logger.Error(err),
	)
}
