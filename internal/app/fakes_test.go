package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/pulse/internal/adapters/collector"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

var errWrite = errors.New("disk full")

// fakeCollector returns fixed snapshots; unknown subjects are unresolvable.
type fakeCollector struct {
	mu        sync.Mutex
	snapshots map[string]model.MetricsSnapshot
	gate      chan struct{} // when set, Collect blocks until it is closed
	entered   chan string
}

func newFakeCollector() *fakeCollector {
	return &fakeCollector{snapshots: make(map[string]model.MetricsSnapshot)}
}

func (c *fakeCollector) set(subjectID string, snap model.MetricsSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap.SubjectID = subjectID
	c.snapshots[subjectID] = snap
}

func (c *fakeCollector) Collect(ctx context.Context, subjectID string) (model.MetricsSnapshot, error) {
	if c.entered != nil {
		c.entered <- subjectID
	}
	if c.gate != nil {
		<-c.gate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snapshots[subjectID]
	if !ok {
		return model.MetricsSnapshot{}, fmt.Errorf("%w: %s", collector.ErrUnresolvable, subjectID)
	}
	return snap, nil
}

// fakeStore is an in-memory repository.ScoreStore with switchable write failures.
type fakeStore struct {
	mu            sync.Mutex
	failWrites    bool
	snapshots     []model.MetricsSnapshot
	scores        []*model.EnhancedScore
	history       []model.HistoryEntry
	interventions []model.Intervention
	historySince  time.Time
}

var _ repository.ScoreStore = (*fakeStore)(nil)

func (s *fakeStore) SaveSnapshot(_ context.Context, snap model.MetricsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errWrite
	}
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *fakeStore) SaveScore(_ context.Context, score *model.EnhancedScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errWrite
	}
	s.scores = append(s.scores, score)
	return nil
}

func (s *fakeStore) AppendHistory(_ context.Context, e model.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errWrite
	}
	s.history = append(s.history, e)
	return nil
}

func (s *fakeStore) SaveIntervention(_ context.Context, in model.Intervention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errWrite
	}
	s.interventions = append(s.interventions, in)
	return nil
}

func (s *fakeStore) LatestScore(_ context.Context, subjectID string) (*model.EnhancedScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.scores) - 1; i >= 0; i-- {
		if s.scores[i].SubjectID == subjectID {
			return s.scores[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) History(_ context.Context, subjectID string, since time.Time) ([]model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historySince = since
	var out []model.HistoryEntry
	for _, e := range s.history {
		if e.SubjectID == subjectID && !e.ComputedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) ActiveInterventions(_ context.Context, subjectID string) ([]model.Intervention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Intervention
	for _, in := range s.interventions {
		if in.SubjectID == subjectID && !in.Resolved {
			out = append(out, in)
		}
	}
	return out, nil
}

func (s *fakeStore) ResolveIntervention(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.interventions {
		if s.interventions[i].ID == id {
			s.interventions[i].Resolved = true
			s.interventions[i].ResolvedAt = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *fakeStore) LatestOverallScores(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, sc := range s.scores {
		out[sc.SubjectID] = sc.Overall
	}
	return out, nil
}

func (s *fakeStore) counts() (snapshots, scores, history, interventions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots), len(s.scores), len(s.history), len(s.interventions)
}

func fullMarks() model.MetricsSnapshot {
	return model.MetricsSnapshot{
		TasksCompleted:        10,
		HighPriorityCompleted: 3,
		GoalsActive:           3,
		GoalsOnTrack:          3,
		ContactsAdded:         10,
		AppointmentsSet:       3,
		ContentGenerated:      5,
		SystemsUsed:           4,
		ConsistencyStreak:     21,
	}
}

// eventually polls cond for up to two seconds.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
