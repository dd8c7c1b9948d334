package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pulse/internal/adapters/mq/queue"
	"github.com/okian/pulse/internal/adapters/mq/worker"
	"github.com/okian/pulse/internal/domain/dedupe"
	"github.com/okian/pulse/internal/domain/model"
	logging "github.com/okian/pulse/pkg/logger"
)

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 128)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

func (mq *mockQueue) add(subjectID string) queue.Job {
	j := model.ScoreJob{JobID: "job-" + subjectID, SubjectID: subjectID, RequestedAt: time.Now()}
	mq.jobs <- j
	return j
}

type mockScorer struct {
	mu     sync.Mutex
	calls  map[string]int
	errors map[string]error
	delay  time.Duration
}

func newMockScorer() *mockScorer {
	return &mockScorer{calls: make(map[string]int), errors: make(map[string]error)}
}

func (ms *mockScorer) ComputeAndStoreScore(ctx context.Context, subjectID string) (*model.EnhancedScore, error) {
	if ms.delay > 0 {
		time.Sleep(ms.delay)
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.calls[subjectID]++
	if err, ok := ms.errors[subjectID]; ok {
		return nil, err
	}
	return &model.EnhancedScore{SubjectID: subjectID}, nil
}

func (ms *mockScorer) setError(subjectID string, err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.errors[subjectID] = err
}

func (ms *mockScorer) count(subjectID string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.calls[subjectID]
}

func (ms *mockScorer) total() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	n := 0
	for _, c := range ms.calls {
		n += c
	}
	return n
}

// eventually polls cond for up to a second.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		scorer := newMockScorer()
		d := dedupe.NewInMemoryDeduper()

		w := worker.NewInMemoryWorker(q, scorer, worker.WithName("test-worker"), worker.WithDeduper(d))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job is queued", func() {
			q.add("u-1")

			convey.Convey("Then the subject is scored once", func() {
				convey.So(eventually(func() bool { return scorer.count("u-1") == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When scoring fails", func() {
			scorer.setError("u-2", errors.New("collect failed"))
			key := dedupe.PeriodKey("u-2", time.Now())
			convey.So(d.SeenAndRecord(ctx, key), convey.ShouldBeFalse)

			q.add("u-2")

			convey.Convey("Then the period key is forgotten so it can be retried", func() {
				convey.So(eventually(func() bool { return d.Size() == 0 }), convey.ShouldBeTrue)
				convey.So(d.SeenAndRecord(ctx, key), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When scoring succeeds", func() {
			key := dedupe.PeriodKey("u-3", time.Now())
			_ = d.SeenAndRecord(ctx, key)
			q.add("u-3")

			convey.Convey("Then the period key stays recorded", func() {
				convey.So(eventually(func() bool { return scorer.count("u-3") == 1 }), convey.ShouldBeTrue)
				convey.So(d.SeenAndRecord(ctx, key), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it stops gracefully and a second call is harmless", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue is closed", func() {
			_ = q.Close()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		scorer := newMockScorer()

		convey.Convey("When created with a non-positive count", func() {
			pool := worker.NewPool(0, q, scorer)

			convey.Convey("Then it falls back to one worker per CPU", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When processing many concurrent jobs", func() {
			pool := worker.NewPool(4, q, scorer)
			pool.Start(context.Background())

			const producers, perProducer = 5, 20
			var wg sync.WaitGroup
			for p := range producers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := range perProducer {
						q.add(fmt.Sprintf("u-%d-%d", p, j))
					}
				}()
			}
			wg.Wait()

			convey.Convey("Then every job is processed exactly once", func() {
				convey.So(eventually(func() bool { return scorer.total() == producers*perProducer }), convey.ShouldBeTrue)
				convey.So(scorer.count("u-0-0"), convey.ShouldEqual, 1)

				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When shut down with jobs still queued", func() {
			scorer.delay = 5 * time.Millisecond
			pool := worker.NewPool(2, q, scorer)
			for i := range 10 {
				q.add(fmt.Sprintf("drain-%d", i))
			}
			pool.Start(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := pool.Shutdown(ctx)

			convey.Convey("Then the queue is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(scorer.total(), convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When shut down without being started", func() {
			pool := worker.NewPool(2, q, scorer)

			convey.Convey("Then it returns immediately", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}
