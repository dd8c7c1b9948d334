package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pulse/internal/adapters/mq/queue"
	"github.com/okian/pulse/internal/adapters/repository"
	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/model"
)

func newService(col *fakeCollector, store *fakeStore, opts ...service.Option) *service.Service {
	o := service.NewOrchestrator(col, store, service.WithRanking(repository.NewTreapStore(context.Background())))
	return service.New(o, opts...)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService(newFakeCollector(), &fakeStore{}, service.WithWorkerCount(2), service.WithQueueSize(10))
		ctx := context.Background()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it reports the configuration only", func() {
				So(stats["started"], ShouldEqual, false)
				So(stats["workerCount"], ShouldEqual, 2)
				So(stats["queueSize"], ShouldEqual, 10)
				So(stats, ShouldNotContainKey, "queueLength")
			})
		})

		Convey("When enqueueing before starting", func() {
			_, err := svc.EnqueueRecompute(ctx, "u-1")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.GetStats()["queueLength"], ShouldEqual, 0)

			svc.Stop()
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_EnqueueRecompute(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		col := newFakeCollector()
		store := &fakeStore{}
		svc := newService(col, store, service.WithWorkerCount(1), service.WithQueueSize(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the subject is blank", func() {
			_, err := svc.EnqueueRecompute(ctx, "")

			Convey("Then it fails with ErrInvalidSubject", func() {
				So(errors.Is(err, service.ErrInvalidSubject), ShouldBeTrue)
			})
		})

		Convey("When the same subject is enqueued twice on one day", func() {
			col.set("u-1", fullMarks())
			first, err1 := svc.EnqueueRecompute(ctx, "u-1")
			second, err2 := svc.EnqueueRecompute(ctx, "u-1")

			Convey("Then the second request is a duplicate and one run happens", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldEqual, service.Accepted)
				So(second, ShouldEqual, service.Duplicate)
				So(eventually(func() bool {
					_, scores, _, _ := store.counts()
					return scores == 1
				}), ShouldBeTrue)

				entries, err := svc.Leaderboard(ctx, 10)
				So(err, ShouldBeNil)
				So(eventually(func() bool {
					entries, _ = svc.Leaderboard(ctx, 10)
					return len(entries) == 1
				}), ShouldBeTrue)
				So(entries[0].SubjectID, ShouldEqual, "u-1")
				So(entries[0].Rank, ShouldEqual, 1)
			})
		})

		Convey("When a job fails", func() {
			_, err := svc.EnqueueRecompute(ctx, "ghost")
			So(err, ShouldBeNil)

			Convey("Then the subject can be scheduled again the same day", func() {
				So(eventually(func() bool {
					res, err := svc.EnqueueRecompute(ctx, "ghost")
					return err == nil && res == service.Accepted
				}), ShouldBeTrue)
			})
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a service whose only worker is blocked", t, func() {
		ctx := context.Background()
		col := newFakeCollector()
		col.gate = make(chan struct{})
		col.entered = make(chan string, 16)
		store := &fakeStore{}
		svc := newService(col, store, service.WithWorkerCount(1), service.WithQueueSize(1))
		So(svc.Start(ctx), ShouldBeNil)

		res, err := svc.EnqueueRecompute(ctx, "s-0")
		So(err, ShouldBeNil)
		So(res, ShouldEqual, service.Accepted)
		picked := false
		select {
		case <-col.entered:
			picked = true
		case <-time.After(2 * time.Second):
		}
		So(picked, ShouldBeTrue)

		Convey("When more jobs arrive than the queue holds", func() {
			var rejected string
			var rejectErr error
			for i := 1; i < 10 && rejected == ""; i++ {
				subject := fmt.Sprintf("s-%d", i)
				if _, err := svc.EnqueueRecompute(ctx, subject); err != nil {
					rejected, rejectErr = subject, err
				}
			}

			Convey("Then the overflow is rejected as full and can be retried later", func() {
				So(rejected, ShouldNotBeEmpty)
				So(errors.Is(rejectErr, queue.ErrFull), ShouldBeTrue)

				close(col.gate)
				So(eventually(func() bool {
					res, err := svc.EnqueueRecompute(ctx, rejected)
					return err == nil && res == service.Accepted
				}), ShouldBeTrue)
				svc.Stop()
			})
		})
	})
}

func TestService_Rank(t *testing.T) {
	Convey("Given a service with two scored subjects", t, func() {
		ctx := context.Background()
		col := newFakeCollector()
		col.set("top", fullMarks())
		col.set("low", model.MetricsSnapshot{})
		svc := newService(col, &fakeStore{})

		_, err := svc.ComputeAndStoreScore(ctx, "top")
		So(err, ShouldBeNil)
		_, err = svc.ComputeAndStoreScore(ctx, "low")
		So(err, ShouldBeNil)

		Convey("Then ranks follow the latest overall score", func() {
			entry, err := svc.Rank(ctx, "low")
			So(err, ShouldBeNil)
			So(entry.Rank, ShouldEqual, 2)

			_, err = svc.Rank(ctx, "nobody")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = svc.Leaderboard(ctx, 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)

			So(svc.GetStats()["peerPopulation"], ShouldEqual, 2)
		})
	})
}
