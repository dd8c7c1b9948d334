package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pulse/internal/adapters/collector"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/adapters/repository/sqlite"
	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/testutil"
)

// seedFullMarks records a day of activity that earns every pillar point:
// ten tasks (three high priority), three on-track goals, ten contacts and
// three appointments this week, five content items, one integration and a
// 21-day streak.
func seedFullMarks(ctx context.Context, repo *sqlite.ActivityRepo, subjectID string, today time.Time) {
	So(repo.AddSubject(ctx, subjectID, "Full Marks", today.AddDate(0, -1, 0)), ShouldBeNil)
	for i := range 10 {
		priority := "medium"
		if i < 3 {
			priority = "high"
		}
		done := today.Add(-time.Duration(i) * time.Minute)
		_, err := repo.AddTask(ctx, sqlite.Task{SubjectID: subjectID, Priority: priority, CompletedAt: &done, CreatedAt: today.AddDate(0, 0, -1)})
		So(err, ShouldBeNil)
	}
	for range 3 {
		_, err := repo.AddGoal(ctx, sqlite.Goal{SubjectID: subjectID, Title: "grow", CreatedAt: today.AddDate(0, 0, -20)})
		So(err, ShouldBeNil)
	}
	for d := range 21 {
		So(repo.AddContact(ctx, subjectID, "daily", today.AddDate(0, 0, -d)), ShouldBeNil)
	}
	for range 3 {
		So(repo.AddContact(ctx, subjectID, "extra", today), ShouldBeNil)
		So(repo.AddAppointment(ctx, subjectID, today.AddDate(0, 0, 3), today), ShouldBeNil)
	}
	for range 5 {
		So(repo.AddContent(ctx, subjectID, "post", today), ShouldBeNil)
	}
	So(repo.SetIntegration(ctx, subjectID, "crm", true, today.AddDate(0, 0, -10)), ShouldBeNil)
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given the service wired to an in-memory SQLite database", t, func() {
		ctx := context.Background()
		today := time.Date(2026, 7, 10, 15, 0, 0, 0, time.UTC)
		at := func() time.Time { return today }

		db := testutil.NewTestDB(t)
		activity := sqlite.NewActivityRepo(db)
		scores := sqlite.NewScoreRepo(db)
		o := service.NewOrchestrator(
			collector.New(activity, collector.WithClock(at)),
			scores,
			service.WithClock(at),
			service.WithRanking(repository.NewTreapStore(ctx)),
		)

		Convey("When a subject with a perfect day is scored", func() {
			seedFullMarks(ctx, activity, "ace", today)
			score, err := o.ComputeAndStoreScore(ctx, "ace")

			Convey("Then it earns 100, elite, 90th percentile", func() {
				So(err, ShouldBeNil)
				So(score.Pillars, ShouldResemble, model.PillarScores{
					Planning: 20, Urgency: 20, LeadEngagement: 20, Systems: 20, Execution: 20,
				})
				So(score.Overall, ShouldEqual, 100)
				So(score.PerformanceTier, ShouldEqual, model.TierElite)
				So(score.PeerPercentile, ShouldEqual, 90)
				So(score.Interventions, ShouldBeEmpty)
			})

			Convey("And the stored record round-trips", func() {
				latest, err := o.GetLatestScore(ctx, "ace")
				So(err, ShouldBeNil)
				So(latest.ID, ShouldEqual, score.ID)
				So(latest.Overall, ShouldEqual, 100)

				history, err := o.GetScoreHistory(ctx, "ace", 7)
				So(err, ShouldBeNil)
				So(history, ShouldHaveLength, 6)
				So(history[5].ScoreType, ShouldEqual, model.ScoreTypeOverall)
			})
		})

		Convey("When a registered but idle subject is scored", func() {
			So(activity.AddSubject(ctx, "idle", "Idle", today.AddDate(0, -1, 0)), ShouldBeNil)
			score, err := o.ComputeAndStoreScore(ctx, "idle")
			So(err, ShouldBeNil)

			Convey("Then an intervention is stored for the weakest pillar", func() {
				So(score.PerformanceTier, ShouldEqual, model.TierLow)
				So(score.Interventions, ShouldHaveLength, 1)

				active, err := o.GetActiveInterventions(ctx, "idle")
				So(err, ShouldBeNil)
				So(active, ShouldHaveLength, 1)
				So(active[0].ID, ShouldEqual, score.Interventions[0].ID)
				So(active[0].ScoreID, ShouldEqual, score.ID)
			})

			Convey("And resolving it removes it from the active list", func() {
				So(o.ResolveIntervention(ctx, score.Interventions[0].ID), ShouldBeNil)

				active, err := o.GetActiveInterventions(ctx, "idle")
				So(err, ShouldBeNil)
				So(active, ShouldBeEmpty)
			})
		})

		Convey("When an unknown subject is scored", func() {
			score, err := o.ComputeAndStoreScore(ctx, "stranger")

			Convey("Then the run fails as unresolvable", func() {
				So(score, ShouldBeNil)
				So(errors.Is(err, collector.ErrUnresolvable), ShouldBeTrue)
			})
		})

		Convey("When the service recomputes asynchronously", func() {
			seedFullMarks(ctx, activity, "ace", today)
			svc := service.New(o, service.WithWorkerCount(2))
			So(svc.Start(ctx), ShouldBeNil)

			res, err := svc.EnqueueRecompute(ctx, "ace")
			So(err, ShouldBeNil)
			So(res, ShouldEqual, service.Accepted)
			svc.Stop()

			Convey("Then the queued job has been scored before Stop returns", func() {
				latest, err := o.GetLatestScore(ctx, "ace")
				So(err, ShouldBeNil)
				So(latest, ShouldNotBeNil)
				So(latest.Overall, ShouldEqual, 100)
			})
		})
	})
}
