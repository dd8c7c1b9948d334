package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/okian/pulse/internal/adapters/collector"
	"github.com/okian/pulse/internal/adapters/http/api"
	"github.com/okian/pulse/internal/adapters/repository/sqlite"
	"github.com/okian/pulse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// mockActivity implements api.ActivityStore.
type mockActivity struct {
	known      map[string]bool
	resolveErr error
	writeErr   error

	subjectAt   time.Time
	task        sqlite.Task
	goal        sqlite.Goal
	contact     string
	contactAt   time.Time
	scheduled   time.Time
	kind        string
	provider    string
	connected   bool
	writerCalls int
}

func (m *mockActivity) Resolve(_ context.Context, subject string) error {
	if m.resolveErr != nil {
		return m.resolveErr
	}
	if !m.known[subject] {
		return fmt.Errorf("no subject %q: %w", subject, collector.ErrUnresolvable)
	}
	return nil
}

func (m *mockActivity) AddSubject(_ context.Context, id, _ string, at time.Time) error {
	m.writerCalls++
	m.subjectAt = at
	if m.writeErr != nil {
		return m.writeErr
	}
	m.known[id] = true
	return nil
}

func (m *mockActivity) AddTask(_ context.Context, t sqlite.Task) (string, error) {
	m.writerCalls++
	m.task = t
	return "task-1", m.writeErr
}

func (m *mockActivity) AddGoal(_ context.Context, g sqlite.Goal) (string, error) {
	m.writerCalls++
	m.goal = g
	return "goal-1", m.writeErr
}

func (m *mockActivity) AddContact(_ context.Context, _, name string, at time.Time) error {
	m.writerCalls++
	m.contact, m.contactAt = name, at
	return m.writeErr
}

func (m *mockActivity) AddAppointment(_ context.Context, _ string, scheduledFor, _ time.Time) error {
	m.writerCalls++
	m.scheduled = scheduledFor
	return m.writeErr
}

func (m *mockActivity) AddContent(_ context.Context, _, kind string, _ time.Time) error {
	m.writerCalls++
	m.kind = kind
	return m.writeErr
}

func (m *mockActivity) SetIntegration(_ context.Context, _, provider string, connected bool, _ time.Time) error {
	m.writerCalls++
	m.provider, m.connected = provider, connected
	return m.writeErr
}

func newActivityServer(store *mockActivity) http.Handler {
	return api.NewServer(&mockDeps{},
		api.WithLogger(logger.Discard()),
		api.WithActivityStore(store),
		api.WithClock(func() time.Time { return now }),
	).Handler()
}

func createdID(body []byte) string {
	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	return resp.ID
}

func TestActivityRoutes(t *testing.T) {
	Convey("Given an API server with an activity store", t, func() {
		store := &mockActivity{known: map[string]bool{"u-1": true}}
		h := newActivityServer(store)
		const js = "application/json"

		Convey("POST /subjects registers a subject", func() {
			rec := do(h, http.MethodPost, "/subjects", js, `{"id":" u-2 ","name":"Dana"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(createdID(rec.Body.Bytes()), ShouldEqual, "u-2")
			So(store.known["u-2"], ShouldBeTrue)
			So(store.subjectAt, ShouldEqual, now)
		})

		Convey("POST /subjects rejects blank and path-like ids", func() {
			So(do(h, http.MethodPost, "/subjects", js, `{"id":"  "}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPost, "/subjects", js, `{"id":"a/b"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(store.writerCalls, ShouldEqual, 0)
		})

		Convey("POST /subjects/{subject}/tasks records a task", func() {
			rec := do(h, http.MethodPost, "/subjects/u-1/tasks", js,
				`{"title":"Call back","priority":"HIGH","due_date":"2026-07-12","completed_at":"2026-07-10T09:30:00+02:00"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(createdID(rec.Body.Bytes()), ShouldEqual, "task-1")

			So(store.task.SubjectID, ShouldEqual, "u-1")
			So(store.task.Priority, ShouldEqual, "high")
			So(store.task.DueDate, ShouldNotBeNil)
			So(store.task.DueDate.Format("2006-01-02"), ShouldEqual, "2026-07-12")
			So(store.task.CompletedAt, ShouldNotBeNil)
			So(*store.task.CompletedAt, ShouldEqual, time.Date(2026, 7, 10, 7, 30, 0, 0, time.UTC))
			So(store.task.CreatedAt, ShouldEqual, now)
		})

		Convey("Tasks with a bad priority or due date are rejected", func() {
			rec := do(h, http.MethodPost, "/subjects/u-1/tasks", js, `{"priority":"urgent"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(rec), ShouldEqual, "bad_request")

			rec = do(h, http.MethodPost, "/subjects/u-1/tasks", js, `{"due_date":"12/07/2026"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(store.writerCalls, ShouldEqual, 0)
		})

		Convey("POST /subjects/{subject}/goals records a goal", func() {
			rec := do(h, http.MethodPost, "/subjects/u-1/goals", js,
				`{"title":"Q3","status":"Active","target_value":100,"current_value":40,"start_date":"2026-07-01","target_date":"2026-09-30","at":"2026-07-01T08:00:00Z"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(createdID(rec.Body.Bytes()), ShouldEqual, "goal-1")

			So(store.goal.Status, ShouldEqual, "active")
			So(store.goal.TargetValue, ShouldNotBeNil)
			So(*store.goal.TargetValue, ShouldEqual, 100.0)
			So(store.goal.CurrentValue, ShouldEqual, 40.0)
			So(store.goal.TargetDate.Format("2006-01-02"), ShouldEqual, "2026-09-30")
			So(store.goal.CreatedAt, ShouldEqual, time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC))
		})

		Convey("Goals with a bad date are rejected", func() {
			So(do(h, http.MethodPost, "/subjects/u-1/goals", js, `{"target_date":"soon"}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Contacts, appointments and content return 201", func() {
			rec := do(h, http.MethodPost, "/subjects/u-1/contacts", js, `{"name":"Lead A"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(store.contact, ShouldEqual, "Lead A")
			So(store.contactAt, ShouldEqual, now)

			rec = do(h, http.MethodPost, "/subjects/u-1/appointments", js, `{"scheduled_for":"2026-07-14T15:00:00Z"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(store.scheduled, ShouldEqual, time.Date(2026, 7, 14, 15, 0, 0, 0, time.UTC))

			rec = do(h, http.MethodPost, "/subjects/u-1/content", js, `{"kind":"video"}`)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(store.kind, ShouldEqual, "video")
		})

		Convey("An appointment without a time is rejected", func() {
			So(do(h, http.MethodPost, "/subjects/u-1/appointments", js, `{}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("PUT /subjects/{subject}/integrations/{provider} returns 204", func() {
			rec := do(h, http.MethodPut, "/subjects/u-1/integrations/crm", js, `{"connected":true}`)
			So(rec.Code, ShouldEqual, http.StatusNoContent)
			So(store.provider, ShouldEqual, "crm")
			So(store.connected, ShouldBeTrue)
		})

		Convey("An unknown subject maps to 404", func() {
			rec := do(h, http.MethodPost, "/subjects/ghost/contacts", js, `{}`)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(rec), ShouldEqual, "not_found")
			So(store.writerCalls, ShouldEqual, 0)
		})

		Convey("A failing store maps to 500", func() {
			store.resolveErr = errors.New("database is locked")
			So(do(h, http.MethodPost, "/subjects/u-1/content", js, `{}`).Code, ShouldEqual, http.StatusInternalServerError)

			store.resolveErr = nil
			store.writeErr = errors.New("disk full")
			rec := do(h, http.MethodPost, "/subjects/u-1/tasks", js, `{}`)
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(errorCode(rec), ShouldEqual, "internal_error")
		})

		Convey("Unknown fields and malformed bodies are rejected", func() {
			So(do(h, http.MethodPost, "/subjects/u-1/contacts", js, `{"karma":1}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPost, "/subjects/u-1/contacts", js, `{"name":`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A non-JSON content type is unsupported", func() {
			rec := do(h, http.MethodPost, "/subjects/u-1/contacts", "text/plain", `name=x`)
			So(rec.Code, ShouldEqual, http.StatusUnsupportedMediaType)
			So(store.writerCalls, ShouldEqual, 0)
		})
	})

	Convey("Given an API server without an activity store", t, func() {
		h := newTestServer(&mockDeps{})

		Convey("The ingest routes are not mounted", func() {
			So(do(h, http.MethodPost, "/subjects", "application/json", `{"id":"u-1"}`).Code, ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodPost, "/subjects/u-1/tasks", "application/json", `{}`).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestActivityIngestIntoSQLite(t *testing.T) {
	Convey("Given the ingest routes backed by SQLite", t, func() {
		db, err := sqlite.Open(sqlite.MemoryPath)
		So(err, ShouldBeNil)
		defer func() { _ = db.Close() }()

		repo := sqlite.NewActivityRepo(db)
		h := api.NewServer(&mockDeps{},
			api.WithLogger(logger.Discard()),
			api.WithActivityStore(repo),
			api.WithClock(func() time.Time { return now }),
		).Handler()
		ctx := context.Background()
		const js = "application/json"

		Convey("When a subject and its activity are posted", func() {
			So(do(h, http.MethodPost, "/subjects", js, `{"id":"u-7","name":"Sam"}`).Code, ShouldEqual, http.StatusCreated)
			So(do(h, http.MethodPost, "/subjects/u-7/tasks", js, `{"title":"a","completed_at":"2026-07-10T09:00:00Z"}`).Code, ShouldEqual, http.StatusCreated)
			So(do(h, http.MethodPost, "/subjects/u-7/tasks", js, `{"title":"b","priority":"high","completed_at":"2026-07-10T10:00:00Z"}`).Code, ShouldEqual, http.StatusCreated)
			So(do(h, http.MethodPost, "/subjects/u-7/contacts", js, `{"name":"Lead"}`).Code, ShouldEqual, http.StatusCreated)

			Convey("Then the collector counts see it", func() {
				So(repo.Resolve(ctx, "u-7"), ShouldBeNil)

				n, err := repo.Count(ctx, "u-7", collector.TasksCompleted, now)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				n, err = repo.Count(ctx, "u-7", collector.HighPriorityCompleted, now)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)

				n, err = repo.Count(ctx, "u-7", collector.ContactsAdded, now)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When activity is posted for a subject never registered", func() {
			rec := do(h, http.MethodPost, "/subjects/nobody/tasks", js, `{}`)

			Convey("Then it is a 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
