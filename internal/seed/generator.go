// Package seed generates synthetic subject activity for demos and load checks.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/pulse/internal/adapters/repository/sqlite"
	"github.com/okian/pulse/pkg/logger"
)

const (
	defaultSubjects = 10
	defaultDays     = 14
	defaultPrefix   = "demo-"
)

// Writer records raw activity.
type Writer interface {
	AddSubject(ctx context.Context, id, name string, at time.Time) error
	AddTask(ctx context.Context, t sqlite.Task) (string, error)
	AddGoal(ctx context.Context, g sqlite.Goal) (string, error)
	AddContact(ctx context.Context, subjectID, name string, at time.Time) error
	AddAppointment(ctx context.Context, subjectID string, scheduledFor, at time.Time) error
	AddContent(ctx context.Context, subjectID, kind string, at time.Time) error
	SetIntegration(ctx context.Context, subjectID, provider string, connected bool, at time.Time) error
}

// Profile is the activity level of a generated subject.
type Profile string

const (
	ProfileLow    Profile = "low"
	ProfileMedium Profile = "medium"
	ProfileHigh   Profile = "high"
	ProfileElite  Profile = "elite"
)

// Profiles are assigned round-robin so every run covers each level.
var Profiles = []Profile{ProfileLow, ProfileMedium, ProfileHigh, ProfileElite}

// rates are upper bounds per active day unless noted.
type rates struct {
	activeDay    float64 // probability a day has any activity
	tasks        int
	overdue      int // open tasks already past due, created once
	highShare    float64
	contacts     int
	appointments int
	content      int
	goals        int // created once
	goalProgress float64
	integrations int // connected once
}

var profileRates = map[Profile]rates{
	ProfileLow:    {activeDay: 0.3, tasks: 2, overdue: 4, highShare: 0.1, contacts: 1, appointments: 0, content: 0, goals: 1, goalProgress: 0.2, integrations: 0},
	ProfileMedium: {activeDay: 0.6, tasks: 5, overdue: 2, highShare: 0.2, contacts: 2, appointments: 1, content: 1, goals: 2, goalProgress: 0.5, integrations: 1},
	ProfileHigh:   {activeDay: 0.85, tasks: 8, overdue: 1, highShare: 0.3, contacts: 3, appointments: 1, content: 2, goals: 3, goalProgress: 0.8, integrations: 2},
	ProfileElite:  {activeDay: 1, tasks: 12, overdue: 0, highShare: 0.4, contacts: 4, appointments: 2, content: 3, goals: 3, goalProgress: 1.1, integrations: 3},
}

var (
	providers    = []string{"crm", "calendar", "email", "social"}
	contentKinds = []string{"post", "email", "video"}
)

// SubjectSummary describes one generated subject.
type SubjectSummary struct {
	ID      string  `json:"id"`
	Profile Profile `json:"profile"`
}

// Summary counts what a run wrote.
type Summary struct {
	Subjects     []SubjectSummary `json:"subjects"`
	Tasks        int              `json:"tasks"`
	Goals        int              `json:"goals"`
	Contacts     int              `json:"contacts"`
	Appointments int              `json:"appointments"`
	Content      int              `json:"content"`
	Integrations int              `json:"integrations"`
}

// Generator writes synthetic activity for a number of subjects over a
// number of trailing days, ending today.
type Generator struct {
	w        Writer
	subjects int
	days     int
	prefix   string
	seed     uint64
	now      func() time.Time
	logger   logger.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithSubjects sets how many subjects are generated.
func WithSubjects(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.subjects = n
		}
	}
}

// WithDays sets how many trailing days of activity are generated.
func WithDays(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.days = n
		}
	}
}

// WithPrefix sets the subject id prefix.
func WithPrefix(p string) Option {
	return func(g *Generator) {
		if p != "" {
			g.prefix = p
		}
	}
}

// WithSeed makes a run reproducible.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithClock sets the clock that defines today.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Generator writing to w.
func New(w Writer, opts ...Option) *Generator {
	g := &Generator{
		w:        w,
		subjects: defaultSubjects,
		days:     defaultDays,
		prefix:   defaultPrefix,
		seed:     1,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logger.Get().Named("seed")
	}
	return g
}

// Run writes every subject and its activity. It stops at the first write error.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
	today := g.now().UTC().Truncate(time.Hour)
	sum := Summary{Subjects: make([]SubjectSummary, 0, g.subjects)}

	for i := range g.subjects {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		id := fmt.Sprintf("%s%03d", g.prefix, i)
		p := Profiles[i%len(Profiles)]
		if err := g.subject(ctx, rng, id, p, today, &sum); err != nil {
			return sum, fmt.Errorf("seeding %s: %w", id, err)
		}
		sum.Subjects = append(sum.Subjects, SubjectSummary{ID: id, Profile: p})
	}

	g.logger.Info(ctx, "synthetic activity generated",
		logger.Int("subjects", len(sum.Subjects)),
		logger.Int("days", g.days),
		logger.Int("tasks", sum.Tasks),
		logger.Int("contacts", sum.Contacts),
	)
	return sum, nil
}

func (g *Generator) subject(ctx context.Context, rng *rand.Rand, id string, p Profile, today time.Time, sum *Summary) error {
	r := profileRates[p]
	start := today.AddDate(0, 0, -g.days)

	if err := g.w.AddSubject(ctx, id, fmt.Sprintf("Demo %s subject", p), start); err != nil {
		return err
	}

	for j := range r.integrations {
		if err := g.w.SetIntegration(ctx, id, providers[j%len(providers)], true, start); err != nil {
			return err
		}
		sum.Integrations++
	}

	for range r.goals {
		target := 100.0
		_, err := g.w.AddGoal(ctx, sqlite.Goal{
			SubjectID:    id,
			Title:        "Quarterly target",
			TargetValue:  &target,
			CurrentValue: target * r.goalProgress * 0.5,
			StartDate:    &start,
			TargetDate:   ptr(today.AddDate(0, 0, g.days)),
			CreatedAt:    start,
		})
		if err != nil {
			return err
		}
		sum.Goals++
	}

	for range r.overdue {
		_, err := g.w.AddTask(ctx, sqlite.Task{
			SubjectID: id,
			Title:     "Follow up",
			DueDate:   ptr(today.AddDate(0, 0, -1-rng.IntN(3))),
			CreatedAt: start,
		})
		if err != nil {
			return err
		}
		sum.Tasks++
	}

	for d := g.days - 1; d >= 0; d-- {
		day := today.AddDate(0, 0, -d)
		if d > 0 && rng.Float64() >= r.activeDay {
			continue
		}
		if err := g.day(ctx, rng, id, r, day, sum); err != nil {
			return err
		}
	}
	return nil
}

// day writes one active day. Every active day has at least one completed task.
func (g *Generator) day(ctx context.Context, rng *rand.Rand, id string, r rates, day time.Time, sum *Summary) error {
	at := func() time.Time {
		t := day.Add(-time.Duration(rng.IntN(60)) * time.Minute)
		if t.YearDay() != day.YearDay() {
			return day
		}
		return t
	}

	for range 1 + rng.IntN(r.tasks) {
		priority := "medium"
		if rng.Float64() < r.highShare {
			priority = "high"
		}
		done := at()
		if _, err := g.w.AddTask(ctx, sqlite.Task{SubjectID: id, Title: "Daily task", Priority: priority, CompletedAt: &done, CreatedAt: done}); err != nil {
			return err
		}
		sum.Tasks++
	}
	for range rng.IntN(r.contacts + 1) {
		if err := g.w.AddContact(ctx, id, "Lead", at()); err != nil {
			return err
		}
		sum.Contacts++
	}
	for range rng.IntN(r.appointments + 1) {
		if err := g.w.AddAppointment(ctx, id, day.AddDate(0, 0, 2), at()); err != nil {
			return err
		}
		sum.Appointments++
	}
	for range rng.IntN(r.content + 1) {
		if err := g.w.AddContent(ctx, id, contentKinds[rng.IntN(len(contentKinds))], at()); err != nil {
			return err
		}
		sum.Content++
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
