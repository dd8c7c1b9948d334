// Package model contains domain models passed between layers.
package model

import "time"

// MetricsSnapshot is the raw behavioral counts for one subject over one
// scoring period. It is passed by value and never mutated after capture.
type MetricsSnapshot struct {
	SubjectID  string    `json:"subject_id,omitempty"`
	CapturedAt time.Time `json:"captured_at,omitempty"`

	TasksCompleted        int `json:"tasks_completed"`
	TasksOverdue          int `json:"tasks_overdue"`
	HighPriorityCompleted int `json:"high_priority_completed"`
	GoalsActive           int `json:"goals_active"`
	GoalsOnTrack          int `json:"goals_on_track"`
	ContactsAdded         int `json:"contacts_added"`
	AppointmentsSet       int `json:"appointments_set"`
	ContentGenerated      int `json:"content_generated"`
	SystemsUsed           int `json:"systems_used"`
	ConsistencyStreak     int `json:"consistency_streak"`
}

// Normalize returns a copy with negative counts replaced by zero and
// GoalsOnTrack capped at GoalsActive.
func (m MetricsSnapshot) Normalize() MetricsSnapshot {
	for _, f := range []*int{
		&m.TasksCompleted, &m.TasksOverdue, &m.HighPriorityCompleted,
		&m.GoalsActive, &m.GoalsOnTrack, &m.ContactsAdded, &m.AppointmentsSet,
		&m.ContentGenerated, &m.SystemsUsed, &m.ConsistencyStreak,
	} {
		if *f < 0 {
			*f = 0
		}
	}
	if m.GoalsOnTrack > m.GoalsActive {
		m.GoalsOnTrack = m.GoalsActive
	}
	return m
}
