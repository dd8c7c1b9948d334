// Package sqlite implements the score store and the activity metrics
// source on SQLite (modernc.org/sqlite, pure Go).
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-process database.
const MemoryPath = ":memory:"

// timeLayout is fixed-width and always UTC so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const dayLayout = "2006-01-02"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Open opens the SQLite database at path, or an in-memory one for
// MemoryPath, and runs migrations.
func Open(path string) (*sql.DB, error) {
	dsn := path
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if path == MemoryPath {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// Migrate runs all schema migrations. Every statement is idempotent.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	// activity
	`CREATE TABLE IF NOT EXISTS subjects (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		subject_id   TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		title        TEXT NOT NULL DEFAULT '',
		priority     TEXT NOT NULL DEFAULT 'medium' CHECK(priority IN ('low','medium','high')),
		due_date     TEXT,
		completed_at TEXT,
		created_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_subject_completed ON tasks(subject_id, completed_at)`,
	`CREATE TABLE IF NOT EXISTS goals (
		id            TEXT PRIMARY KEY,
		subject_id    TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		title         TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active','completed','abandoned')),
		target_value  REAL,
		current_value REAL NOT NULL DEFAULT 0,
		start_date    TEXT,
		target_date   TEXT,
		created_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id         TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		name       TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_subject_created ON contacts(subject_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id            TEXT PRIMARY KEY,
		subject_id    TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		scheduled_for TEXT NOT NULL,
		created_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_subject_created ON appointments(subject_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS content_items (
		id         TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		kind       TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_subject_created ON content_items(subject_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS integrations (
		id         TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		provider   TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'connected' CHECK(status IN ('connected','disconnected')),
		created_at TEXT NOT NULL,
		UNIQUE(subject_id, provider)
	)`,

	// scoring
	`CREATE TABLE IF NOT EXISTS metric_snapshots (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id  TEXT NOT NULL,
		captured_at TEXT NOT NULL,
		payload     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scores (
		id          TEXT PRIMARY KEY,
		subject_id  TEXT NOT NULL,
		computed_at TEXT NOT NULL,
		overall     INTEGER NOT NULL CHECK(overall BETWEEN 0 AND 100),
		tier        TEXT NOT NULL,
		payload     TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scores_subject_computed ON scores(subject_id, computed_at)`,
	`CREATE TABLE IF NOT EXISTS score_history (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id  TEXT NOT NULL,
		score_type  TEXT NOT NULL,
		score_value INTEGER NOT NULL,
		computed_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_subject_computed ON score_history(subject_id, computed_at)`,
	`CREATE TABLE IF NOT EXISTS interventions (
		id              TEXT PRIMARY KEY,
		subject_id      TEXT NOT NULL,
		score_id        TEXT NOT NULL DEFAULT '',
		trigger_type    TEXT NOT NULL,
		pillar_affected TEXT NOT NULL,
		severity        TEXT NOT NULL,
		recommendation  TEXT NOT NULL,
		action_steps    TEXT NOT NULL DEFAULT '[]',
		resolved        INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL,
		resolved_at     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interventions_subject_resolved ON interventions(subject_id, resolved)`,
}
