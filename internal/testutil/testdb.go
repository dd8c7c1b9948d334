// Package testutil holds shared test helpers.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/okian/pulse/internal/adapters/repository/sqlite"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// The database is closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := sqlite.Open(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}
