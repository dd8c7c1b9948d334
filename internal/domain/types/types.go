// Package types contains common types used across the application
package types

// Entry represents a leaderboard entry ranked by latest overall score.
type Entry struct {
	Rank      int    `json:"rank"`
	SubjectID string `json:"subject_id"`
	Score     int    `json:"score"`
}

// Standing describes where a score sits within the peer population.
// Peers excludes the subject itself.
type Standing struct {
	Below int `json:"below"`
	Equal int `json:"equal"`
	Peers int `json:"peers"`
}
