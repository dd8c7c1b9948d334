// Package config defines service configuration and its loading hooks.
//
// Conventions:
//   - New returns a Config populated with defaults.
//   - Load layers defaults, an optional YAML file and PULSE_ environment variables.
//   - Errors are wrapped with this package's sentinels.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath points at the SQLite database; ":memory:" keeps everything in process.
	DBPath string `koanf:"db_path"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory recompute queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the number of subject/day keys remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// MaxHistoryDays caps GET /scores/{subject}/history?days.
	MaxHistoryDays int `koanf:"max_history_days"`

	// BaseSystems is added to the connected integration count to form SystemsUsed.
	BaseSystems int `koanf:"base_systems"`

	// Trend analysis tuning.
	TrendLookbackDays         int     `koanf:"trend_lookback_days"`
	TrendStableBand           float64 `koanf:"trend_stable_band"`
	TrendSparseConfidence     float64 `koanf:"trend_sparse_confidence"`
	TrendMaxConfidence        float64 `koanf:"trend_max_confidence"`
	TrendFullConfidencePoints int     `koanf:"trend_full_confidence_points"`

	// PeerMinPopulation is the number of peers required before percentiles
	// are computed from the population instead of the static table.
	PeerMinPopulation int `koanf:"peer_min_population"`

	// MetricsSource selects the activity source: sqlite or http.
	MetricsSource string `koanf:"metrics_source"`

	// MetricsSourceURL is the base URL of the http metrics source.
	MetricsSourceURL string `koanf:"metrics_source_url"`

	// MetricsSourceToken is a static bearer token for the http metrics source.
	MetricsSourceToken string `koanf:"metrics_source_token"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                  "info",
		LogFormat:                 "text",
		Addr:                      ":9080",
		DBPath:                    "pulse.db",
		WorkerCount:               runtime.NumCPU(),
		QueueSize:                 10_000,
		DedupeSize:                100_000,
		MaxLeaderboardLimit:       100,
		MaxHistoryDays:            365,
		BaseSystems:               3,
		TrendLookbackDays:         14,
		TrendStableBand:           0.5,
		TrendSparseConfidence:     0.2,
		TrendMaxConfidence:        0.95,
		TrendFullConfidencePoints: 7,
		PeerMinPopulation:         20,
		MetricsSource:             "sqlite",
	}
}
