package api

import (
	"time"

	"github.com/okian/pulse/pkg/logger"
)

const (
	defaultMaxLeaderboardLimit = 100
	defaultLeaderboardLimit    = 10
	defaultMaxHistoryDays      = 365
	defaultHistoryDays         = 30
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps GET /leaderboard?limit.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLeaderboardLimit = n
		}
	}
}

// WithMaxHistoryDays caps GET /scores/{subject}/history?days.
func WithMaxHistoryDays(days int) Option {
	return func(s *Server) {
		if days > 0 {
			s.maxHistoryDays = days
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithActivityStore enables the activity ingest routes under /subjects.
func WithActivityStore(a ActivityStore) Option {
	return func(s *Server) {
		s.activity = a
	}
}

// WithClock sets the clock used to timestamp ingested activity.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}
