package repository

import "github.com/okian/pulse/pkg/logger"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *TreapStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSeed preloads subjects, typically from ScoreStore.LatestOverallScores.
func WithSeed(scores map[string]int) Option {
	return func(s *TreapStore) {
		for id, v := range scores {
			s.seed[id] = v
		}
	}
}
