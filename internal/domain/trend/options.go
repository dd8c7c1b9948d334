package trend

import (
	"github.com/okian/pulse/pkg/logger"
)

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithLookbackDays sets how many days of history feed the regression.
func WithLookbackDays(days int) Option {
	return func(a *Analyzer) {
		if days > 0 {
			a.lookbackDays = days
		}
	}
}

// WithStableBand sets the absolute velocity below which a trend is stable.
func WithStableBand(band float64) Option {
	return func(a *Analyzer) {
		if band >= 0 {
			a.stableBand = band
		}
	}
}

// WithConfidence sets the sparse-history floor, the ceiling and the number of
// points needed for full coverage.
func WithConfidence(sparse, maxConfidence float64, fullPoints int) Option {
	return func(a *Analyzer) {
		if sparse >= 0 && sparse <= maxConfidence && maxConfidence <= 1 {
			a.sparseConfidence = sparse
			a.maxConfidence = maxConfidence
		}
		if fullPoints > 0 {
			a.fullPoints = fullPoints
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}
