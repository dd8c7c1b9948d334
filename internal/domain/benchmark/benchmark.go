// Package benchmark maps an overall score to a peer percentile and a
// performance tier.
//
// The static table is the default and the fallback. When a peer ranker is
// configured and the population is large enough, the percentile is computed
// from the population instead.
package benchmark

import (
	"context"
	"math"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
)

const defaultMinPeers = 20

// Source tells which path produced a Result.
type Source string

const (
	SourceStatic Source = "static"
	SourcePeers  Source = "peers"
)

// Result is the outcome of a benchmark.
type Result struct {
	Percentile int
	Tier       model.Tier
	Source     Source
}

// PeerRanker reports where an overall score sits among the latest scores of
// every other subject.
type PeerRanker interface {
	Standing(ctx context.Context, subjectID string, overall int) (types.Standing, error)
}

// Static is the fixed threshold table.
func Static(overall int) Result {
	switch {
	case overall >= 85:
		return Result{Percentile: 90, Tier: model.TierElite, Source: SourceStatic}
	case overall >= 70:
		return Result{Percentile: 75, Tier: model.TierHigh, Source: SourceStatic}
	case overall >= 50:
		return Result{Percentile: 50, Tier: model.TierMedium, Source: SourceStatic}
	default:
		return Result{Percentile: 25, Tier: model.TierLow, Source: SourceStatic}
	}
}

// TierForPercentile applies the table cut points to a percentile.
func TierForPercentile(p int) model.Tier {
	switch {
	case p >= 90:
		return model.TierElite
	case p >= 75:
		return model.TierHigh
	case p >= 50:
		return model.TierMedium
	default:
		return model.TierLow
	}
}

// Percentile is the mid-rank percentile of a score with below strictly lower
// peers and equal tied peers, rounded and clamped to [0, 100].
func Percentile(s types.Standing) int {
	if s.Peers <= 0 {
		return 0
	}
	p := math.Round(100 * (float64(s.Below) + float64(s.Equal)/2) / float64(s.Peers))
	return int(math.Max(0, math.Min(100, p)))
}

// Option applies a configuration option to the Benchmarker.
type Option func(*Benchmarker)

// WithPeerRanker enables population percentiles.
func WithPeerRanker(r PeerRanker) Option {
	return func(b *Benchmarker) {
		b.ranker = r
	}
}

// WithMinPeers sets the population needed before peers are used.
func WithMinPeers(n int) Option {
	return func(b *Benchmarker) {
		if n > 0 {
			b.minPeers = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Benchmarker) {
		if l != nil {
			b.logger = l
		}
	}
}

// Benchmarker ranks overall scores.
type Benchmarker struct {
	ranker   PeerRanker
	minPeers int
	logger   logger.Logger
}

// New creates a Benchmarker. Without a peer ranker it always uses Static.
func New(opts ...Option) *Benchmarker {
	b := &Benchmarker{minPeers: defaultMinPeers}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("benchmark")
	}
	return b
}

// Benchmark never fails; any ranker problem falls back to Static.
func (b *Benchmarker) Benchmark(ctx context.Context, subjectID string, overall int) Result {
	if b.ranker == nil {
		return Static(overall)
	}
	st, err := b.ranker.Standing(ctx, subjectID, overall)
	if err != nil {
		b.logger.Warn(ctx, "peer standing unavailable, using static table",
			logger.String("subject", subjectID),
			logger.Error(err),
		)
		return Static(overall)
	}
	if st.Peers < b.minPeers {
		return Static(overall)
	}
	p := Percentile(st)
	return Result{Percentile: p, Tier: TierForPercentile(p), Source: SourcePeers}
}
