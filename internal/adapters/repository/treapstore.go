package repository

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/okian/pulse/internal/domain/types"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// Treap-based, in-memory Ranking implementation.
//
// Ordering: score DESC, then subjectID ASC (deterministic). "less" means
// ranks earlier, so in-order traversal yields the leaderboard best first.
// Every node tracks its subtree size, which turns rank and standing queries
// into O(log n) walks.

type node struct {
	id    string
	score int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aScore int, aID string, bScore int, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

// priority derives a heap priority from the id so the shape of the tree does
// not depend on insertion order.
func priority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score int) *node {
	if n == nil {
		return &node{id: id, score: score, prio: priority(id), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, score int) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = remove(n.left, id, score)
	default:
		n.right = remove(n.right, id, score)
	}
	fix(n)
	return n
}

// countAbove returns the number of nodes with a score strictly greater than score.
func countAbove(n *node, score int) int {
	count := 0
	for n != nil {
		if n.score > score {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// countBelow returns the number of nodes with a score strictly lower than score.
func countBelow(n *node, score int) int {
	count := 0
	for n != nil {
		if n.score < score {
			count += 1 + nsize(n.right)
			n = n.left
		} else {
			n = n.right
		}
	}
	return count
}

func collectTopN(n *node, limit int, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, types.Entry{SubjectID: n.id, Score: n.score})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore ranks subjects by their latest overall score.
type TreapStore struct {
	mu     sync.RWMutex
	root   *node
	byID   map[string]int
	seed   map[string]int
	logger logger.Logger
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]int),
		seed: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("ranking")
	}

	for id, v := range s.seed {
		s.byID[id] = v
		s.root = insert(s.root, id, v)
	}
	s.seed = nil
	metrics.UpdatePeerPopulation(len(s.byID))
	if len(s.byID) > 0 {
		s.logger.Info(ctx, "peer ranking seeded", logger.Int("subjects", len(s.byID)))
	}
	return s
}

func (s *TreapStore) Upsert(_ context.Context, subjectID string, overall int) error {
	s.mu.Lock()
	if old, ok := s.byID[subjectID]; ok {
		if old == overall {
			s.mu.Unlock()
			return nil
		}
		s.root = remove(s.root, subjectID, old)
	}
	s.byID[subjectID] = overall
	s.root = insert(s.root, subjectID, overall)
	count := len(s.byID)
	s.mu.Unlock()

	metrics.UpdatePeerPopulation(count)
	return nil
}

func (s *TreapStore) Standing(_ context.Context, subjectID string, overall int) (types.Standing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.byID)
	below := countBelow(s.root, overall)
	equal := total - below - countAbove(s.root, overall)

	if own, ok := s.byID[subjectID]; ok {
		total--
		switch {
		case own < overall:
			below--
		case own == overall:
			equal--
		}
	}
	return types.Standing{Below: below, Equal: equal, Peers: total}, nil
}

// Rank uses competition ranking: tied scores share a rank and the next rank
// skips the tied positions.
func (s *TreapStore) Rank(_ context.Context, subjectID string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.byID[subjectID]
	if !ok {
		return types.Entry{}, ErrNotFound
	}
	return types.Entry{Rank: 1 + countAbove(s.root, score), SubjectID: subjectID, Score: score}, nil
}

func (s *TreapStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Entry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &out)
	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out, nil
}

func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
