// Package dedupe tracks which recompute periods have already been scheduled.
package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/okian/pulse/pkg/metrics"
)

const defaultMaxSize = 50_000

// periodLayout formats the UTC day part of a period key.
const periodLayout = "2006-01-02"

// PeriodKey is the dedupe key for one subject on the UTC day of t.
func PeriodKey(subjectID string, t time.Time) string {
	return subjectID + "|" + t.UTC().Format(periodLayout)
}

// Deduper records seen keys to make scheduling at-most-once per key.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so that it can be scheduled again, e.g. after the
	// job was rejected or failed.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// entry is a node of the insertion-ordered list.
type entry struct {
	key        string
	prev, next *entry
}

// inMemoryDeduper keeps keys in a map plus an insertion-ordered list.
// When bounded and full, the oldest key is evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*entry
	oldest  *entry
	newest  *entry
	maxSize int // <= 0 means unbounded
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*entry)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		metrics.RecordDedupeSkipped()
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.unlink(d.oldest)
	}

	e := &entry{key: key, prev: d.newest}
	if d.newest != nil {
		d.newest.next = e
	}
	d.newest = e
	if d.oldest == nil {
		d.oldest = e
	}
	d.seen[key] = e
	metrics.UpdateDedupeTracked(int64(len(d.seen)))
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[key]; ok {
		d.unlink(e)
		metrics.UpdateDedupeTracked(int64(len(d.seen)))
	}
}

// unlink removes e from both the list and the map. Caller holds d.mu.
func (d *inMemoryDeduper) unlink(e *entry) {
	if e == nil {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		d.oldest = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		d.newest = e.prev
	}
	e.prev, e.next = nil, nil
	delete(d.seen, e.key)
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
