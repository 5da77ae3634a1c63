package centrality

import (
	"sync"

	"github.com/maypok86/otter"

	"github.com/nehcuh/codescope/graph"
)

// DefaultCacheCapacity bounds how many snapshots' scores are retained.
// Scan sessions replace snapshots wholesale, so a small capacity suffices.
const DefaultCacheCapacity = 16

// Cache is a process-scoped, write-once store of centrality scores keyed by
// snapshot content hash. It is an explicit collaborator passed into the
// engine rather than ambient global state, and guarantees the expensive
// full-graph pass runs at most once per snapshot even under concurrent
// summarization requests.
type Cache struct {
	mu     sync.Mutex
	scores otter.Cache[string, *Scores]
	opts   Options
}

// NewCache creates a cache holding up to capacity snapshots' scores.
func NewCache(capacity int, opts Options) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	c, err := otter.MustBuilder[string, *Scores](capacity).Build()
	if err != nil {
		return nil, err
	}
	return &Cache{scores: c, opts: opts}, nil
}

// GetOrCompute returns the cached scores for the snapshot, computing them
// exactly once if absent. Safe for concurrent use.
func (c *Cache) GetOrCompute(snap *graph.Snapshot) *Scores {
	if s, ok := c.scores.Get(snap.Hash()); ok {
		return s
	}
	// The compute pass is serialized; concurrent callers for the same
	// snapshot wait rather than duplicating the work.
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.scores.Get(snap.Hash()); ok {
		return s
	}
	s := Compute(snap, c.opts)
	c.scores.Set(snap.Hash(), s)
	return s
}

// Invalidate drops the cached scores for a snapshot hash. Called when a new
// snapshot replaces an old one and the old scores are no longer needed.
func (c *Cache) Invalidate(hash string) {
	c.scores.Delete(hash)
}

// Close releases the cache's resources.
func (c *Cache) Close() {
	c.scores.Close()
}
