package centrality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nehcuh/codescope/graph"
)

func buildSnap(t *testing.T, edges []graph.Edge, ids ...string) *graph.Snapshot {
	t.Helper()
	nodes := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, graph.Node{ID: id, Type: graph.NodeFunction, Name: id})
	}
	snap, err := graph.Build(nodes, edges)
	require.NoError(t, err)
	return snap
}

func TestPageRank(t *testing.T) {
	t.Parallel()

	t.Run("scores sum to one", func(t *testing.T) {
		t.Parallel()
		snap := buildSnap(t, []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
			{From: "b", To: "c", Type: graph.EdgeCalls},
			{From: "c", To: "a", Type: graph.EdgeCalls},
			{From: "d", To: "a", Type: graph.EdgeUses},
		}, "a", "b", "c", "d")
		scores := Compute(snap, DefaultOptions())

		sum := 0.0
		for _, s := range scores.PageRank {
			sum += s
		}
		assert.InDelta(t, 1.0, sum, 1e-4)
	})

	t.Run("sink of a chain ranks highest", func(t *testing.T) {
		t.Parallel()
		snap := buildSnap(t, []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
			{From: "b", To: "c", Type: graph.EdgeCalls},
		}, "a", "b", "c")
		scores := Compute(snap, DefaultOptions())

		assert.Greater(t, scores.PageRank["c"], scores.PageRank["b"])
		assert.Greater(t, scores.PageRank["b"], scores.PageRank["a"])
	})

	t.Run("deterministic across recomputation", func(t *testing.T) {
		t.Parallel()
		snap := buildSnap(t, []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
			{From: "b", To: "a", Type: graph.EdgeCalls},
			{From: "c", To: "a", Type: graph.EdgeImports},
		}, "a", "b", "c")

		first := Compute(snap, DefaultOptions())
		second := Compute(snap, DefaultOptions())
		assert.Equal(t, first.PageRank, second.PageRank)
	})
}

func TestCycleDetection(t *testing.T) {
	t.Parallel()

	t.Run("three-node cycle is found and flagged", func(t *testing.T) {
		t.Parallel()
		snap := buildSnap(t, []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
			{From: "b", To: "c", Type: graph.EdgeCalls},
			{From: "c", To: "a", Type: graph.EdgeCalls},
		}, "a", "b", "c")
		scores := Compute(snap, DefaultOptions())

		assert.GreaterOrEqual(t, scores.CyclesCount, 1)
		for _, id := range []string{"a", "b", "c"} {
			assert.True(t, scores.OnCycle[id], "node %s should be on a cycle", id)
		}
	})

	t.Run("acyclic graph has no cycles", func(t *testing.T) {
		t.Parallel()
		snap := buildSnap(t, []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
			{From: "a", To: "c", Type: graph.EdgeCalls},
		}, "a", "b", "c")
		scores := Compute(snap, DefaultOptions())

		assert.Equal(t, 0, scores.CyclesCount)
		assert.Empty(t, scores.OnCycle)
	})

	t.Run("uses edges do not form counted cycles", func(t *testing.T) {
		t.Parallel()
		snap := buildSnap(t, []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeUses},
			{From: "b", To: "a", Type: graph.EdgeUses},
		}, "a", "b")
		scores := Compute(snap, DefaultOptions())
		assert.Equal(t, 0, scores.CyclesCount)
	})
}

func TestCriticalNodes(t *testing.T) {
	t.Parallel()

	// b separates a from c, d.
	snap := buildSnap(t, []graph.Edge{
		{From: "a", To: "b", Type: graph.EdgeCalls},
		{From: "b", To: "c", Type: graph.EdgeCalls},
		{From: "b", To: "d", Type: graph.EdgeCalls},
	}, "a", "b", "c", "d")
	scores := Compute(snap, DefaultOptions())

	assert.Equal(t, []string{"b"}, scores.CriticalNodes)
	assert.True(t, scores.IsCritical("b"))
	assert.False(t, scores.IsCritical("a"))
}

func TestCache(t *testing.T) {
	t.Parallel()

	t.Run("same snapshot hits the cache", func(t *testing.T) {
		t.Parallel()
		cache, err := NewCache(DefaultCacheCapacity, DefaultOptions())
		require.NoError(t, err)
		defer cache.Close()

		snap := buildSnap(t, []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
		}, "a", "b")

		first := cache.GetOrCompute(snap)
		second := cache.GetOrCompute(snap)
		assert.Same(t, first, second)
	})

	t.Run("invalidate forces recomputation", func(t *testing.T) {
		t.Parallel()
		cache, err := NewCache(DefaultCacheCapacity, DefaultOptions())
		require.NoError(t, err)
		defer cache.Close()

		snap := buildSnap(t, []graph.Edge{
			{From: "a", To: "b", Type: graph.EdgeCalls},
		}, "a", "b")

		first := cache.GetOrCompute(snap)
		cache.Invalidate(snap.Hash())
		second := cache.GetOrCompute(snap)
		assert.NotSame(t, first, second)
		assert.Equal(t, first.PageRank, second.PageRank)
	})
}
