package codescope

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nehcuh/codescope/config"
	"github.com/nehcuh/codescope/graph"
)

func fnNode(id, path string) graph.Node {
	return graph.Node{ID: id, Type: graph.NodeFunction, Name: id, FilePath: path}
}

// A calls B calls C calls D, one function per file.
func chainGraph() ([]graph.Node, []graph.Edge) {
	nodes := []graph.Node{
		fnNode("A", "src/a.go"),
		fnNode("B", "src/b.go"),
		fnNode("C", "src/c.go"),
		fnNode("D", "src/d.go"),
	}
	edges := []graph.Edge{
		{From: "A", To: "B", Type: graph.EdgeCalls},
		{From: "B", To: "C", Type: graph.EdgeCalls},
		{From: "C", To: "D", Type: graph.EdgeCalls},
	}
	return nodes, edges
}

func bigChainGraph(n int) ([]graph.Node, []graph.Edge) {
	nodes := make([]graph.Node, 0, n)
	edges := make([]graph.Edge, 0, n-1)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("n%03d", i)
		nodes = append(nodes, fnNode(id, "src/"+id+".go"))
		if i > 0 {
			edges = append(edges, graph.Edge{
				From: fmt.Sprintf("n%03d", i-1), To: id, Type: graph.EdgeCalls,
			})
		}
	}
	return nodes, edges
}

func newEngine(t *testing.T, nodes []graph.Node, edges []graph.Edge) *Engine {
	t.Helper()
	e, err := New(nodes, edges)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestSummarizeRadiusOne(t *testing.T) {
	t.Parallel()

	nodes, edges := chainGraph()
	e := newEngine(t, nodes, edges)

	sum, err := e.Summarize(context.Background(), Params{
		Seeds:     []string{"A"},
		Radius:    1,
		TopK:      10,
		WithPaths: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, sum.KeptIDs())
	assert.Equal(t, 2, sum.KeptNodes)
	assert.Equal(t, 1, sum.Radius)
	assert.False(t, sum.Truncated)
	assert.Equal(t, []string{"A"}, sum.SeedsPreview)
	assert.Equal(t, 4, sum.GraphStats.NodeCount)
	assert.Equal(t, 3, sum.GraphStats.EdgeCount)

	// Along the chain the sink of the kept pair ranks higher.
	require.Len(t, sum.TopNodes, 2)
	assert.Equal(t, "B", sum.TopNodes[0].NodeID)
	assert.Equal(t, "A", sum.TopNodes[1].NodeID)

	require.Len(t, sum.PathExamples, 1)
	assert.Equal(t, []string{"fn A()", "fn B()"}, sum.PathExamples[0])
}

func TestSummarizeSeedsAlwaysKept(t *testing.T) {
	t.Parallel()

	nodes, edges := chainGraph()
	e := newEngine(t, nodes, edges)

	// TopK below the seed count keeps only the seeds, whatever their rank.
	sum, err := e.Summarize(context.Background(), Params{
		Seeds: []string{"A"},
		TopK:  1,
		Scope: ScopeFull,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, sum.KeptIDs())
	require.Len(t, sum.TopNodes, 1)
	assert.Equal(t, "A", sum.TopNodes[0].NodeID)
}

func TestSummarizeTinyBudget(t *testing.T) {
	t.Parallel()

	nodes, edges := bigChainGraph(300)
	e := newEngine(t, nodes, edges)

	sum, err := e.Summarize(context.Background(), Params{
		Seeds:           []string{"n000"},
		BudgetTokens:    1,
		Scope:           ScopeFull,
		WithCommunities: true,
		WithPaths:       true,
	})
	require.NoError(t, err)

	// The floor summary is returned rather than an error or empty output.
	assert.True(t, sum.Truncated)
	assert.NotEmpty(t, sum.SeedsPreview)
	out, err := sum.Render(FormatSummary)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestSummarizeBudgetMonotonic(t *testing.T) {
	t.Parallel()

	nodes, edges := bigChainGraph(300)
	e := newEngine(t, nodes, edges)

	params := Params{
		Seeds:           []string{"n000"},
		Scope:           ScopeFull,
		WithCommunities: true,
		WithPaths:       true,
		Format:          FormatJSON,
	}

	params.BudgetTokens = 100000
	loose, err := e.Summarize(context.Background(), params)
	require.NoError(t, err)
	params.BudgetTokens = 100
	tight, err := e.Summarize(context.Background(), params)
	require.NoError(t, err)

	looseOut, err := loose.Render(FormatJSON)
	require.NoError(t, err)
	tightOut, err := tight.Render(FormatJSON)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(tightOut), len(looseOut))
	assert.False(t, loose.Truncated)
	assert.True(t, tight.Truncated)
}

func TestSummarizeDisjointSubgraphs(t *testing.T) {
	t.Parallel()

	var nodes []graph.Node
	var edges []graph.Edge
	for _, prefix := range []string{"a", "b"} {
		ids := []string{prefix + "1", prefix + "2", prefix + "3"}
		for _, id := range ids {
			nodes = append(nodes, fnNode(id, "src/"+id+".go"))
		}
		edges = append(edges,
			graph.Edge{From: ids[0], To: ids[1], Type: graph.EdgeCalls},
			graph.Edge{From: ids[1], To: ids[2], Type: graph.EdgeCalls},
			graph.Edge{From: ids[2], To: ids[0], Type: graph.EdgeCalls},
		)
	}
	e := newEngine(t, nodes, edges)

	sum, err := e.Summarize(context.Background(), Params{
		Seeds:           []string{"a1"},
		Radius:          1,
		WithCommunities: true,
	})
	require.NoError(t, err)

	require.NotEmpty(t, sum.Communities)
	for _, c := range sum.Communities {
		for _, member := range c.Members {
			assert.True(t, strings.HasPrefix(member, "a"),
				"community %s contains node %s from the unreached subgraph", c.ID, member)
		}
	}
	assert.Empty(t, sum.CommunityEdges)
}

func TestSummarizeCycleStats(t *testing.T) {
	t.Parallel()

	nodes := []graph.Node{
		fnNode("A", "src/a.go"), fnNode("B", "src/b.go"), fnNode("C", "src/c.go"),
	}
	edges := []graph.Edge{
		{From: "A", To: "B", Type: graph.EdgeCalls},
		{From: "B", To: "C", Type: graph.EdgeCalls},
		{From: "C", To: "A", Type: graph.EdgeCalls},
	}
	e := newEngine(t, nodes, edges)

	sum, err := e.Summarize(context.Background(), Params{Seeds: []string{"A"}})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sum.GraphStats.CyclesCount, 1)
}

func TestSummarizeDeterministic(t *testing.T) {
	t.Parallel()

	nodes, edges := bigChainGraph(40)
	first := newEngine(t, nodes, edges)

	// Same graph, reversed input order.
	revNodes := make([]graph.Node, len(nodes))
	for i, n := range nodes {
		revNodes[len(nodes)-1-i] = n
	}
	revEdges := make([]graph.Edge, len(edges))
	for i, e := range edges {
		revEdges[len(edges)-1-i] = e
	}
	second := newEngine(t, revNodes, revEdges)

	params := Params{
		Seeds:           []string{"n005", "n020"},
		Radius:          2,
		WithCommunities: true,
		WithPaths:       true,
		Format:          FormatJSON,
	}
	a, err := first.Summarize(context.Background(), params)
	require.NoError(t, err)
	b, err := second.Summarize(context.Background(), params)
	require.NoError(t, err)

	aOut, err := a.Render(FormatJSON)
	require.NoError(t, err)
	bOut, err := b.Render(FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, aOut, bOut)
}

func TestSummarizeFilters(t *testing.T) {
	t.Parallel()

	nodes := []graph.Node{
		fnNode("A", "src/a.go"),
		fnNode("T", "tests/t.go"),
	}
	edges := []graph.Edge{{From: "A", To: "T", Type: graph.EdgeCalls}}

	t.Run("default excludes drop test files", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t, nodes, edges)
		sum, err := e.Summarize(context.Background(), Params{Seeds: []string{"A"}, Radius: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, sum.KeptIDs())
	})

	t.Run("empty exclude list disables the defaults", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t, nodes, edges)
		sum, err := e.Summarize(context.Background(), Params{
			Seeds: []string{"A"}, Radius: 1, ExcludeFilters: []string{},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "T"}, sum.KeptIDs())
	})

	t.Run("seeds are exempt from filters", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t, nodes, edges)
		sum, err := e.Summarize(context.Background(), Params{Seeds: []string{"T"}, Radius: 0})
		require.NoError(t, err)
		assert.Contains(t, sum.KeptIDs(), "T")
	})

	t.Run("include filters restrict candidates", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t, nodes, edges)
		sum, err := e.Summarize(context.Background(), Params{
			Seeds:          []string{"A"},
			Radius:         1,
			IncludeFilters: []string{"src/**"},
			ExcludeFilters: []string{},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, sum.KeptIDs())
	})
}

func TestSummarizeConfigTuning(t *testing.T) {
	t.Parallel()

	nodes := []graph.Node{
		fnNode("A", "src/a.go"),
		fnNode("L", "lib/l.go"),
		fnNode("T", "tests/t.go"),
	}
	edges := []graph.Edge{
		{From: "A", To: "L", Type: graph.EdgeCalls},
		{From: "A", To: "T", Type: graph.EdgeCalls},
	}

	t.Run("configured default excludes replace the built-ins", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Summary.DefaultExcludes = []string{"lib/**"}
		e, err := New(nodes, edges, WithConfig(cfg))
		require.NoError(t, err)
		t.Cleanup(e.Close)

		sum, err := e.Summarize(context.Background(), Params{Seeds: []string{"A"}, Radius: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "T"}, sum.KeptIDs())
	})

	t.Run("min char budget rejects too-small requests", func(t *testing.T) {
		t.Parallel()
		cfg := config.Default()
		cfg.Summary.MinCharBudget = 4000
		e, err := New(nodes, edges, WithConfig(cfg))
		require.NoError(t, err)
		t.Cleanup(e.Close)

		// 999 tokens estimate to 3996 chars, one short of the minimum.
		_, err = e.Summarize(context.Background(), Params{Seeds: []string{"A"}, BudgetTokens: 999})
		assert.True(t, IsKind(err, ErrBudgetTooSmall), "got %v", err)

		_, err = e.Summarize(context.Background(), Params{Seeds: []string{"A"}, BudgetTokens: 1000})
		assert.NoError(t, err)
	})
}

func TestSummarizeErrors(t *testing.T) {
	t.Parallel()

	nodes, edges := chainGraph()
	e := newEngine(t, nodes, edges)

	t.Run("radius beyond the hard cap", func(t *testing.T) {
		t.Parallel()
		_, err := e.Summarize(context.Background(), Params{Seeds: []string{"A"}, Radius: 3})
		assert.True(t, IsKind(err, ErrRadiusTooLarge), "got %v", err)
	})

	t.Run("negative budget", func(t *testing.T) {
		t.Parallel()
		_, err := e.Summarize(context.Background(), Params{Seeds: []string{"A"}, BudgetTokens: -1})
		assert.True(t, IsKind(err, ErrBudgetTooSmall), "got %v", err)
	})

	t.Run("malformed filter glob", func(t *testing.T) {
		t.Parallel()
		_, err := e.Summarize(context.Background(), Params{
			Seeds: []string{"A"}, IncludeFilters: []string{"["},
		})
		assert.True(t, IsKind(err, ErrInvalidFilter), "got %v", err)
	})

	t.Run("no valid seeds", func(t *testing.T) {
		t.Parallel()
		_, err := e.Summarize(context.Background(), Params{Seeds: []string{"ghost"}})
		assert.True(t, IsKind(err, ErrNoSeeds), "got %v", err)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := e.Summarize(ctx, Params{Seeds: []string{"A"}})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRenderDOTIsBounded(t *testing.T) {
	t.Parallel()

	nodes, edges := chainGraph()
	e := newEngine(t, nodes, edges)

	sum, err := e.Summarize(context.Background(), Params{
		Seeds: []string{"A"}, Radius: 1, Format: FormatDOT,
	})
	require.NoError(t, err)

	dot, err := sum.Render(FormatDOT)
	require.NoError(t, err)
	assert.Contains(t, dot, `"A"`)
	assert.Contains(t, dot, `"B"`)
	assert.NotContains(t, dot, `"C"`)
	assert.NotContains(t, dot, `"D"`)
}

func TestDrillDowns(t *testing.T) {
	t.Parallel()

	nodes, edges := chainGraph()
	e := newEngine(t, nodes, edges)

	t.Run("node details", func(t *testing.T) {
		t.Parallel()
		details, err := e.NodeDetails("B")
		require.NoError(t, err)
		assert.Equal(t, "B", details.Node.ID)
		assert.Equal(t, 2, details.Degree)
		assert.Greater(t, details.PRScore, 0.0)
		assert.True(t, details.Critical)

		_, err = e.NodeDetails("ghost")
		assert.Error(t, err)
	})

	t.Run("paths between nodes", func(t *testing.T) {
		t.Parallel()
		paths, err := e.Paths("A", "C", 5, 5)
		require.NoError(t, err)
		require.Len(t, paths, 1)
		assert.Equal(t, []string{"A", "B", "C"}, paths[0])

		none, err := e.Paths("D", "A", 5, 5)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("expand respects the radius cap", func(t *testing.T) {
		t.Parallel()
		exp, err := e.Expand("B", 1)
		require.NoError(t, err)
		require.Len(t, exp.Nodes, 3)
		assert.Len(t, exp.Edges, 2)

		_, err = e.Expand("B", MaxRadius+1)
		assert.True(t, IsKind(err, ErrRadiusTooLarge), "got %v", err)
	})

	t.Run("top nodes by metric", func(t *testing.T) {
		t.Parallel()
		byRank, err := e.TopNodes("pagerank", 2)
		require.NoError(t, err)
		require.Len(t, byRank, 2)
		assert.Equal(t, "D", byRank[0].NodeID)

		byDegree, err := e.TopNodes("degree", 2)
		require.NoError(t, err)
		assert.Equal(t, 2.0, byDegree[0].PRScore)

		_, err = e.TopNodes("betweenness", 2)
		assert.Error(t, err)
	})

	t.Run("impact", func(t *testing.T) {
		t.Parallel()
		scope, _, err := e.Impact([]string{"D"}, 0)
		require.NoError(t, err)
		require.NotEmpty(t, scope.DirectImpacts)
		assert.Equal(t, "C", scope.DirectImpacts[0].ID)

		_, _, err = e.Impact([]string{"ghost"}, 0)
		assert.True(t, IsKind(err, ErrNoSeeds), "got %v", err)
	})
}
