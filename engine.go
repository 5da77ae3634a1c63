// Package codescope turns a source-code dependency graph and a set of seed
// nodes into a token-budget-bounded summary: the most central nodes around
// the seeds, their community structure, representative call paths, and the
// blast radius of a change. Snapshots and centrality scores are computed
// once and cached; each summarization request reads from them.
package codescope

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/nehcuh/codescope/centrality"
	"github.com/nehcuh/codescope/community"
	"github.com/nehcuh/codescope/config"
	"github.com/nehcuh/codescope/graph"
	"github.com/nehcuh/codescope/impact"
)

// Engine answers summarization and drill-down queries against one graph
// snapshot. It is safe for concurrent use.
type Engine struct {
	snap  *graph.Snapshot
	cache *centrality.Cache
	cfg   *config.Config

	// Full-graph community membership, computed on first use.
	communityOnce sync.Once
	communities   []community.Community
	membership    map[string]string
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithConfig overrides the default engine configuration.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithCentralityCache shares a centrality cache across engines, useful when
// one process serves multiple snapshots of the same repository.
func WithCentralityCache(c *centrality.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// New builds a snapshot from the supplied nodes and edges and returns an
// engine over it. Edges referencing unknown nodes are dropped and counted,
// never fatal.
func New(nodes []graph.Node, edges []graph.Edge, opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg == nil {
		e.cfg = config.Default()
	}
	if err := config.Validate(e.cfg); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}

	snap, err := graph.Build(nodes, edges)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph snapshot: %w", err)
	}
	e.snap = snap

	if e.cache == nil {
		cache, err := centrality.NewCache(e.cfg.Centrality.CacheCapacity, centrality.Options{
			Damping:       e.cfg.Centrality.Damping,
			MaxIterations: e.cfg.Centrality.MaxIterations,
			Tolerance:     e.cfg.Centrality.Tolerance,
			CycleCap:      e.cfg.Centrality.CycleCap,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build centrality cache: %w", err)
		}
		e.cache = cache
	}

	log.Printf("codescope: engine ready (build=%s nodes=%d edges=%d dropped=%d)",
		snap.BuildID(), snap.NodeCount(), snap.EdgeCount(), snap.DroppedEdges())
	return e, nil
}

// Snapshot exposes the underlying graph snapshot for read-only inspection.
func (e *Engine) Snapshot() *graph.Snapshot { return e.snap }

// Close releases the centrality cache.
func (e *Engine) Close() { e.cache.Close() }

// Summarize runs the full pipeline: seed resolution, candidate selection,
// optional community detection and path sampling, then budget degradation.
// Errors stemming from caller input are *Error values; see ErrorKind.
func (e *Engine) Summarize(ctx context.Context, p Params) (*GraphSummary, error) {
	p = p.withDefaults(e.cfg)
	if err := p.validate(e.cfg); err != nil {
		return nil, err
	}
	fs, err := compileFilters(p)
	if err != nil {
		return nil, err
	}
	seeds, err := e.resolveSeeds(p.Seeds)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scores := e.cache.GetOrCompute(e.snap)

	state := &buildState{
		radius:       p.Radius,
		topK:         p.TopK,
		pathSamples:  p.PathSamples,
		pathMaxHops:  p.PathMaxHops,
		seedsPreview: e.cfg.Summary.SeedsPreviewMax,
	}
	if !p.WithPaths {
		// Keeps the path ladder steps from firing on output they cannot
		// shrink.
		state.pathSamples = 0
		state.pathMaxHops = 0
	}

	rebuild := func(st *buildState) *GraphSummary {
		return e.buildSummary(seeds, fs, scores, p, st)
	}
	rebuildPaths := func(st *buildState, sum *GraphSummary) {
		if !p.WithPaths {
			return
		}
		kept := make(map[string]bool, len(sum.keptIDs))
		for _, id := range sum.keptIDs {
			kept[id] = true
		}
		sum.PathExamples = samplePaths(e.snap, scores, seeds, kept, st.pathSamples, st.pathMaxHops)
	}
	render := func(sum *GraphSummary) string {
		out, rerr := sum.Render(p.Format)
		if rerr != nil {
			return ""
		}
		return out
	}

	sum, truncated := degrade(state, p.BudgetTokens, rebuild, rebuildPaths, render)
	sum.Truncated = truncated
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if truncated {
		log.Printf("codescope: summary degraded to fit budget (build=%s budget=%d radius=%d top_k=%d)",
			e.snap.BuildID(), p.BudgetTokens, state.radius, state.topK)
	}
	return sum, nil
}

// buildSummary runs selection, community detection, and path sampling for
// one effective parameter set.
func (e *Engine) buildSummary(seeds []string, fs *filterSet, scores *centrality.Scores, p Params, st *buildState) *GraphSummary {
	sel := selectCandidates(e.snap, scores, seeds, fs, p.Scope, st.radius, st.topK)
	kept := sel.keptSet()

	sum := &GraphSummary{
		GraphStats: GraphStats{
			NodeCount:          e.snap.NodeCount(),
			EdgeCount:          e.snap.EdgeCount(),
			AvgDegree:          e.snap.AvgDegree(),
			CyclesCount:        scores.CyclesCount,
			CriticalNodesCount: len(scores.CriticalNodes),
		},
		KeptNodes: len(sel.kept),
		Radius:    st.radius,
		TopNodes:  sel.ranked,
		snap:      e.snap,
		keptIDs:   sel.kept,
	}

	preview := append([]string(nil), seeds...)
	sort.Strings(preview)
	if len(preview) > st.seedsPreview {
		preview = preview[:st.seedsPreview]
	}
	sum.SeedsPreview = preview

	if p.WithCommunities {
		communities, membership := community.Detect(e.snap, kept, scores.PageRank)
		sum.Communities = communities
		sum.CommunityEdges = community.AggregateEdges(e.snap, kept, membership)
		if st.maxCommunities > 0 {
			truncateCommunities(sum, st.maxCommunities)
		}
	}
	if p.WithPaths {
		sum.PathExamples = samplePaths(e.snap, scores, seeds, kept, st.pathSamples, st.pathMaxHops)
	}
	return sum
}

// resolveSeeds deduplicates the requested seeds and drops ids missing from
// the graph. An empty result is a hard no_seeds error rather than a silent
// fallback: a summary anchored on nothing would be misleading.
func (e *Engine) resolveSeeds(requested []string) ([]string, error) {
	seen := make(map[string]bool, len(requested))
	var seeds []string
	for _, id := range requested {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := e.snap.Node(id); ok {
			seeds = append(seeds, id)
		}
	}
	if len(seeds) == 0 {
		return nil, newError(ErrNoSeeds, "none of the %d requested seed ids exist in the graph", len(requested))
	}
	sort.Strings(seeds)
	return seeds, nil
}

// NodeDetails returns a node together with its scores and adjacent edges.
func (e *Engine) NodeDetails(id string) (*NodeDetails, error) {
	n, ok := e.snap.Node(id)
	if !ok {
		return nil, fmt.Errorf("node %q not found", id)
	}
	scores := e.cache.GetOrCompute(e.snap)
	_, membership := e.fullCommunities()
	return &NodeDetails{
		Node:      *n,
		PRScore:   scores.PageRank[id],
		Degree:    e.snap.Degree(id),
		OnCycle:   scores.OnCycle[id],
		Critical:  scores.IsCritical(id),
		Outgoing:  e.snap.Neighbors(id, nil, graph.Outgoing),
		Incoming:  e.snap.Neighbors(id, nil, graph.Incoming),
		Community: membership[id],
	}, nil
}

// Paths enumerates up to limit simple Calls paths from src to dst, bounded
// by maxHops, shortest first.
func (e *Engine) Paths(src, dst string, limit, maxHops int) ([][]string, error) {
	if _, ok := e.snap.Node(src); !ok {
		return nil, fmt.Errorf("node %q not found", src)
	}
	if _, ok := e.snap.Node(dst); !ok {
		return nil, fmt.Errorf("node %q not found", dst)
	}
	if limit < 1 || maxHops < 1 {
		return nil, nil
	}

	var paths [][]string
	var walk func(cur string, path []string, visited map[string]bool)
	walk = func(cur string, path []string, visited map[string]bool) {
		if len(paths) >= limit {
			return
		}
		if cur == dst && len(path) > 1 {
			paths = append(paths, append([]string(nil), path...))
			return
		}
		if len(path) > maxHops {
			return
		}
		for _, edge := range e.snap.Neighbors(cur, []graph.EdgeType{graph.EdgeCalls}, graph.Outgoing) {
			if visited[edge.To] {
				continue
			}
			visited[edge.To] = true
			walk(edge.To, append(path, edge.To), visited)
			delete(visited, edge.To)
		}
	}
	walk(src, []string{src}, map[string]bool{src: true})
	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) < len(paths[j])
		}
		return joinIDs(paths[i]) < joinIDs(paths[j])
	})
	return paths, nil
}

func joinIDs(path []string) string {
	out := ""
	for i, id := range path {
		if i > 0 {
			out += "/"
		}
		out += id
	}
	return out
}

// Community returns a full-graph community by id (the id is the label node
// id label propagation converged on).
func (e *Engine) Community(id string) (*community.Community, error) {
	communities, _ := e.fullCommunities()
	for i := range communities {
		if communities[i].ID == id {
			return &communities[i], nil
		}
	}
	return nil, fmt.Errorf("community %q not found", id)
}

// Expansion is the neighborhood around one node.
type Expansion struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// Expand returns the undirected neighborhood of a node up to radius hops,
// subject to the same hard cap as summarization.
func (e *Engine) Expand(id string, radius int) (*Expansion, error) {
	if _, ok := e.snap.Node(id); !ok {
		return nil, fmt.Errorf("node %q not found", id)
	}
	if radius < 0 || radius > MaxRadius {
		return nil, newError(ErrRadiusTooLarge, "radius %d exceeds hard cap %d", radius, MaxRadius)
	}

	ids := bfs(e.snap, []string{id}, radius)
	sort.Strings(ids)
	keep := make(map[string]bool, len(ids))
	exp := &Expansion{Nodes: make([]graph.Node, 0, len(ids))}
	for _, nid := range ids {
		keep[nid] = true
		if n, ok := e.snap.Node(nid); ok {
			exp.Nodes = append(exp.Nodes, *n)
		}
	}
	exp.Edges = e.snap.Induced(keep)
	return exp, nil
}

// TopNodes lists the k best nodes by the given metric ("pagerank" or
// "degree"), ties broken by id.
func (e *Engine) TopNodes(metric string, k int) ([]RankedNode, error) {
	scores := e.cache.GetOrCompute(e.snap)

	var scoreOf func(id string) float64
	switch metric {
	case "pagerank":
		scoreOf = func(id string) float64 { return scores.PageRank[id] }
	case "degree":
		scoreOf = func(id string) float64 { return float64(scores.Degree[id]) }
	default:
		return nil, fmt.Errorf("unknown metric %q (want pagerank or degree)", metric)
	}

	ids := e.snap.IDs()
	ranked := make([]RankedNode, 0, len(ids))
	for _, id := range ids {
		ranked = append(ranked, RankedNode{NodeID: id, PRScore: scoreOf(id)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].PRScore != ranked[j].PRScore {
			return ranked[i].PRScore > ranked[j].PRScore
		}
		return ranked[i].NodeID < ranked[j].NodeID
	})
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// Impact propagates a change from the given nodes and reports the blast
// radius plus any cascade effects through critical nodes. A maxDepth of
// zero or less uses the configured default.
func (e *Engine) Impact(changed []string, maxDepth int) (*impact.Scope, []impact.CascadeEffect, error) {
	exists := false
	for _, id := range changed {
		if _, ok := e.snap.Node(id); ok {
			exists = true
			break
		}
	}
	if !exists {
		return nil, nil, newError(ErrNoSeeds, "none of the %d changed node ids exist in the graph", len(changed))
	}

	opts := impact.DefaultOptions()
	opts.Decay = e.cfg.Impact.Decay
	opts.Floor = e.cfg.Impact.Floor
	opts.MaxDepth = e.cfg.Impact.MaxDepth
	if maxDepth > 0 {
		opts.MaxDepth = maxDepth
	}

	scores := e.cache.GetOrCompute(e.snap)
	scope, cascades := impact.Propagate(e.snap, scores, changed, opts)
	return scope, cascades, nil
}

// fullCommunities lazily computes label-propagation communities over the
// whole graph for drill-down queries.
func (e *Engine) fullCommunities() ([]community.Community, map[string]string) {
	e.communityOnce.Do(func() {
		scores := e.cache.GetOrCompute(e.snap)
		all := make(map[string]bool, e.snap.NodeCount())
		for _, id := range e.snap.IDs() {
			all[id] = true
		}
		e.communities, e.membership = community.Detect(e.snap, all, scores.PageRank)
	})
	return e.communities, e.membership
}
