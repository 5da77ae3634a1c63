// Package centrality computes full-graph node metrics: PageRank, degree,
// cycle membership and critical (articulation) nodes. Results are computed
// once per snapshot and shared across summarization requests via Cache.
package centrality

import (
	"log"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/nehcuh/codescope/graph"
)

// Options tunes the centrality computation.
type Options struct {
	Damping       float64 // PageRank damping factor
	MaxIterations int     // PageRank iteration cap
	Tolerance     float64 // PageRank L1 convergence threshold
	CycleCap      int     // max elementary cycles to enumerate
}

// DefaultOptions returns the standard tuning: damping 0.85, 100 iterations,
// L1 tolerance 1e-6, at most 100 enumerated cycles.
func DefaultOptions() Options {
	return Options{
		Damping:       0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
		CycleCap:      100,
	}
}

// Scores holds per-snapshot centrality results. Immutable once computed.
type Scores struct {
	// PageRank scores per node; sums to 1.0 over all nodes within
	// floating-point tolerance.
	PageRank map[string]float64
	// Degree is total degree (in + out, all edge types) per node.
	Degree map[string]int
	// OnCycle marks nodes that lie on at least one detected cycle in the
	// Calls/Imports subgraph.
	OnCycle map[string]bool
	// CyclesCount is the number of distinct elementary cycles found, capped
	// by Options.CycleCap to bound cost on dense graphs.
	CyclesCount int
	// CriticalNodes are articulation points of the undirected graph view,
	// sorted ascending. May be empty for small or well-connected graphs.
	CriticalNodes []string
}

// IsCritical reports whether id is among the critical nodes.
func (s *Scores) IsCritical(id string) bool {
	i := sort.SearchStrings(s.CriticalNodes, id)
	return i < len(s.CriticalNodes) && s.CriticalNodes[i] == id
}

// Compute runs the full centrality pass over a snapshot.
func Compute(snap *graph.Snapshot, opts Options) *Scores {
	scores := &Scores{
		PageRank: pageRank(snap, opts),
		Degree:   make(map[string]int, snap.NodeCount()),
		OnCycle:  make(map[string]bool),
	}
	for _, id := range snap.IDs() {
		scores.Degree[id] = snap.Degree(id)
	}
	scores.CyclesCount = detectCycles(snap, opts.CycleCap, scores.OnCycle)
	scores.CriticalNodes = articulationPoints(snap)
	return scores
}

// pageRank runs standard power iteration: uniform 1/N start, dangling mass
// redistributed uniformly, stop when the L1 delta drops below the tolerance
// or the iteration cap is reached. Deterministic for a fixed snapshot
// because nodes are processed in sorted-ID order.
func pageRank(snap *graph.Snapshot, opts Options) map[string]float64 {
	ids := snap.IDs()
	n := len(ids)
	if n == 0 {
		return map[string]float64{}
	}

	index := make(map[string]int, n)
	for i, id := range ids {
		index[id] = i
	}
	outWeight := make([]float64, n)
	for i, id := range ids {
		outWeight[i] = snap.OutWeight(id)
	}

	cur := make([]float64, n)
	next := make([]float64, n)
	for i := range cur {
		cur[i] = 1.0 / float64(n)
	}

	converged := false
	for iter := 0; iter < opts.MaxIterations; iter++ {
		// Dangling nodes donate their full rank uniformly.
		var danglingMass float64
		for i := range cur {
			if outWeight[i] == 0 {
				danglingMass += cur[i]
			}
		}

		base := (1-opts.Damping)/float64(n) + opts.Damping*danglingMass/float64(n)
		for i := range next {
			next[i] = base
		}
		for i, id := range ids {
			if outWeight[i] == 0 {
				continue
			}
			share := opts.Damping * cur[i] / outWeight[i]
			for _, e := range snap.Neighbors(id, nil, graph.Outgoing) {
				next[index[e.To]] += share * e.Weight
			}
		}

		delta := floats.Distance(next, cur, 1)
		cur, next = next, cur
		if delta < opts.Tolerance {
			converged = true
			break
		}
	}
	if !converged {
		// Best-effort scores after the cap are used; not an error.
		log.Printf("centrality: pagerank did not converge within %d iterations (snapshot %s)",
			opts.MaxIterations, snap.Hash())
	}

	// Guard against drift: renormalize so the scores sum to 1.
	if total := floats.Sum(cur); total > 0 {
		floats.Scale(1/total, cur)
	}

	out := make(map[string]float64, n)
	for i, id := range ids {
		out[id] = cur[i]
	}
	return out
}

// cycleEdgeTypes is the subgraph cycles are detected over.
var cycleEdgeTypes = []graph.EdgeType{graph.EdgeCalls, graph.EdgeImports}

// detectCycles finds elementary cycles via DFS back-edge detection over the
// Calls/Imports subgraph, marking every node on a found cycle. Enumeration
// stops at limit.
func detectCycles(snap *graph.Snapshot, limit int, onCycle map[string]bool) int {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string
	count := 0

	var dfs func(id string)
	dfs = func(id string) {
		if count >= limit {
			return
		}
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, e := range snap.Neighbors(id, cycleEdgeTypes, graph.Outgoing) {
			if count >= limit {
				break
			}
			if !visited[e.To] {
				dfs(e.To)
			} else if onStack[e.To] {
				count++
				for i := len(path) - 1; i >= 0; i-- {
					onCycle[path[i]] = true
					if path[i] == e.To {
						break
					}
				}
			}
		}

		path = path[:len(path)-1]
		onStack[id] = false
	}

	for _, id := range snap.IDs() {
		if !visited[id] {
			dfs(id)
		}
	}
	return count
}

// articulationPoints returns nodes whose removal disconnects at least one
// otherwise-reachable pair, computed with Tarjan low-link over the
// undirected view of the graph.
func articulationPoints(snap *graph.Snapshot) []string {
	ids := snap.IDs()
	disc := make(map[string]int, len(ids))
	low := make(map[string]int, len(ids))
	isCut := make(map[string]bool)
	timer := 0

	var dfs func(id, parent string)
	dfs = func(id, parent string) {
		timer++
		disc[id] = timer
		low[id] = timer
		children := 0

		for _, next := range snap.UndirectedNeighbors(id) {
			if next == parent {
				continue
			}
			if _, seen := disc[next]; seen {
				if disc[next] < low[id] {
					low[id] = disc[next]
				}
				continue
			}
			children++
			dfs(next, id)
			if low[next] < low[id] {
				low[id] = low[next]
			}
			if parent != "" && low[next] >= disc[id] {
				isCut[id] = true
			}
		}
		if parent == "" && children > 1 {
			isCut[id] = true
		}
	}

	for _, id := range ids {
		if _, seen := disc[id]; !seen {
			dfs(id, "")
		}
	}

	out := make([]string, 0, len(isCut))
	for id := range isCut {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
