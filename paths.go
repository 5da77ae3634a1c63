package codescope

import (
	"sort"

	"github.com/nehcuh/codescope/centrality"
	"github.com/nehcuh/codescope/graph"
)

// samplePaths produces representative call paths from function-typed seeds
// over the kept Calls-only subgraph. Per seed it walks greedily: at each
// step it follows the unvisited successor with the highest PageRank score,
// ties by node id. Paths shorter than two nodes are discarded. Output
// entries are display labels.
func samplePaths(snap *graph.Snapshot, scores *centrality.Scores, seeds []string, kept map[string]bool, samples, maxHops int) [][]string {
	if samples <= 0 || maxHops < 1 {
		return nil
	}

	// Calls-only successors restricted to the kept set.
	successors := make(map[string][]string)
	for _, e := range snap.Edges() {
		if e.Type == graph.EdgeCalls && kept[e.From] && kept[e.To] {
			successors[e.From] = append(successors[e.From], e.To)
		}
	}
	for id := range successors {
		succ := successors[id]
		sort.Slice(succ, func(i, j int) bool {
			pi, pj := scores.PageRank[succ[i]], scores.PageRank[succ[j]]
			if pi != pj {
				return pi > pj
			}
			return succ[i] < succ[j]
		})
	}

	ordered := append([]string(nil), seeds...)
	sort.Strings(ordered)

	var paths [][]string
	for _, seed := range ordered {
		if len(paths) >= samples {
			break
		}
		n, ok := snap.Node(seed)
		if !ok || n.Type != graph.NodeFunction {
			continue
		}
		path := greedyWalk(successors, seed, maxHops)
		if len(path) < 2 {
			continue
		}
		labels := make([]string, 0, len(path))
		for _, id := range path {
			if pn, ok := snap.Node(id); ok {
				labels = append(labels, pn.DisplayLabel())
			} else {
				labels = append(labels, id)
			}
		}
		paths = append(paths, labels)
	}
	return paths
}

// greedyWalk follows the best-ranked unvisited successor until maxHops is
// reached or no successor remains.
func greedyWalk(successors map[string][]string, start string, maxHops int) []string {
	visited := map[string]bool{start: true}
	path := []string{start}
	cur := start
	for hops := 0; hops < maxHops; hops++ {
		next := ""
		for _, candidate := range successors[cur] {
			if !visited[candidate] {
				next = candidate
				break
			}
		}
		if next == "" {
			break
		}
		visited[next] = true
		path = append(path, next)
		cur = next
	}
	return path
}
