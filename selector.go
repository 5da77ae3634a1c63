package codescope

import (
	"sort"

	"github.com/nehcuh/codescope/centrality"
	"github.com/nehcuh/codescope/graph"
)

// selection is the outcome of candidate expansion and Top-K ranking.
type selection struct {
	// kept are the retained node ids, sorted.
	kept []string
	// ranked are the kept nodes ordered by PageRank descending, ids
	// ascending on ties.
	ranked []RankedNode
}

func (s *selection) keptSet() map[string]bool {
	set := make(map[string]bool, len(s.kept))
	for _, id := range s.kept {
		set[id] = true
	}
	return set
}

// selectCandidates expands the seeds per the scope, applies the filters
// (seeds are exempt), and keeps seeds plus the topK-|seeds| best-ranked
// candidates.
func selectCandidates(snap *graph.Snapshot, scores *centrality.Scores, seeds []string, fs *filterSet, scope Scope, radius, topK int) *selection {
	seedSet := make(map[string]bool, len(seeds))
	for _, id := range seeds {
		seedSet[id] = true
	}

	candidates := expand(snap, seeds, seedSet, scope, radius)

	// Seeds survive filtering unconditionally.
	filtered := candidates[:0]
	for _, id := range candidates {
		if seedSet[id] {
			filtered = append(filtered, id)
			continue
		}
		if n, ok := snap.Node(id); ok && fs.admits(n) {
			filtered = append(filtered, id)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		pi, pj := scores.PageRank[filtered[i]], scores.PageRank[filtered[j]]
		if pi != pj {
			return pi > pj
		}
		return filtered[i] < filtered[j]
	})

	kept := make([]string, 0, len(seeds))
	kept = append(kept, seeds...)
	if extra := topK - len(seeds); extra > 0 {
		for _, id := range filtered {
			if extra == 0 {
				break
			}
			if !seedSet[id] {
				kept = append(kept, id)
				extra--
			}
		}
	}

	sel := &selection{kept: kept}
	sel.ranked = make([]RankedNode, 0, len(kept))
	for _, id := range kept {
		sel.ranked = append(sel.ranked, RankedNode{NodeID: id, PRScore: scores.PageRank[id]})
	}
	sort.Slice(sel.ranked, func(i, j int) bool {
		if sel.ranked[i].PRScore != sel.ranked[j].PRScore {
			return sel.ranked[i].PRScore > sel.ranked[j].PRScore
		}
		return sel.ranked[i].NodeID < sel.ranked[j].NodeID
	})
	sort.Strings(sel.kept)
	return sel
}

// expand produces the candidate id set for the requested scope.
func expand(snap *graph.Snapshot, seeds []string, seedSet map[string]bool, scope Scope, radius int) []string {
	switch scope {
	case ScopeSeedOnly:
		return append([]string(nil), seeds...)
	case ScopeFull:
		return snap.IDs()
	case ScopeModule:
		paths := make(map[string]bool)
		for _, id := range seeds {
			if n, ok := snap.Node(id); ok && n.FilePath != "" {
				paths[n.FilePath] = true
			}
		}
		var out []string
		for _, id := range snap.IDs() {
			n, _ := snap.Node(id)
			if seedSet[id] || (n != nil && paths[n.FilePath] && n.FilePath != "") {
				out = append(out, id)
			}
		}
		return out
	default: // ScopeCommunity
		return bfs(snap, seeds, radius)
	}
}

// bfs walks undirected (both edge directions, all edge types) from all
// seeds simultaneously up to radius hops, returning every visited id.
func bfs(snap *graph.Snapshot, seeds []string, radius int) []string {
	type item struct {
		id    string
		depth int
	}
	visited := make(map[string]bool, len(seeds))
	queue := make([]item, 0, len(seeds))
	var out []string
	for _, id := range seeds {
		if !visited[id] {
			visited[id] = true
			out = append(out, id)
			queue = append(queue, item{id, 0})
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= radius {
			continue
		}
		for _, next := range snap.UndirectedNeighbors(cur.id) {
			if !visited[next] {
				visited[next] = true
				out = append(out, next)
				queue = append(queue, item{next, cur.depth + 1})
			}
		}
	}
	return out
}
