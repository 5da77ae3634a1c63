// Package community partitions an induced subgraph into communities using a
// deterministic variant of label propagation, and aggregates the edges that
// cross community boundaries.
package community

import (
	"sort"

	"github.com/nehcuh/codescope/graph"
)

// MaxIterations caps label propagation rounds; small graphs converge in a
// handful of iterations.
const MaxIterations = 20

// SampleSize is how many representative member labels a community carries.
const SampleSize = 5

// Community is a detected cluster of nodes in the kept subgraph.
type Community struct {
	// ID is the surviving propagation label, itself a member node ID.
	ID string `json:"id"`
	// Size is the number of member nodes.
	Size int `json:"size"`
	// Samples holds up to SampleSize member display labels, highest
	// PageRank first.
	Samples []string `json:"samples"`
	// Members lists all member node IDs, sorted ascending.
	Members []string `json:"-"`
}

// Edge aggregates all induced-subgraph edges crossing from one community to
// another, all edge types collapsed.
type Edge struct {
	Src       string  `json:"src"`
	Dst       string  `json:"dst"`
	Count     int     `json:"edges"`
	WeightSum float64 `json:"weight_sum"`
}

// Detect partitions the subgraph induced by kept into communities.
//
// Every node starts labeled with its own ID. Each round is synchronous: all
// nodes adopt the most frequent label among their undirected neighbors as of
// the previous round, ties broken by lowest label. Rounds stop at a fixpoint
// or after MaxIterations. Identical inputs always produce identical
// partitions.
//
// The returned membership map assigns every kept node to exactly one
// community ID. Communities are ordered by descending size, ties by ID.
func Detect(snap *graph.Snapshot, kept map[string]bool, pageRank map[string]float64) ([]Community, map[string]string) {
	ids := make([]string, 0, len(kept))
	for id := range kept {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Undirected neighbor lists within the induced subgraph.
	neighbors := make(map[string][]string, len(ids))
	for _, e := range snap.Induced(kept) {
		if e.From == e.To {
			continue
		}
		neighbors[e.From] = append(neighbors[e.From], e.To)
		neighbors[e.To] = append(neighbors[e.To], e.From)
	}

	labels := make(map[string]string, len(ids))
	for _, id := range ids {
		labels[id] = id
	}

	for iter := 0; iter < MaxIterations; iter++ {
		next := make(map[string]string, len(labels))
		changed := false
		for _, id := range ids {
			best := dominantLabel(neighbors[id], labels)
			if best == "" {
				best = labels[id]
			}
			next[id] = best
			if best != labels[id] {
				changed = true
			}
		}
		labels = next
		if !changed {
			break
		}
	}

	buckets := make(map[string][]string)
	for _, id := range ids {
		buckets[labels[id]] = append(buckets[labels[id]], id)
	}

	communities := make([]Community, 0, len(buckets))
	for label, members := range buckets {
		sort.Strings(members)
		communities = append(communities, Community{
			ID:      label,
			Size:    len(members),
			Samples: sampleLabels(snap, members, pageRank),
			Members: members,
		})
	}
	sort.Slice(communities, func(i, j int) bool {
		if communities[i].Size != communities[j].Size {
			return communities[i].Size > communities[j].Size
		}
		return communities[i].ID < communities[j].ID
	})

	return communities, labels
}

// dominantLabel returns the most frequent label among the given neighbor
// nodes, ties broken by lowest label. Empty when there are no neighbors.
func dominantLabel(neigh []string, labels map[string]string) string {
	if len(neigh) == 0 {
		return ""
	}
	freq := make(map[string]int, len(neigh))
	for _, n := range neigh {
		freq[labels[n]]++
	}
	best := ""
	bestCount := 0
	for label, count := range freq {
		if count > bestCount || (count == bestCount && label < best) {
			best = label
			bestCount = count
		}
	}
	return best
}

// sampleLabels picks up to SampleSize member display labels, highest
// PageRank first, ties by node ID.
func sampleLabels(snap *graph.Snapshot, members []string, pageRank map[string]float64) []string {
	ranked := make([]string, len(members))
	copy(ranked, members)
	sort.Slice(ranked, func(i, j int) bool {
		pi, pj := pageRank[ranked[i]], pageRank[ranked[j]]
		if pi != pj {
			return pi > pj
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > SampleSize {
		ranked = ranked[:SampleSize]
	}
	out := make([]string, 0, len(ranked))
	for _, id := range ranked {
		if n, ok := snap.Node(id); ok {
			out = append(out, n.DisplayLabel())
		}
	}
	return out
}

// AggregateEdges collapses all induced-subgraph edges that cross community
// boundaries into per-(src, dst) totals, ordered by descending edge count,
// ties by (src, dst).
func AggregateEdges(snap *graph.Snapshot, kept map[string]bool, membership map[string]string) []Edge {
	type pair struct{ src, dst string }
	totals := make(map[pair]*Edge)
	for _, e := range snap.Induced(kept) {
		src, dst := membership[e.From], membership[e.To]
		if src == dst {
			continue
		}
		key := pair{src, dst}
		agg := totals[key]
		if agg == nil {
			agg = &Edge{Src: src, Dst: dst}
			totals[key] = agg
		}
		agg.Count++
		agg.WeightSum += e.Weight
	}

	out := make([]Edge, 0, len(totals))
	for _, agg := range totals {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Src != out[j].Src {
			return out[i].Src < out[j].Src
		}
		return out[i].Dst < out[j].Dst
	})
	return out
}
