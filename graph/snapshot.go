package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"

	dgraph "github.com/dominikbraun/graph"
	"github.com/google/uuid"
)

// Snapshot is an immutable dependency graph built once per scan session.
// Concurrent summarization requests share a snapshot read-only; a new scan
// produces a new snapshot rather than mutating this one.
type Snapshot struct {
	g     dgraph.Graph[string, *Node]
	nodes map[string]*Node
	ids   []string // node IDs sorted ascending
	edges []Edge   // deduplicated, sorted by (from, to, type)

	// Adjacency indexes per edge type. Rebuilt wholesale on construction,
	// never patched; edge slices are sorted for deterministic traversal.
	forward map[EdgeType]map[string][]Edge
	reverse map[EdgeType]map[string][]Edge

	// Undirected connectivity view derived from the library's adjacency
	// and predecessor maps, neighbor lists sorted ascending.
	undirected map[string][]string

	droppedEdges int
	hash         string
	buildID      string
}

// Build constructs a snapshot from upstream node and edge lists.
//
// Edges referencing unknown node IDs are dropped and counted; identical
// (from, to, type) tuples are merged by summing their weights. Edge weights
// default to 1.0 when non-positive.
func Build(nodes []Node, edges []Edge) (*Snapshot, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("graph: cannot build snapshot with no nodes")
	}

	s := &Snapshot{
		g:       dgraph.New(func(n *Node) string { return n.ID }, dgraph.Directed()),
		nodes:   make(map[string]*Node, len(nodes)),
		forward: make(map[EdgeType]map[string][]Edge),
		reverse: make(map[EdgeType]map[string][]Edge),
		buildID: uuid.NewString(),
	}

	for i := range nodes {
		n := nodes[i]
		if n.Label == "" {
			n.Label = n.DisplayLabel()
		}
		if _, exists := s.nodes[n.ID]; exists {
			log.Printf("[WARN] duplicate node ID %q, keeping first occurrence", n.ID)
			continue
		}
		s.nodes[n.ID] = &n
		s.ids = append(s.ids, n.ID)
		// AddVertex only fails on duplicates, which the map above already rules out.
		_ = s.g.AddVertex(&n)
	}
	sort.Strings(s.ids)

	// Merge duplicate (from, to, type) tuples, dropping edges whose
	// endpoints are unknown.
	merged := make(map[[3]string]float64)
	for _, e := range edges {
		if _, ok := s.nodes[e.From]; !ok {
			s.droppedEdges++
			continue
		}
		if _, ok := s.nodes[e.To]; !ok {
			s.droppedEdges++
			continue
		}
		w := e.Weight
		if w <= 0 {
			w = 1.0
		}
		merged[[3]string{e.From, e.To, string(e.Type)}] += w
	}
	if s.droppedEdges > 0 {
		log.Printf("graph: dropped %d edges with unknown endpoints", s.droppedEdges)
	}

	s.edges = make([]Edge, 0, len(merged))
	for key, w := range merged {
		s.edges = append(s.edges, Edge{From: key[0], To: key[1], Type: EdgeType(key[2]), Weight: w})
	}
	sort.Slice(s.edges, func(i, j int) bool {
		a, b := s.edges[i], s.edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Type < b.Type
	})

	for _, e := range s.edges {
		fwd := s.forward[e.Type]
		if fwd == nil {
			fwd = make(map[string][]Edge)
			s.forward[e.Type] = fwd
		}
		rev := s.reverse[e.Type]
		if rev == nil {
			rev = make(map[string][]Edge)
			s.reverse[e.Type] = rev
		}
		fwd[e.From] = append(fwd[e.From], e)
		rev[e.To] = append(rev[e.To], e)
		// Parallel typed edges collapse to one connectivity edge here; the
		// typed indexes above remain the source of truth.
		_ = s.g.AddEdge(e.From, e.To)
	}

	if err := s.buildUndirected(); err != nil {
		return nil, err
	}

	s.hash = contentHash(s.ids, s.edges)
	return s, nil
}

// buildUndirected merges the graph store's adjacency and predecessor maps
// into one undirected neighbor index, self-loops excluded.
func (s *Snapshot) buildUndirected() error {
	adj, err := s.g.AdjacencyMap()
	if err != nil {
		return fmt.Errorf("graph: adjacency map: %w", err)
	}
	pred, err := s.g.PredecessorMap()
	if err != nil {
		return fmt.Errorf("graph: predecessor map: %w", err)
	}

	s.undirected = make(map[string][]string, len(s.ids))
	for _, id := range s.ids {
		seen := make(map[string]bool)
		var neighbors []string
		for next := range adj[id] {
			if next != id && !seen[next] {
				seen[next] = true
				neighbors = append(neighbors, next)
			}
		}
		for next := range pred[id] {
			if next != id && !seen[next] {
				seen[next] = true
				neighbors = append(neighbors, next)
			}
		}
		if len(neighbors) > 0 {
			sort.Strings(neighbors)
			s.undirected[id] = neighbors
		}
	}
	return nil
}

// Node returns the node with the given ID, if present.
func (s *Snapshot) Node(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// IDs returns all node IDs sorted ascending. Callers must not mutate the
// returned slice.
func (s *Snapshot) IDs() []string { return s.ids }

// Edges returns all deduplicated edges sorted by (from, to, type).
// Callers must not mutate the returned slice.
func (s *Snapshot) Edges() []Edge { return s.edges }

// Neighbors returns the edges adjacent to id in the given direction,
// restricted to the given edge types (nil means all types). Results are
// ordered deterministically.
func (s *Snapshot) Neighbors(id string, types []EdgeType, dir Direction) []Edge {
	if types == nil {
		types = EdgeTypes
	}
	index := s.forward
	if dir == Incoming {
		index = s.reverse
	}
	var out []Edge
	for _, t := range types {
		if byNode := index[t]; byNode != nil {
			out = append(out, byNode[id]...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Type < b.Type
	})
	return out
}

// UndirectedNeighbors returns the distinct nodes adjacent to id in either
// direction, any edge type, sorted ascending. Callers must not mutate the
// returned slice.
func (s *Snapshot) UndirectedNeighbors(id string) []string {
	return s.undirected[id]
}

// Degree returns the total degree (in + out, all edge types) of a node.
func (s *Snapshot) Degree(id string) int {
	total := 0
	for _, t := range EdgeTypes {
		if byNode := s.forward[t]; byNode != nil {
			total += len(byNode[id])
		}
		if byNode := s.reverse[t]; byNode != nil {
			total += len(byNode[id])
		}
	}
	return total
}

// OutWeight returns the summed weight of all outgoing edges of a node.
func (s *Snapshot) OutWeight(id string) float64 {
	var total float64
	for _, t := range EdgeTypes {
		if byNode := s.forward[t]; byNode != nil {
			for _, e := range byNode[id] {
				total += e.Weight
			}
		}
	}
	return total
}

// Induced returns the edges of the subgraph induced by keep: every edge
// whose endpoints are both in the set. Order follows Edges().
func (s *Snapshot) Induced(keep map[string]bool) []Edge {
	var out []Edge
	for _, e := range s.edges {
		if keep[e.From] && keep[e.To] {
			out = append(out, e)
		}
	}
	return out
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int { return len(s.ids) }

// EdgeCount returns the number of deduplicated edges.
func (s *Snapshot) EdgeCount() int { return len(s.edges) }

// AvgDegree returns the average (undirected) degree.
func (s *Snapshot) AvgDegree() float64 {
	if len(s.ids) == 0 {
		return 0
	}
	return float64(2*len(s.edges)) / float64(len(s.ids))
}

// DroppedEdges returns how many input edges were rejected at build time
// because an endpoint was unknown.
func (s *Snapshot) DroppedEdges() int { return s.droppedEdges }

// Hash returns the content hash identifying this snapshot. Two snapshots
// built from the same node and edge sets share a hash, which keys the
// centrality cache.
func (s *Snapshot) Hash() string { return s.hash }

// BuildID returns a unique ID for this particular build, used to correlate
// log lines across concurrent requests.
func (s *Snapshot) BuildID() string { return s.buildID }

// contentHash hashes the sorted node IDs and edge tuples.
func contentHash(ids []string, edges []Edge) string {
	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	for _, e := range edges {
		fmt.Fprintf(h, "%s|%s|%s|%.6f\n", e.From, e.To, e.Type, e.Weight)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
