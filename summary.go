package codescope

import (
	"github.com/nehcuh/codescope/community"
	"github.com/nehcuh/codescope/graph"
)

// GraphStats summarizes whole-graph shape metrics.
type GraphStats struct {
	NodeCount          int     `json:"node_count"`
	EdgeCount          int     `json:"edge_count"`
	AvgDegree          float64 `json:"avg_degree"`
	CyclesCount        int     `json:"cycles_count"`
	CriticalNodesCount int     `json:"critical_nodes_count"`
}

// RankedNode pairs a node id with its PageRank score.
type RankedNode struct {
	NodeID  string  `json:"node_id"`
	PRScore float64 `json:"pr_score"`
}

// GraphSummary is the budget-bounded summarization result.
type GraphSummary struct {
	GraphStats   GraphStats   `json:"graph_stats"`
	SeedsPreview []string     `json:"seeds_preview"`
	TopNodes     []RankedNode `json:"top_nodes"`
	KeptNodes    int          `json:"kept_nodes"`
	// Radius is the effective expansion depth after degradation.
	Radius int `json:"radius"`
	// Truncated is true iff the budget forced any parameter below its
	// requested value.
	Truncated bool `json:"truncated"`

	Communities    []community.Community `json:"communities,omitempty"`
	CommunityEdges []community.Edge      `json:"community_edges,omitempty"`
	PathExamples   [][]string            `json:"path_examples,omitempty"`

	// Rendering state, retained so the summary can be re-rendered in any
	// format without another summarize run.
	snap    *graph.Snapshot
	keptIDs []string
}

// KeptIDs returns the retained node ids, sorted.
func (s *GraphSummary) KeptIDs() []string {
	return append([]string(nil), s.keptIDs...)
}

// NodeDetails describes a single node together with its local connectivity,
// returned by Engine.NodeDetails.
type NodeDetails struct {
	Node      graph.Node   `json:"node"`
	PRScore   float64      `json:"pr_score"`
	Degree    int          `json:"degree"`
	OnCycle   bool         `json:"on_cycle"`
	Critical  bool         `json:"critical"`
	Outgoing  []graph.Edge `json:"outgoing"`
	Incoming  []graph.Edge `json:"incoming"`
	Community string       `json:"community,omitempty"`
}
