package codescope

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nehcuh/codescope/graph"
)

// Render serializes the summary in the given format. FormatDOT renders only
// the kept induced subgraph, never the full graph the summary was built
// from.
func (s *GraphSummary) Render(format Format) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to serialize summary: %w", err)
		}
		return string(data), nil
	case FormatDOT:
		return s.renderDOT(), nil
	case FormatSummary:
		return s.renderText(), nil
	default:
		return "", newError(ErrInvalidFilter, "unknown format %q", format)
	}
}

func (s *GraphSummary) renderText() string {
	var b strings.Builder
	b.WriteString("Graph Summary\n")
	fmt.Fprintf(&b, "nodes: %d, edges: %d, avg_degree: %.2f, cycles: %d, critical: %d\n",
		s.GraphStats.NodeCount, s.GraphStats.EdgeCount, s.GraphStats.AvgDegree,
		s.GraphStats.CyclesCount, s.GraphStats.CriticalNodesCount)
	fmt.Fprintf(&b, "seeds_preview: %s\n", strings.Join(s.SeedsPreview, ", "))
	fmt.Fprintf(&b, "kept_nodes (radius=%d): %d\n", s.Radius, s.KeptNodes)
	if s.Truncated {
		b.WriteString("truncated: true\n")
	}

	b.WriteString("top_nodes (by PageRank):\n")
	for i, n := range s.TopNodes {
		if i >= 10 {
			break
		}
		label := n.NodeID
		if node, ok := s.snap.Node(n.NodeID); ok {
			label = node.DisplayLabel()
		}
		fmt.Fprintf(&b, "  %d. %s (pr=%.5f)\n", i+1, label, n.PRScore)
	}

	if len(s.Communities) > 0 {
		b.WriteString("\ncommunities (labelprop):\n")
		for i, c := range s.Communities {
			fmt.Fprintf(&b, "  C%02d [%s] size=%d samples: %s\n",
				i+1, c.ID, c.Size, strings.Join(c.Samples, ", "))
		}
		if len(s.CommunityEdges) > 0 {
			b.WriteString("  cross-community edges (top):\n")
			for i, e := range s.CommunityEdges {
				if i >= 20 {
					break
				}
				fmt.Fprintf(&b, "    %s -> %s: edges=%d w_sum=%.2f\n",
					e.Src, e.Dst, e.Count, e.WeightSum)
			}
		}
	}

	if len(s.PathExamples) > 0 {
		b.WriteString("\npath examples (Calls, sampled):\n")
		for i, path := range s.PathExamples {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "  P%02d: %s\n", i+1, strings.Join(path, " -> "))
		}
	}
	return b.String()
}

// renderDOT emits the kept induced subgraph as Graphviz DOT. Nodes and
// edges are emitted in sorted order so repeated calls produce identical
// text.
func (s *GraphSummary) renderDOT() string {
	kept := make(map[string]bool, len(s.keptIDs))
	for _, id := range s.keptIDs {
		kept[id] = true
	}

	var b strings.Builder
	b.WriteString("digraph G {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\"];\n")

	for _, id := range s.keptIDs {
		node, ok := s.snap.Node(id)
		if !ok {
			continue
		}
		shape, fill := dotStyle(node.Type)
		fmt.Fprintf(&b, "  %q [shape=%q, style=\"filled\", fillcolor=%q, label=%q];\n",
			id, shape, fill, node.DisplayLabel())
	}

	edges := s.snap.Induced(kept)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].Type < edges[j].Type
	})
	for _, e := range edges {
		fmt.Fprintf(&b, "  %q -> %q [color=%q, label=%q];\n",
			e.From, e.To, dotEdgeColor(e.Type), string(e.Type))
	}

	b.WriteString("}\n")
	return b.String()
}

func dotStyle(t graph.NodeType) (shape, fill string) {
	switch t {
	case graph.NodeFunction:
		return "ellipse", "#8ecae6"
	case graph.NodeClass:
		return "box", "#ffb703"
	case graph.NodeModule:
		return "folder", "#219ebc"
	default:
		return "note", "#adb5bd"
	}
}

func dotEdgeColor(t graph.EdgeType) string {
	switch t {
	case graph.EdgeCalls:
		return "#1b4332"
	case graph.EdgeImports:
		return "#6c757d"
	case graph.EdgeInherits:
		return "#4a4e69"
	case graph.EdgeImplements:
		return "#2a9d8f"
	case graph.EdgeUses:
		return "#264653"
	default:
		return "#8d99ae"
	}
}
