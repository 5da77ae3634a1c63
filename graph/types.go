package graph

import "fmt"

// NodeType represents the kind of code entity a node stands for.
type NodeType string

const (
	NodeFunction NodeType = "function"
	NodeClass    NodeType = "class"
	NodeModule   NodeType = "module"
	NodeFile     NodeType = "file"
)

// Node represents a code entity in the dependency graph.
//
// IDs are stable string keys assigned by the upstream structural analyzer,
// e.g. "func:src/app.go::Run", "file:src/app.go", "class:Server",
// "mod:net/http". They are unique within a snapshot and never mutated.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"node_type"`
	Name     string   `json:"name"`               // bare entity name, e.g. "Run"
	Label    string   `json:"label"`              // display string; derived from Name/Type when empty
	FilePath string   `json:"file_path,omitempty"`
	Language string   `json:"language,omitempty"`
}

// DisplayLabel returns the node's display string, deriving one from the
// name and type when the upstream analyzer did not supply a label.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	switch n.Type {
	case NodeFunction:
		return fmt.Sprintf("fn %s()", n.Name)
	case NodeClass:
		return fmt.Sprintf("class %s", n.Name)
	case NodeModule:
		return fmt.Sprintf("mod %s", n.Name)
	case NodeFile:
		return fmt.Sprintf("file %s", n.FilePath)
	default:
		return n.ID
	}
}

// EdgeType represents the type of relationship between two nodes.
type EdgeType string

const (
	EdgeCalls      EdgeType = "calls"
	EdgeImports    EdgeType = "imports"
	EdgeInherits   EdgeType = "inherits"
	EdgeImplements EdgeType = "implements"
	EdgeUses       EdgeType = "uses"
	EdgeReferences EdgeType = "references"
)

// EdgeTypes lists all edge types in a fixed order, used wherever
// deterministic iteration over per-type indexes is required.
var EdgeTypes = []EdgeType{
	EdgeCalls, EdgeImports, EdgeInherits, EdgeImplements, EdgeUses, EdgeReferences,
}

// Edge is a directed, typed, weighted relationship between two nodes.
// Multiple edges between the same pair are permitted as long as their
// types differ; identical (from, to, type) tuples are merged at build time
// by summing weight.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`
	// Weight must be positive. The zero value is indistinguishable from
	// an unset weight, so zero and negative weights are treated as unset
	// and coerced to 1.0 at build time.
	Weight float64 `json:"weight"`
}

// Direction selects which adjacency index a neighbor query reads.
type Direction int

const (
	// Outgoing follows edges from the queried node to its targets.
	Outgoing Direction = iota
	// Incoming follows edges pointing at the queried node.
	Incoming
)
