package ir

// GraphKind distinguishes runnable ability graphs from callable macro graphs.
type GraphKind string

const (
	// KindAbility is a graph with a designated entry node.
	KindAbility GraphKind = "ability"
	// KindMacro is a subgraph entered through its GraphInputNode.
	KindMacro GraphKind = "macro"
)

// GraphDescription is the structural description of one graph, as produced by
// asset loading (here: the CUE compiler) and consumed by the factory.
//
// Descriptions are plain data. Nothing in a description is trusted: the
// factory resolves every type identifier and every port reference, recording
// a defect for each one it cannot resolve.
type GraphDescription struct {
	Name  string     `json:"name"`
	Kind  GraphKind  `json:"kind"`
	Nodes []NodeDesc `json:"nodes"`
	Edges []EdgeDesc `json:"edges"`
}

// NodeDesc describes one node: a stable id, a type identifier resolved through
// the factory registry, and per-node configuration.
type NodeDesc struct {
	ID       int      `json:"id"`
	Type     string   `json:"type"`
	Position Vec2     `json:"position"`
	Config   IRObject `json:"config,omitempty"`
}

// Vec2 is an authoring position. Presentation-only; execution ignores it.
type Vec2 struct {
	X int64 `json:"x"`
	Y int64 `json:"y"`
}

// EdgeDesc references an outport (FromNode, FromPort) and an inport (ToNode, ToPort).
type EdgeDesc struct {
	FromNode int    `json:"from_node"`
	FromPort string `json:"from_port"`
	ToNode   int    `json:"to_node"`
	ToPort   string `json:"to_port"`
}

// TypeNames returns the distinct type identifiers used by the description in
// first-seen order.
func (d GraphDescription) TypeNames() []string {
	seen := make(map[string]bool, len(d.Nodes))
	var names []string
	for _, n := range d.Nodes {
		if seen[n.Type] {
			continue
		}
		seen[n.Type] = true
		names = append(names, n.Type)
	}
	return names
}

// toCanonical converts the description into an IRObject for hashing.
// Node positions are excluded: they are cosmetic and must not change identity.
func (d GraphDescription) toCanonical() IRObject {
	nodes := make(IRArray, len(d.Nodes))
	for i, n := range d.Nodes {
		cfg := n.Config
		if cfg == nil {
			cfg = IRObject{}
		}
		nodes[i] = IRObject{
			"id":     IRInt(n.ID),
			"type":   IRString(n.Type),
			"config": cfg,
		}
	}

	edges := make(IRArray, len(d.Edges))
	for i, e := range d.Edges {
		edges[i] = IRObject{
			"from_node": IRInt(e.FromNode),
			"from_port": IRString(e.FromPort),
			"to_node":   IRInt(e.ToNode),
			"to_port":   IRString(e.ToPort),
		}
	}

	return IRObject{
		"name":  IRString(d.Name),
		"kind":  IRString(string(d.Kind)),
		"nodes": nodes,
		"edges": edges,
	}
}
