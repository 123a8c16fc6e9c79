package graph

import (
	"sort"

	"github.com/roach88/flexi/internal/ir"
)

// Behavior is the variant-specific part of a node.
//
// The graph only needs the port declarations; execution capabilities are
// discovered by the interpreter through further interfaces.
type Behavior interface {
	Ports() []PortSpec
}

// Node is one element of a graph.
type Node struct {
	ID       int
	Type     string
	Position ir.Vec2
	Config   ir.IRObject
	Behavior Behavior

	ports map[string]PortID
	order []PortID
	flow  bool
}

// IsFlow reports whether the node participates in control flow, i.e. owns at
// least one flow port. Nodes without flow ports are data nodes evaluated on
// demand.
func (n *Node) IsFlow() bool { return n.flow }

// PortID looks up a port by its current name.
func (n *Node) PortID(name string) (PortID, bool) {
	id, ok := n.ports[name]
	return id, ok
}

// PortIDs returns the node's ports in declaration order.
func (n *Node) PortIDs() []PortID {
	out := make([]PortID, len(n.order))
	copy(out, n.order)
	return out
}

// Graph is a named set of nodes and the connections between their ports.
//
// A Graph is built once by the factory and treated as read-only afterwards;
// mutable run state lives in interpreter frames, never here.
type Graph struct {
	Name string
	Kind ir.GraphKind

	nodes    map[int]*Node
	ports    []*Port
	conns    []Connection
	entry    int
	hasEntry bool
}

// New creates an empty graph.
func New(name string, kind ir.GraphKind) *Graph {
	return &Graph{
		Name:  name,
		Kind:  kind,
		nodes: make(map[int]*Node),
	}
}

func (g *Graph) defect(code DefectCode, nodeID int, port, format string, args ...any) *Defect {
	d := NewDefect(code, nodeID, port, format, args...)
	d.Graph = g.Name
	return d
}

// AddNode creates a node with the ports declared by b.
//
// A duplicate id is rejected with DUPLICATE_NODE and the graph is unchanged,
// as is the reserved id NoNode.
// A duplicate port name inside b's declarations is reported as DUPLICATE_PORT;
// the node is still added with the first declaration of that name.
func (g *Graph) AddNode(id int, typeName string, b Behavior) (*Node, error) {
	if id == NoNode {
		return nil, g.defect(DefectDuplicateNode, NoNode, "", "node id %d is reserved", id)
	}
	if _, exists := g.nodes[id]; exists {
		return nil, g.defect(DefectDuplicateNode, id, "", "node id %d already exists", id)
	}
	n := &Node{
		ID:       id,
		Type:     typeName,
		Behavior: b,
		Config:   ir.IRObject{},
		ports:    make(map[string]PortID),
	}
	g.nodes[id] = n

	var firstErr error
	if b != nil {
		for _, spec := range b.Ports() {
			if _, err := g.AddPort(id, spec); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return n, firstErr
}

// AddPort attaches a new port to an existing node.
func (g *Graph) AddPort(nodeID int, spec PortSpec) (PortID, error) {
	n, ok := g.nodes[nodeID]
	if !ok {
		return 0, g.defect(DefectMissingNode, nodeID, spec.Name, "node %d does not exist", nodeID)
	}
	if _, dup := n.ports[spec.Name]; dup {
		return 0, g.defect(DefectDuplicatePort, nodeID, spec.Name, "port %q already declared on node %d", spec.Name, nodeID)
	}
	id := PortID(len(g.ports))
	g.ports = append(g.ports, &Port{
		id:   id,
		node: nodeID,
		name: spec.Name,
		typ:  spec.Type,
		dir:  spec.Dir,
	})
	n.ports[spec.Name] = id
	n.order = append(n.order, id)
	if spec.Type == TypeFlow {
		n.flow = true
	}
	return id, nil
}

// Node returns the node with id, or nil.
func (g *Graph) Node(id int) *Node {
	return g.nodes[id]
}

// Nodes returns every node ordered by id.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Port returns the port with id, or nil when out of range.
func (g *Graph) Port(id PortID) *Port {
	if id < 0 || int(id) >= len(g.ports) {
		return nil
	}
	return g.ports[id]
}

// PortOf returns the named port of a node, or nil.
func (g *Graph) PortOf(nodeID int, name string) *Port {
	n := g.nodes[nodeID]
	if n == nil {
		return nil
	}
	id, ok := n.ports[name]
	if !ok {
		return nil
	}
	return g.ports[id]
}

// Connect joins an outport to an inport.
//
// The graph is left unchanged when the call fails. Failures:
//   - MISSING_NODE / MISSING_PORT when either end does not exist
//   - INVALID_CONNECTION when directions or types are incompatible
//   - DUPLICATE_TARGET when the inport already has a source
func (g *Graph) Connect(fromNode int, fromPort string, toNode int, toPort string) error {
	if g.nodes[fromNode] == nil {
		return g.defect(DefectMissingNode, fromNode, fromPort, "source node %d does not exist", fromNode)
	}
	if g.nodes[toNode] == nil {
		return g.defect(DefectMissingNode, toNode, toPort, "target node %d does not exist", toNode)
	}
	src := g.PortOf(fromNode, fromPort)
	if src == nil {
		return g.defect(DefectMissingPort, fromNode, fromPort, "node %d has no port %q", fromNode, fromPort)
	}
	dst := g.PortOf(toNode, toPort)
	if dst == nil {
		return g.defect(DefectMissingPort, toNode, toPort, "node %d has no port %q", toNode, toPort)
	}
	return g.ConnectPorts(src.id, dst.id)
}

// ConnectPorts is Connect addressed by port ids.
func (g *Graph) ConnectPorts(from, to PortID) error {
	src, dst := g.Port(from), g.Port(to)
	if src == nil || dst == nil {
		return g.defect(DefectMissingPort, 0, "", "port id out of range")
	}
	if src.dir != Out || dst.dir != In {
		return g.defect(DefectInvalidConnection, src.node, src.name,
			"connection must run from an outport to an inport (%d.%s -> %d.%s)", src.node, src.name, dst.node, dst.name)
	}
	if !src.typ.CompatibleWith(dst.typ) {
		return g.defect(DefectInvalidConnection, dst.node, dst.name,
			"incompatible port types %s -> %s", src.typ, dst.typ)
	}
	if len(dst.conns) > 0 {
		return g.defect(DefectDuplicateTarget, dst.node, dst.name,
			"inport already connected to node %d", g.ports[dst.conns[0]].node)
	}
	src.conns = append(src.conns, dst.id)
	dst.conns = append(dst.conns, src.id)
	g.conns = append(g.conns, Connection{From: src.id, To: dst.id})
	return nil
}

// Connections returns every connection in the order they were made.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, len(g.conns))
	copy(out, g.conns)
	return out
}

// Source returns the outport feeding an inport, if any.
func (g *Graph) Source(in PortID) (*Port, bool) {
	p := g.Port(in)
	if p == nil || p.dir != In || len(p.conns) == 0 {
		return nil, false
	}
	return g.ports[p.conns[0]], true
}

// RenamePort renames a port in place. Connections follow the port because
// they reference it by id.
//
// Renaming to a name already used on the same node fails with RENAME_CONFLICT
// and leaves the node unchanged.
func (g *Graph) RenamePort(nodeID int, oldName, newName string) error {
	n := g.nodes[nodeID]
	if n == nil {
		return g.defect(DefectMissingNode, nodeID, oldName, "node %d does not exist", nodeID)
	}
	id, ok := n.ports[oldName]
	if !ok {
		return g.defect(DefectMissingPort, nodeID, oldName, "node %d has no port %q", nodeID, oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, taken := n.ports[newName]; taken {
		return g.defect(DefectRenameConflict, nodeID, oldName, "port %q already exists on node %d", newName, nodeID)
	}
	delete(n.ports, oldName)
	n.ports[newName] = id
	g.ports[id].name = newName
	return nil
}

// SetEntry designates the node where runs start.
// The entry must exist and must not have a Previous.
func (g *Graph) SetEntry(nodeID int) error {
	n := g.nodes[nodeID]
	if n == nil {
		return g.defect(DefectMissingEntry, nodeID, "", "entry node %d does not exist", nodeID)
	}
	if g.Previous(nodeID) != nil {
		return g.defect(DefectInvalidEntry, nodeID, "", "entry node %d has a previous node", nodeID)
	}
	g.entry = nodeID
	g.hasEntry = true
	return nil
}

// Entry returns the entry node, or nil when unset.
func (g *Graph) Entry() *Node {
	if !g.hasEntry {
		return nil
	}
	return g.nodes[g.entry]
}

// Previous returns the node whose flow outport feeds nodeID's "previous"
// inport, or nil.
func (g *Graph) Previous(nodeID int) *Node {
	p := g.PortOf(nodeID, PortPrevious)
	if p == nil {
		return nil
	}
	src, ok := g.Source(p.id)
	if !ok {
		return nil
	}
	return g.nodes[src.node]
}

// Next returns the successor reached through the "next" outport.
func (g *Graph) Next(nodeID int) *Node {
	return g.NextVia(nodeID, PortNext)
}

// NextVia returns the first node connected to the named flow outport, or nil.
func (g *Graph) NextVia(nodeID int, outport string) *Node {
	p := g.PortOf(nodeID, outport)
	if p == nil || p.dir != Out || p.typ != TypeFlow || len(p.conns) == 0 {
		return nil
	}
	return g.nodes[g.ports[p.conns[0]].node]
}

// Stats summarizes a graph for logs and CLI output.
type Stats struct {
	Nodes       int
	FlowNodes   int
	Ports       int
	Connections int
}

// Stats counts the graph's elements.
func (g *Graph) Stats() Stats {
	s := Stats{Nodes: len(g.nodes), Ports: len(g.ports), Connections: len(g.conns)}
	for _, n := range g.nodes {
		if n.flow {
			s.FlowNodes++
		}
	}
	return s
}
