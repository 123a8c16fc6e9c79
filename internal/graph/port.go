package graph

// PortType is the declared value type of a port.
type PortType string

const (
	TypeFlow   PortType = "flow"
	TypeAny    PortType = "any"
	TypeInt    PortType = "int"
	TypeBool   PortType = "bool"
	TypeString PortType = "string"
	TypeOwner  PortType = "owner"
)

// CompatibleWith reports whether a connection between ports of type t and o is
// well-typed. Flow ports only connect to flow ports; TypeAny accepts any
// data type.
func (t PortType) CompatibleWith(o PortType) bool {
	if t == TypeFlow || o == TypeFlow {
		return t == o
	}
	return t == o || t == TypeAny || o == TypeAny
}

// Direction tells inports from outports.
type Direction int

const (
	// In ports receive a value (or, for flow ports, the upstream node).
	In Direction = iota + 1
	// Out ports send a value (or, for flow ports, select the successor).
	Out
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	default:
		return "unknown"
	}
}

// Well-known flow port names.
const (
	PortPrevious = "previous"
	PortNext     = "next"
)

// PortID indexes a port in its graph's arena.
type PortID int

// PortSpec declares a port a node variant exposes.
type PortSpec struct {
	Name string
	Type PortType
	Dir  Direction
}

// Inport declares an input port.
func Inport(name string, typ PortType) PortSpec {
	return PortSpec{Name: name, Type: typ, Dir: In}
}

// Outport declares an output port.
func Outport(name string, typ PortType) PortSpec {
	return PortSpec{Name: name, Type: typ, Dir: Out}
}

// FlowIn declares the standard upstream flow port.
func FlowIn() PortSpec {
	return Inport(PortPrevious, TypeFlow)
}

// FlowOut declares a flow output. Branching nodes declare several.
func FlowOut(name string) PortSpec {
	return Outport(name, TypeFlow)
}

// Port is a typed, named attachment point owned by exactly one node.
type Port struct {
	id    PortID
	node  int
	name  string
	typ   PortType
	dir   Direction
	conns []PortID
}

// ID returns the arena index of the port.
func (p *Port) ID() PortID { return p.id }

// NodeID returns the id of the owning node.
func (p *Port) NodeID() int { return p.node }

// Name returns the current port name.
func (p *Port) Name() string { return p.name }

// Type returns the declared value type.
func (p *Port) Type() PortType { return p.typ }

// Direction returns In or Out.
func (p *Port) Direction() Direction { return p.dir }

// IsInport reports whether the port receives.
func (p *Port) IsInport() bool { return p.dir == In }

// Connections returns the ids of connected ports on the far side.
// An inport has zero or one; an outport has zero or more, in connection order.
func (p *Port) Connections() []PortID {
	out := make([]PortID, len(p.conns))
	copy(out, p.conns)
	return out
}

// Connection is a directed, type-checked edge from an outport to an inport.
type Connection struct {
	From PortID
	To   PortID
}
