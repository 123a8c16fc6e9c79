package testutil

import "github.com/roach88/flexi/internal/ir"

// Desc builds graph descriptions in tests without CUE.
//
//	d := testutil.Ability("hello").
//		Node(1, "entry.start", nil).
//		Node(2, "flow.log", ir.Obj(ir.O("text", ir.IRString("Hello")))).
//		Flow(1, 2).
//		Build()
type Desc struct {
	d ir.GraphDescription
}

// Ability starts an ability description.
func Ability(name string) *Desc {
	return &Desc{d: ir.GraphDescription{Name: name, Kind: ir.KindAbility}}
}

// Macro starts a macro description.
func Macro(name string) *Desc {
	return &Desc{d: ir.GraphDescription{Name: name, Kind: ir.KindMacro}}
}

// Node adds a node. A nil config is stored as an empty object.
func (b *Desc) Node(id int, typ string, cfg ir.IRObject) *Desc {
	if cfg == nil {
		cfg = ir.IRObject{}
	}
	b.d.Nodes = append(b.d.Nodes, ir.NodeDesc{ID: id, Type: typ, Config: cfg})
	return b
}

// Flow connects from's "next" outport to to's "previous" inport.
func (b *Desc) Flow(from, to int) *Desc {
	return b.FlowVia(from, "next", to)
}

// FlowVia connects a named flow outport to to's "previous" inport.
func (b *Desc) FlowVia(from int, port string, to int) *Desc {
	return b.Edge(from, port, to, "previous")
}

// Edge adds an arbitrary edge.
func (b *Desc) Edge(from int, fromPort string, to int, toPort string) *Desc {
	b.d.Edges = append(b.d.Edges, ir.EdgeDesc{FromNode: from, FromPort: fromPort, ToNode: to, ToPort: toPort})
	return b
}

// Build returns the description.
func (b *Desc) Build() ir.GraphDescription {
	return b.d
}

// Text is shorthand for a config holding a single string field.
func Text(key, value string) ir.IRObject {
	return ir.Obj(ir.O(key, ir.IRString(value)))
}

// Int is shorthand for a config holding a single int field.
func Int(key string, value int64) ir.IRObject {
	return ir.Obj(ir.O(key, ir.IRInt(value)))
}
