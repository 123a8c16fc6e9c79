package nodes

import (
	"fmt"

	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// ConstNode publishes a configured constant on value.
type ConstNode struct {
	Value ir.IRValue
	Type  graph.PortType
}

func newConst(typ graph.PortType) func(cfg ir.IRObject) (graph.Behavior, error) {
	return func(cfg ir.IRObject) (graph.Behavior, error) {
		v, ok := cfg["value"]
		if !ok {
			return nil, fmt.Errorf("value is required")
		}
		var valid bool
		switch typ {
		case graph.TypeInt:
			_, valid = v.(ir.IRInt)
		case graph.TypeBool:
			_, valid = v.(ir.IRBool)
		case graph.TypeString:
			_, valid = v.(ir.IRString)
		}
		if !valid {
			return nil, fmt.Errorf("value must be of type %s", typ)
		}
		return ConstNode{Value: v, Type: typ}, nil
	}
}

// Ports implements graph.Behavior.
func (n ConstNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outport("value", n.Type)}
}

// Evaluate implements flow.DataBehavior.
func (n ConstNode) Evaluate(ec *flow.ExecContext) error {
	return ec.SetOutput("value", n.Value)
}

// PayloadNode reads one field of the run payload.
//
// Config: field (string, required).
type PayloadNode struct {
	Field string
}

func newPayload(cfg ir.IRObject) (graph.Behavior, error) {
	field, err := requireString(cfg, "field")
	if err != nil {
		return nil, err
	}
	return PayloadNode{Field: field}, nil
}

// Ports implements graph.Behavior.
func (PayloadNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outport("value", graph.TypeAny)}
}

// Evaluate implements flow.DataBehavior.
func (n PayloadNode) Evaluate(ec *flow.ExecContext) error {
	v, ok := ec.Payload[n.Field]
	if !ok || ir.IsNull(v) {
		return ec.Defect(graph.DefectMissingInput, "payload has no field %q", n.Field)
	}
	return ec.SetOutput("value", v)
}

// SelfNode publishes the id of the owner the ability is bound to.
type SelfNode struct{}

func newSelf(ir.IRObject) (graph.Behavior, error) { return SelfNode{}, nil }

// Ports implements graph.Behavior.
func (SelfNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.Outport("owner", graph.TypeOwner)}
}

// Evaluate implements flow.DataBehavior.
func (SelfNode) Evaluate(ec *flow.ExecContext) error {
	h, err := hostOf(ec)
	if err != nil {
		return err
	}
	id := h.Self()
	if id == 0 {
		return ec.Defect(graph.DefectMissingInput, "ability is not bound to an owner")
	}
	return ec.SetOutput("owner", ir.IRInt(id))
}

// StatNode reads a stat of an owner: value is CurrentValue, base is
// CurrentBase.
//
// Config: stat (string, required).
type StatNode struct {
	Stat string
}

func newStatRead(cfg ir.IRObject) (graph.Behavior, error) {
	name, err := requireString(cfg, "stat")
	if err != nil {
		return nil, err
	}
	return StatNode{Stat: name}, nil
}

// Ports implements graph.Behavior.
func (StatNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.Inport("owner", graph.TypeOwner),
		graph.Outport("value", graph.TypeInt),
		graph.Outport("base", graph.TypeInt),
	}
}

// Evaluate implements flow.DataBehavior.
func (n StatNode) Evaluate(ec *flow.ExecContext) error {
	h, err := hostOf(ec)
	if err != nil {
		return err
	}
	o, err := inputOwner(ec, h, "owner")
	if err != nil {
		return err
	}
	id, err := resolveStat(ec, h, n.Stat)
	if err != nil {
		return err
	}
	s := o.GetStat(id)
	if s == nil {
		return ec.Defect(graph.DefectEvaluationFailed, "owner %d has no stat %s", o.ID(), n.Stat)
	}
	if err := ec.SetOutput("value", ir.IRInt(s.CurrentValue)); err != nil {
		return err
	}
	return ec.SetOutput("base", ir.IRInt(s.CurrentBase))
}
