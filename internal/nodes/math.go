package nodes

import (
	"fmt"

	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/stats"
)

// ArithNode combines operands a and b. Each operand comes from its inport
// when connected and from the config key of the same name otherwise.
type ArithNode struct {
	op func(a, b int64) int64
}

func newArith(op func(a, b int64) int64) func(cfg ir.IRObject) (graph.Behavior, error) {
	return func(cfg ir.IRObject) (graph.Behavior, error) {
		for _, key := range []string{"a", "b"} {
			if _, _, err := optionalInt(cfg, key); err != nil {
				return nil, err
			}
		}
		return ArithNode{op: op}, nil
	}
}

// Ports implements graph.Behavior.
func (ArithNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.Inport("a", graph.TypeInt),
		graph.Inport("b", graph.TypeInt),
		graph.Outport("value", graph.TypeInt),
	}
}

// Evaluate implements flow.DataBehavior.
func (n ArithNode) Evaluate(ec *flow.ExecContext) error {
	a, err := operand(ec, "a")
	if err != nil {
		return err
	}
	b, err := operand(ec, "b")
	if err != nil {
		return err
	}
	return ec.SetOutput("value", ir.IRInt(n.op(a, b)))
}

// CompareNode compares operands a and b.
//
// Config: cmp (one of < <= == != >= >), optional a and b.
type CompareNode struct {
	Cmp stats.Comparator
}

func newCompare(cfg ir.IRObject) (graph.Behavior, error) {
	s, err := requireString(cfg, "cmp")
	if err != nil {
		return nil, err
	}
	cmp := stats.Comparator(s)
	if !cmp.Valid() {
		return nil, fmt.Errorf("unknown comparator %q", s)
	}
	return CompareNode{Cmp: cmp}, nil
}

// Ports implements graph.Behavior.
func (CompareNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.Inport("a", graph.TypeInt),
		graph.Inport("b", graph.TypeInt),
		graph.Outport("value", graph.TypeBool),
	}
}

// Evaluate implements flow.DataBehavior.
func (n CompareNode) Evaluate(ec *flow.ExecContext) error {
	a, err := operand(ec, "a")
	if err != nil {
		return err
	}
	b, err := operand(ec, "b")
	if err != nil {
		return err
	}
	return ec.SetOutput("value", ir.IRBool(n.Cmp.Compare(a, b)))
}
