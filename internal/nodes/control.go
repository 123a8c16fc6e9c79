package nodes

import (
	"strings"

	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// LogNode writes its text, followed by its value input when connected.
type LogNode struct {
	Text string
}

func newLog(cfg ir.IRObject) (graph.Behavior, error) {
	text, err := optionalString(cfg, "text", "")
	if err != nil {
		return nil, err
	}
	return LogNode{Text: text}, nil
}

// Ports implements graph.Behavior.
func (LogNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.FlowIn(),
		graph.FlowOut(graph.PortNext),
		graph.Inport("value", graph.TypeAny),
	}
}

// Execute implements flow.FlowBehavior.
func (n LogNode) Execute(ec *flow.ExecContext) flow.Result {
	h, err := hostOf(ec)
	if err != nil {
		return flow.Fail(err)
	}
	parts := make([]string, 0, 2)
	if n.Text != "" {
		parts = append(parts, n.Text)
	}
	if ec.Connected("value") {
		v, ok := ec.Input("value")
		if !ok {
			return flow.Next().WithDefect(ec.Defect(graph.DefectMissingInput, "value input has no value"))
		}
		parts = append(parts, format(v))
	}
	h.Log(strings.Join(parts, " "))
	return flow.Next()
}

// IfNode branches on its condition. A missing condition ends the run.
type IfNode struct{}

func newIf(ir.IRObject) (graph.Behavior, error) { return IfNode{}, nil }

// Ports implements graph.Behavior.
func (IfNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.FlowIn(),
		graph.FlowOut("true"),
		graph.FlowOut("false"),
		graph.Inport("condition", graph.TypeBool),
	}
}

// Execute implements flow.FlowBehavior.
func (IfNode) Execute(ec *flow.ExecContext) flow.Result {
	b, err := ec.InputBool("condition")
	if err != nil {
		return flow.Fail(err)
	}
	if b {
		return flow.Branch("true")
	}
	return flow.Branch("false")
}

// ForNode runs its loop body count times, then continues through done.
// The zero-based iteration is published on index.
//
// Config: count (int); the count inport overrides it when connected.
type ForNode struct{}

func newFor(cfg ir.IRObject) (graph.Behavior, error) {
	if _, _, err := optionalInt(cfg, "count"); err != nil {
		return nil, err
	}
	return ForNode{}, nil
}

// Ports implements graph.Behavior.
func (ForNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.FlowIn(),
		graph.FlowOut("loop"),
		graph.FlowOut("done"),
		graph.Inport("count", graph.TypeInt),
		graph.Outport("index", graph.TypeInt),
	}
}

// Execute implements flow.FlowBehavior.
func (ForNode) Execute(ec *flow.ExecContext) flow.Result {
	var i int64
	if v, ok := ec.Local("i"); ok {
		i, _ = ir.AsInt(v)
	} else {
		count, err := operand(ec, "count")
		if err != nil {
			return flow.Fail(err)
		}
		ec.SetLocal("count", ir.IRInt(count))
	}
	count, _ := ir.AsInt(mustLocal(ec, "count"))
	if i >= count {
		ec.ClearLocals()
		return flow.Branch("done")
	}
	ec.SetLocal("i", ir.IRInt(i+1))
	if err := ec.SetOutput("index", ir.IRInt(i)); err != nil {
		return flow.Fail(err)
	}
	return flow.Loop("loop")
}

func mustLocal(ec *flow.ExecContext, key string) ir.IRValue {
	v, _ := ec.Local(key)
	return v
}

// EndNode ends the run explicitly, even from inside a macro.
type EndNode struct{}

func newEnd(ir.IRObject) (graph.Behavior, error) { return EndNode{}, nil }

// Ports implements graph.Behavior.
func (EndNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn()}
}

// Execute implements flow.FlowBehavior.
func (EndNode) Execute(*flow.ExecContext) flow.Result { return flow.Abort() }
