package nodes

import (
	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// MacroCallNode runs a loaded macro in a nested frame, then continues
// through next.
//
// Config: macro (string, required).
type MacroCallNode struct {
	Macro string
}

func newMacroCall(cfg ir.IRObject) (graph.Behavior, error) {
	name, err := requireString(cfg, "macro")
	if err != nil {
		return nil, err
	}
	return MacroCallNode{Macro: name}, nil
}

// Ports implements graph.Behavior.
func (MacroCallNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn(), graph.FlowOut(graph.PortNext)}
}

// Execute implements flow.FlowBehavior.
func (n MacroCallNode) Execute(*flow.ExecContext) flow.Result {
	return flow.Call(n.Macro)
}

// MacroInputNode is a macro's entry pseudo-node.
type MacroInputNode struct{}

func newMacroInput(ir.IRObject) (graph.Behavior, error) { return MacroInputNode{}, nil }

// Ports implements graph.Behavior.
func (MacroInputNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowOut(graph.PortNext)}
}

// Execute implements flow.FlowBehavior.
func (MacroInputNode) Execute(*flow.ExecContext) flow.Result { return flow.Next() }

// MacroOutputNode leaves the macro early.
type MacroOutputNode struct{}

func newMacroOutput(ir.IRObject) (graph.Behavior, error) { return MacroOutputNode{}, nil }

// Ports implements graph.Behavior.
func (MacroOutputNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn()}
}

// Execute implements flow.FlowBehavior.
func (MacroOutputNode) Execute(*flow.ExecContext) flow.Result { return flow.Return() }
