package nodes

import (
	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// TargetChoiceNode parks the run until a target owner is chosen.
//
// The choice context carries kind "target", the prompt and the node id. A
// valid answer has an int field "target" naming a live owner; the node then
// publishes it on target and follows next. Any other answer is reported as
// INVALID_ANSWER and the run follows none.
type TargetChoiceNode struct {
	Prompt string
}

func newTargetChoice(cfg ir.IRObject) (graph.Behavior, error) {
	prompt, err := optionalString(cfg, "prompt", "choose a target")
	if err != nil {
		return nil, err
	}
	return TargetChoiceNode{Prompt: prompt}, nil
}

// Ports implements graph.Behavior.
func (TargetChoiceNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.FlowIn(),
		graph.FlowOut(graph.PortNext),
		graph.FlowOut("none"),
		graph.Outport("target", graph.TypeOwner),
	}
}

// Execute implements flow.FlowBehavior.
func (n TargetChoiceNode) Execute(ec *flow.ExecContext) flow.Result {
	return flow.Await(ir.Obj(
		ir.O("kind", ir.IRString("target")),
		ir.O("prompt", ir.IRString(n.Prompt)),
		ir.O("node", ir.IRInt(ec.Node.ID)),
	))
}

// Resume implements flow.Resumable.
func (n TargetChoiceNode) Resume(ec *flow.ExecContext, answer flow.Answer) flow.Result {
	id, ok := answer.Data.GetInt("target")
	if !ok {
		return flow.Branch("none").WithDefect(ec.Defect(graph.DefectInvalidAnswer, "answer has no target"))
	}
	h, err := hostOf(ec)
	if err != nil {
		return flow.Fail(err)
	}
	if h.Owner(id) == nil {
		return flow.Branch("none").WithDefect(ec.Defect(graph.DefectInvalidAnswer, "target owner %d does not exist", id))
	}
	if err := ec.SetOutput("target", ir.IRInt(id)); err != nil {
		return flow.Fail(err)
	}
	return flow.Next()
}
