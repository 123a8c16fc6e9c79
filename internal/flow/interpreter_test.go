package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// TestRun_Linear walks a straight chain to its dead end.
func TestRun_Linear(t *testing.T) {
	g := newBuilder(t, "hello", ir.KindAbility).
		node(1, startNode{}).
		node(2, logNode{text: "Hello"}).
		node(3, logNode{text: "World!"}).
		flow(1, graph.PortNext, 2).
		flow(2, graph.PortNext, 3).
		entry(1)

	in, host := run(t, g, Config{RunID: "r1"})

	assert.Equal(t, StateDone, in.State())
	assert.Equal(t, []string{"Hello", "World!"}, host.logs)
	assert.Equal(t, 3, in.Steps())
	assert.Empty(t, in.Defects())
	assert.False(t, in.Cancelled())
}

// TestRun_NoEntry reports MISSING_ENTRY and finishes.
func TestRun_NoEntry(t *testing.T) {
	g := graph.New("empty", ir.KindAbility)

	in, _ := run(t, g, Config{})

	assert.Equal(t, StateDone, in.State())
	require.Len(t, in.Defects(), 1)
	assert.Equal(t, graph.DefectMissingEntry, in.Defects()[0].Code)
}

// TestRun_Branch follows the outport the node selects.
func TestRun_Branch(t *testing.T) {
	for _, cond := range []bool{true, false} {
		g := newBuilder(t, "branch", ir.KindAbility).
			node(1, startNode{}).
			node(2, ifNode{}).
			node(3, boolNode{v: cond}).
			node(4, logNode{text: "yes"}).
			node(5, logNode{text: "no"}).
			flow(1, graph.PortNext, 2).
			flow(2, "true", 4).
			flow(2, "false", 5).
			data(3, "value", 2, "cond").
			entry(1)

		_, host := run(t, g, Config{})

		if cond {
			assert.Equal(t, []string{"yes"}, host.logs)
		} else {
			assert.Equal(t, []string{"no"}, host.logs)
		}
	}
}

// TestRun_BranchOnMissingInput ends the run with MISSING_INPUT.
func TestRun_BranchOnMissingInput(t *testing.T) {
	g := newBuilder(t, "branch", ir.KindAbility).
		node(1, startNode{}).
		node(2, ifNode{}).
		node(3, logNode{text: "yes"}).
		node(4, logNode{text: "no"}).
		flow(1, graph.PortNext, 2).
		flow(2, "true", 3).
		flow(2, "false", 4).
		entry(1)

	in, host := run(t, g, Config{})

	assert.Equal(t, StateDone, in.State())
	assert.Empty(t, host.logs)
	require.Len(t, in.Defects(), 1)
	d := in.Defects()[0]
	assert.Equal(t, graph.DefectMissingInput, d.Code)
	assert.Equal(t, 2, d.NodeID)
	assert.Equal(t, "cond", d.Port)
	assert.Equal(t, "branch", d.Graph)
}

// TestRun_NonBranchMissingInputContinues degrades the node to a no-op.
func TestRun_NonBranchMissingInputContinues(t *testing.T) {
	g := newBuilder(t, "degrade", ir.KindAbility).
		node(1, startNode{}).
		node(2, logNode{}).
		node(3, echoNode{}).
		node(4, logNode{text: "after"}).
		flow(1, graph.PortNext, 2).
		flow(2, graph.PortNext, 4).
		data(3, "out", 2, "value").
		entry(1)

	in, host := run(t, g, Config{})

	assert.Equal(t, []string{"after"}, host.logs)
	assert.Equal(t, 2, graph.CountCode(in.Defects(), graph.DefectMissingInput))
}

// TestRun_FlowOutputFeedsLaterNode reads a value a flow node wrote earlier in
// the same run.
func TestRun_FlowOutputFeedsLaterNode(t *testing.T) {
	g := newBuilder(t, "produce", ir.KindAbility).
		node(1, startNode{}).
		node(2, produceNode{v: 42}).
		node(3, logNode{}).
		flow(1, graph.PortNext, 2).
		flow(2, graph.PortNext, 3).
		data(2, "value", 3, "value").
		entry(1)

	_, host := run(t, g, Config{})

	assert.Equal(t, []string{"42"}, host.logs)
}

// TestRun_DataCycle reports EVALUATION_FAILED instead of recursing forever.
func TestRun_DataCycle(t *testing.T) {
	g := newBuilder(t, "cycle", ir.KindAbility).
		node(1, startNode{}).
		node(2, logNode{}).
		node(3, echoNode{}).
		node(4, echoNode{}).
		flow(1, graph.PortNext, 2).
		data(3, "out", 2, "value").
		data(3, "out", 4, "in").
		data(4, "out", 3, "in").
		entry(1)

	in, host := run(t, g, Config{})

	assert.Equal(t, StateDone, in.State())
	assert.Empty(t, host.logs)
	assert.Equal(t, 1, graph.CountCode(in.Defects(), graph.DefectEvaluationFailed))
}

// TestRun_DataNodeEvaluatedOncePerExecution pulls one data node through two
// inports of each node execution and checks it is evaluated once per
// execution, never cached across steps.
func TestRun_DataNodeEvaluatedOncePerExecution(t *testing.T) {
	g := newBuilder(t, "memo", ir.KindAbility).
		node(1, startNode{}).
		node(2, sumNode{}).
		node(3, sumNode{}).
		node(4, countNode{}).
		flow(1, graph.PortNext, 2).
		flow(2, graph.PortNext, 3).
		data(4, "value", 2, "a").
		data(4, "value", 2, "b").
		data(4, "value", 3, "a").
		data(4, "value", 3, "b").
		entry(1)

	in, host := run(t, g, Config{})

	assert.Empty(t, in.Defects())
	assert.Equal(t, 2, host.evals)
	assert.Equal(t, []string{"2", "4"}, host.logs)
}

// TestRun_DefectNodeLocation keeps a defect that names node 0 and fills in
// the executing node for one that names none.
func TestRun_DefectNodeLocation(t *testing.T) {
	g := newBuilder(t, "blame", ir.KindAbility).
		node(0, startNode{}).
		node(1, blameNode{blame: 0}).
		node(2, blameNode{blame: graph.NoNode}).
		flow(0, graph.PortNext, 1).
		flow(1, graph.PortNext, 2).
		entry(0)

	in, _ := run(t, g, Config{})

	require.Len(t, in.Defects(), 2)
	assert.Equal(t, 0, in.Defects()[0].NodeID)
	assert.Equal(t, 2, in.Defects()[1].NodeID)
}

// TestRun_Loop returns to the loop head at the end of the body.
func TestRun_Loop(t *testing.T) {
	g := newBuilder(t, "loop", ir.KindAbility).
		node(1, startNode{}).
		node(2, repeatNode{count: 3}).
		node(3, logNode{text: "body"}).
		node(4, logNode{text: "after"}).
		flow(1, graph.PortNext, 2).
		flow(2, "loop", 3).
		flow(2, "done", 4).
		entry(1)

	in, host := run(t, g, Config{})

	assert.Equal(t, []string{"body", "body", "body", "after"}, host.logs)
	assert.Empty(t, in.Defects())
}

// TestRun_NestedLoops restarts the inner loop on each outer iteration.
func TestRun_NestedLoops(t *testing.T) {
	g := newBuilder(t, "nested", ir.KindAbility).
		node(1, startNode{}).
		node(2, repeatNode{count: 2}).
		node(3, logNode{text: "outer"}).
		node(4, repeatNode{count: 3}).
		node(5, logNode{text: "inner"}).
		node(6, logNode{text: "end"}).
		flow(1, graph.PortNext, 2).
		flow(2, "loop", 3).
		flow(3, graph.PortNext, 4).
		flow(4, "loop", 5).
		flow(2, "done", 6).
		entry(1)

	_, host := run(t, g, Config{})

	assert.Equal(t, []string{
		"outer", "inner", "inner", "inner",
		"outer", "inner", "inner", "inner",
		"end",
	}, host.logs)
}

// TestRun_Macro pushes a frame and continues after the call node.
func TestRun_Macro(t *testing.T) {
	g := newBuilder(t, "caller", ir.KindAbility).
		node(1, startNode{}).
		node(2, callNode{macro: "hello"}).
		node(3, logNode{text: "end"}).
		flow(1, graph.PortNext, 2).
		flow(2, graph.PortNext, 3).
		entry(1)

	in, host := run(t, g, Config{Macros: MacroMap{"hello": helloMacro(t)}})

	assert.Equal(t, []string{"Hello World!", "end"}, host.logs)
	assert.Equal(t, StateDone, in.State())
	assert.Empty(t, in.Defects())
}

// TestRun_MacroInLoop calls the macro on every iteration.
func TestRun_MacroInLoop(t *testing.T) {
	g := newBuilder(t, "caller5", ir.KindAbility).
		node(1, startNode{}).
		node(2, repeatNode{count: 5}).
		node(3, callNode{macro: "hello"}).
		node(4, logNode{text: "end"}).
		flow(1, graph.PortNext, 2).
		flow(2, "loop", 3).
		flow(2, "done", 4).
		entry(1)

	_, host := run(t, g, Config{Macros: MacroMap{"hello": helloMacro(t)}})

	assert.Equal(t, []string{
		"Hello World!", "Hello World!", "Hello World!", "Hello World!", "Hello World!", "end",
	}, host.logs)
}

// TestRun_MacroReturn leaves the macro early.
func TestRun_MacroReturn(t *testing.T) {
	macro := newBuilder(t, "early", ir.KindMacro).
		node(-1, startNode{}).
		node(1, logNode{text: "inside"}).
		node(2, returnNode{}).
		flow(-1, graph.PortNext, 1).
		flow(1, graph.PortNext, 2).
		entry(-1)
	g := newBuilder(t, "caller", ir.KindAbility).
		node(1, startNode{}).
		node(2, callNode{macro: "early"}).
		node(3, logNode{text: "back"}).
		flow(1, graph.PortNext, 2).
		flow(2, graph.PortNext, 3).
		entry(1)

	_, host := run(t, g, Config{Macros: MacroMap{"early": macro}})

	assert.Equal(t, []string{"inside", "back"}, host.logs)
}

// TestRun_MissingMacro reports and skips the call.
func TestRun_MissingMacro(t *testing.T) {
	g := newBuilder(t, "caller", ir.KindAbility).
		node(1, startNode{}).
		node(2, callNode{macro: "nope"}).
		node(3, logNode{text: "end"}).
		flow(1, graph.PortNext, 2).
		flow(2, graph.PortNext, 3).
		entry(1)

	in, host := run(t, g, Config{})

	assert.Equal(t, []string{"end"}, host.logs)
	require.Len(t, in.Defects(), 1)
	assert.Equal(t, graph.DefectMissingMacro, in.Defects()[0].Code)
}

// TestRun_RecursiveMacroHitsFrameLimit stops unbounded macro recursion.
func TestRun_RecursiveMacroHitsFrameLimit(t *testing.T) {
	macro := newBuilder(t, "self", ir.KindMacro).
		node(-1, startNode{}).
		node(1, callNode{macro: "self"}).
		flow(-1, graph.PortNext, 1).
		entry(-1)
	g := newBuilder(t, "caller", ir.KindAbility).
		node(1, startNode{}).
		node(2, callNode{macro: "self"}).
		flow(1, graph.PortNext, 2).
		entry(1)

	in, _ := run(t, g, Config{Macros: MacroMap{"self": macro}, MaxFrames: 4})

	assert.Equal(t, StateDone, in.State())
	assert.Equal(t, 1, graph.CountCode(in.Defects(), graph.DefectEvaluationFailed))
}

// TestRun_StepsExceeded terminates an endless loop.
func TestRun_StepsExceeded(t *testing.T) {
	g := newBuilder(t, "forever", ir.KindAbility).
		node(1, startNode{}).
		node(2, repeatNode{count: -1}).
		node(3, logNode{text: "tick"}).
		flow(1, graph.PortNext, 2).
		flow(2, "loop", 3).
		entry(1)

	in, host := run(t, g, Config{RunID: "r-loop", MaxSteps: 10})

	assert.Equal(t, StateDone, in.State())
	require.Len(t, in.Defects(), 1)
	assert.Equal(t, graph.DefectStepsExceeded, in.Defects()[0].Code)
	assert.Contains(t, in.Defects()[0].Message, "r-loop")
	assert.Len(t, host.logs, 4)
}

// TestRun_GateRefusesPayload skips the run.
func TestRun_GateRefusesPayload(t *testing.T) {
	build := func() *graph.Graph {
		return newBuilder(t, "gated", ir.KindAbility).
			node(1, gatedStart{want: "damaged"}).
			node(2, logNode{text: "I'm damaged!"}).
			flow(1, graph.PortNext, 2).
			entry(1)
	}

	in, host := run(t, build(), Config{Payload: ir.Obj(ir.O("event", ir.IRString("healed")))})
	assert.True(t, in.Skipped())
	assert.Empty(t, host.logs)

	in, host = run(t, build(), Config{Payload: ir.Obj(ir.O("event", ir.IRString("damaged")))})
	assert.False(t, in.Skipped())
	assert.Equal(t, []string{"I'm damaged!"}, host.logs)
}

// TestAccepts checks the entry gate without starting the run.
func TestAccepts(t *testing.T) {
	g := newBuilder(t, "gated", ir.KindAbility).
		node(1, gatedStart{want: "damaged"}).
		entry(1)

	in := New(g, Config{Payload: ir.Obj(ir.O("event", ir.IRString("damaged")))})
	assert.True(t, in.Accepts())
	assert.Equal(t, StateReady, in.State())

	in = New(g, Config{Payload: ir.Obj(ir.O("event", ir.IRString("healed")))})
	assert.False(t, in.Accepts())

	open := newBuilder(t, "open", ir.KindAbility).node(1, startNode{}).entry(1)
	assert.True(t, New(open, Config{}).Accepts())

	empty := newBuilder(t, "empty", ir.KindAbility).node(1, startNode{}).g
	assert.False(t, New(empty, Config{}).Accepts())
}

func choiceGraph(t *testing.T) *graph.Graph {
	return newBuilder(t, "choose", ir.KindAbility).
		node(1, startNode{}).
		node(2, logNode{text: "before"}).
		node(3, pickNode{}).
		node(4, logNode{}).
		node(5, logNode{text: "nothing"}).
		flow(1, graph.PortNext, 2).
		flow(2, graph.PortNext, 3).
		flow(3, "picked", 4).
		flow(3, "none", 5).
		data(3, "pick", 4, "value").
		entry(1)
}

// TestAwait_ParksAndResumes keeps state across the choice boundary.
func TestAwait_ParksAndResumes(t *testing.T) {
	in, host := run(t, choiceGraph(t), Config{RunID: "r1"})

	require.Equal(t, StateAwaitingChoice, in.State())
	node, choice, ok := in.Pending()
	require.True(t, ok)
	assert.Equal(t, 3, node)
	assert.Equal(t, ir.IRString("pick one"), choice["prompt"])
	assert.Equal(t, []string{"before"}, host.logs)

	// Running again while parked changes nothing.
	assert.Equal(t, StateAwaitingChoice, in.Run())

	state, err := in.Resume(Answer{Data: ir.Obj(ir.O("pick", ir.IRInt(7)))})
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
	assert.Equal(t, []string{"before", "7"}, host.logs)
	_, _, ok = in.Pending()
	assert.False(t, ok)
}

// TestAwait_InvalidAnswer follows the no-op continuation.
func TestAwait_InvalidAnswer(t *testing.T) {
	in, host := run(t, choiceGraph(t), Config{})

	_, err := in.Resume(Answer{Data: ir.IRObject{}})

	require.NoError(t, err)
	assert.Equal(t, []string{"before", "nothing"}, host.logs)
	require.Len(t, in.Defects(), 1)
	assert.Equal(t, graph.DefectInvalidAnswer, in.Defects()[0].Code)
	assert.Equal(t, 3, in.Defects()[0].NodeID)
}

// TestAwait_Cancel aborts the rest of the run.
func TestAwait_Cancel(t *testing.T) {
	in, host := run(t, choiceGraph(t), Config{})

	state, err := in.Resume(Cancellation())

	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
	assert.True(t, in.Cancelled())
	assert.Equal(t, []string{"before"}, host.logs)
}

// TestResume_NotAwaiting is an error, not a state change.
func TestResume_NotAwaiting(t *testing.T) {
	g := newBuilder(t, "x", ir.KindAbility).node(1, startNode{}).entry(1)
	in, _ := run(t, g, Config{RunID: "r9"})

	_, err := in.Resume(Answer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "r9")
	assert.Equal(t, StateDone, in.State())
}

// TestAbort stops a parked run.
func TestAbort(t *testing.T) {
	in, host := run(t, choiceGraph(t), Config{})

	in.Abort()

	assert.Equal(t, StateDone, in.State())
	assert.True(t, in.Cancelled())
	assert.Equal(t, []string{"before"}, host.logs)
}

// TestObserve reports node, await and resume events in order.
func TestObserve(t *testing.T) {
	var kinds []EventKind
	var nodes []int
	in := New(choiceGraph(t), Config{
		Host: &testHost{},
		Observe: func(ev Event) {
			kinds = append(kinds, ev.Kind)
			nodes = append(nodes, ev.NodeID)
		},
	})
	in.Run()
	_, err := in.Resume(Answer{Data: ir.Obj(ir.O("pick", ir.IRInt(1)))})
	require.NoError(t, err)

	assert.Equal(t, []EventKind{EventNode, EventNode, EventNode, EventAwait, EventResume, EventNode}, kinds)
	assert.Equal(t, []int{1, 2, 3, 3, 3, 4}, nodes)
}
