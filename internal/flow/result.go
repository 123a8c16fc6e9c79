package flow

import (
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// State is the interpreter state.
type State int

const (
	StateReady State = iota
	StateRunning
	StateAwaitingChoice
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateAwaitingChoice:
		return "awaiting_choice"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

func parseState(s string) (State, bool) {
	for _, st := range []State{StateReady, StateRunning, StateAwaitingChoice, StateDone} {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

type resultKind int

const (
	resultContinue resultKind = iota
	resultLoop
	resultCall
	resultReturn
	resultAwait
	resultAbort
	resultFail
)

// Result is the flow decision a node returns from Execute or Resume.
type Result struct {
	kind   resultKind
	port   string
	macro  string
	choice ir.IRObject
	defect *graph.Defect
}

// Next follows the "next" outport.
func Next() Result {
	return Result{kind: resultContinue, port: graph.PortNext}
}

// Branch follows the named flow outport. An unconnected outport ends the
// current frame.
func Branch(port string) Result {
	return Result{kind: resultContinue, port: port}
}

// Loop follows the named outport and marks the node as the head of a loop:
// when the body reaches a dead end the cursor returns to this node. The loop
// ends when the node returns anything other than Loop.
func Loop(port string) Result {
	return Result{kind: resultLoop, port: port}
}

// Call enters the named macro in a new frame.
func Call(macro string) Result {
	return Result{kind: resultCall, macro: macro}
}

// Return leaves the current macro frame and resumes the caller.
// In the root frame it ends the run.
func Return() Result {
	return Result{kind: resultReturn}
}

// Await parks the run until an answer is supplied. choice is the opaque
// context handed to choice observers.
func Await(choice ir.IRObject) Result {
	return Result{kind: resultAwait, choice: choice}
}

// Abort ends the run immediately.
func Abort() Result {
	return Result{kind: resultAbort}
}

// Fail reports err as a defect and ends the run.
func Fail(err error) Result {
	return Result{kind: resultFail, defect: toDefect(err)}
}

// WithDefect attaches a defect to be reported while keeping the flow decision.
// Nodes use it to degrade to a no-op without stopping the run.
func (r Result) WithDefect(err error) Result {
	r.defect = toDefect(err)
	return r
}

// Port returns the outport a Continue or Loop result follows.
func (r Result) Port() string { return r.port }

// Defect returns the attached defect, if any.
func (r Result) Defect() *graph.Defect { return r.defect }

// Awaits reports whether the result parks the run.
func (r Result) Awaits() bool { return r.kind == resultAwait }

// Ends reports whether the result terminates the run.
func (r Result) Ends() bool { return r.kind == resultAbort || r.kind == resultFail }

func toDefect(err error) *graph.Defect {
	if err == nil {
		return nil
	}
	if d, ok := graph.AsDefect(err); ok {
		return d
	}
	return &graph.Defect{Code: graph.DefectEvaluationFailed, NodeID: graph.NoNode, Message: err.Error()}
}

// Answer is the externally supplied response to a pending choice.
type Answer struct {
	// Cancel aborts the rest of the run without applying pending effects.
	Cancel bool

	// Data carries the answer fields the parked node interprets.
	Data ir.IRObject
}

// Cancellation returns the cancellation answer.
func Cancellation() Answer {
	return Answer{Cancel: true}
}

// FlowBehavior is implemented by nodes the cursor can land on.
type FlowBehavior interface {
	graph.Behavior
	Execute(ec *ExecContext) Result
}

// DataBehavior is implemented by nodes evaluated on demand. Evaluate writes
// its outputs with ExecContext.SetOutput.
type DataBehavior interface {
	graph.Behavior
	Evaluate(ec *ExecContext) error
}

// Resumable is implemented by flow nodes that can park a run.
type Resumable interface {
	Resume(ec *ExecContext, answer Answer) Result
}

// Gate is implemented by entry nodes that accept only some payloads.
// A run whose entry refuses its payload ends without executing anything.
type Gate interface {
	Accepts(ec *ExecContext) bool
}

// MacroResolver looks up macro graphs by name.
type MacroResolver interface {
	Macro(name string) (*graph.Graph, bool)
}

// MacroMap is a MacroResolver backed by a map.
type MacroMap map[string]*graph.Graph

// Macro implements MacroResolver.
func (m MacroMap) Macro(name string) (*graph.Graph, bool) {
	g, ok := m[name]
	return g, ok
}
