package flow

import (
	"fmt"

	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// DefaultMaxFrames bounds macro nesting when Config.MaxFrames is zero.
const DefaultMaxFrames = 64

// EventKind identifies an interpreter event.
type EventKind int

const (
	// EventNode fires before a flow node executes.
	EventNode EventKind = iota
	// EventDefect fires for every reported defect.
	EventDefect
	// EventAwait fires when the run parks on a choice.
	EventAwait
	// EventResume fires when a valid answer is applied.
	EventResume
	// EventCancel fires when the run is cancelled or aborted from outside.
	EventCancel
	// EventSkip fires when the entry node refuses the payload.
	EventSkip
)

func (k EventKind) String() string {
	switch k {
	case EventNode:
		return "node"
	case EventDefect:
		return "defect"
	case EventAwait:
		return "await"
	case EventResume:
		return "resume"
	case EventCancel:
		return "cancel"
	case EventSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Event describes one observable interpreter transition.
type Event struct {
	Kind     EventKind
	Graph    string
	NodeID   int
	NodeType string
	Depth    int
	Defect   *graph.Defect
}

// Config holds per-run settings.
type Config struct {
	RunID   string
	Payload ir.IRObject
	Host    any

	// Macros resolves macro.call targets. Nil means no macros are available.
	Macros MacroResolver

	// MaxSteps limits node executions; <= 0 disables the limit.
	MaxSteps int

	// MaxFrames limits macro nesting; 0 means DefaultMaxFrames.
	MaxFrames int

	// Observe, when set, receives every Event synchronously.
	Observe func(Event)
}

type frame struct {
	graph    *graph.Graph
	cursor   int
	callNode int
	loops    []int
	values   map[graph.PortID]ir.IRValue
	locals   map[int]ir.IRObject
}

func newFrame(g *graph.Graph, cursor, callNode int) *frame {
	return &frame{
		graph:    g,
		cursor:   cursor,
		callNode: callNode,
		values:   make(map[graph.PortID]ir.IRValue),
		locals:   make(map[int]ir.IRObject),
	}
}

func (f *frame) enterLoop(nodeID int) {
	if n := len(f.loops); n > 0 && f.loops[n-1] == nodeID {
		return
	}
	f.loops = append(f.loops, nodeID)
}

func (f *frame) leaveLoop(nodeID int) {
	if n := len(f.loops); n > 0 && f.loops[n-1] == nodeID {
		f.loops = f.loops[:n-1]
	}
}

func (f *frame) loopHead() (int, bool) {
	if n := len(f.loops); n > 0 {
		return f.loops[n-1], true
	}
	return 0, false
}

// Interpreter walks one run of a graph.
//
// An Interpreter is single-use and not safe for concurrent use: the owning
// run queue drives it from one goroutine.
type Interpreter struct {
	root      *graph.Graph
	cfg       Config
	state     State
	frames    []*frame
	quota     *QuotaEnforcer
	choice    ir.IRObject
	defects   []*graph.Defect
	cancelled bool
	skipped   bool
}

// New creates an interpreter in the ready state.
func New(g *graph.Graph, cfg Config) *Interpreter {
	if cfg.MaxFrames == 0 {
		cfg.MaxFrames = DefaultMaxFrames
	}
	if cfg.Payload == nil {
		cfg.Payload = ir.IRObject{}
	}
	return &Interpreter{
		root:  g,
		cfg:   cfg,
		state: StateReady,
		quota: NewQuotaEnforcer(cfg.MaxSteps),
	}
}

// RunID returns the run id the interpreter was configured with.
func (in *Interpreter) RunID() string { return in.cfg.RunID }

// Graph returns the root graph.
func (in *Interpreter) Graph() *graph.Graph { return in.root }

// State returns the current state.
func (in *Interpreter) State() State { return in.state }

// Steps returns the number of node executions so far.
func (in *Interpreter) Steps() int { return in.quota.Current() }

// Depth returns the number of frames on the stack.
func (in *Interpreter) Depth() int { return len(in.frames) }

// Cancelled reports whether the run ended through cancellation or Abort.
func (in *Interpreter) Cancelled() bool { return in.cancelled }

// Skipped reports whether the entry node refused the payload.
func (in *Interpreter) Skipped() bool { return in.skipped }

// Defects returns the defects reported during the run.
func (in *Interpreter) Defects() []*graph.Defect {
	out := make([]*graph.Defect, len(in.defects))
	copy(out, in.defects)
	return out
}

// Pending returns the parked node and its choice context while the
// interpreter awaits an answer.
func (in *Interpreter) Pending() (nodeID int, choice ir.IRObject, ok bool) {
	if in.state != StateAwaitingChoice {
		return 0, nil, false
	}
	return in.top().cursor, in.choice, true
}

// Run drives the interpreter until it is done or awaiting a choice.
// Calling Run in any other state is a no-op that returns the state.
func (in *Interpreter) Run() State {
	switch in.state {
	case StateReady:
		in.start()
	case StateRunning:
	default:
		return in.state
	}
	for in.state == StateRunning {
		in.step()
	}
	return in.state
}

// Resume applies an answer to the parked node and keeps running.
//
// A cancellation answer ends the run without executing anything further.
// Otherwise the parked node's Resume decides the continuation; an invalid
// answer is the node's to report.
func (in *Interpreter) Resume(answer Answer) (State, error) {
	if in.state != StateAwaitingChoice {
		return in.state, fmt.Errorf("resume run %s: not awaiting a choice (state %s)", in.cfg.RunID, in.state)
	}
	f := in.top()
	n := f.graph.Node(f.cursor)
	in.choice = nil
	if answer.Cancel {
		in.cancelled = true
		in.state = StateDone
		in.emit(Event{Kind: EventCancel, Graph: f.graph.Name, NodeID: n.ID, NodeType: n.Type, Depth: len(in.frames)})
		return in.state, nil
	}
	in.emit(Event{Kind: EventResume, Graph: f.graph.Name, NodeID: n.ID, NodeType: n.Type, Depth: len(in.frames)})
	in.state = StateRunning
	res := Next()
	if r, ok := n.Behavior.(Resumable); ok {
		res = r.Resume(in.context(f, n), answer)
	}
	in.apply(f, n, res)
	return in.Run(), nil
}

// Accepts reports whether the entry node would take the configured payload.
// It does not start the run. A graph without an entry accepts nothing.
func (in *Interpreter) Accepts() bool {
	entry := in.root.Entry()
	if entry == nil {
		return false
	}
	gate, ok := entry.Behavior.(Gate)
	if !ok {
		return true
	}
	return gate.Accepts(in.context(newFrame(in.root, entry.ID, 0), entry))
}

// Abort ends the run from outside. Parked or not, nothing further executes.
func (in *Interpreter) Abort() {
	if in.state == StateDone {
		return
	}
	in.cancelled = true
	in.state = StateDone
	in.choice = nil
	in.emit(Event{Kind: EventCancel, Graph: in.root.Name, Depth: len(in.frames)})
}

func (in *Interpreter) top() *frame {
	return in.frames[len(in.frames)-1]
}

func (in *Interpreter) context(f *frame, n *graph.Node) *ExecContext {
	return &ExecContext{
		Node:    n,
		Graph:   f.graph,
		RunID:   in.cfg.RunID,
		Payload: in.cfg.Payload,
		Host:    in.cfg.Host,
		in:      in,
		fr:      f,
		memo:    make(map[int]bool),
	}
}

func (in *Interpreter) emit(ev Event) {
	if in.cfg.Observe != nil {
		in.cfg.Observe(ev)
	}
}

func (in *Interpreter) report(d *graph.Defect) {
	if d.Graph == "" {
		d.Graph = in.root.Name
	}
	in.defects = append(in.defects, d)
	in.emit(Event{Kind: EventDefect, Graph: d.Graph, NodeID: d.NodeID, Depth: len(in.frames), Defect: d})
}

func (in *Interpreter) fail(code graph.DefectCode, g *graph.Graph, nodeID int, format string, args ...any) {
	d := graph.NewDefect(code, nodeID, "", format, args...)
	d.Graph = g.Name
	in.report(d)
	in.state = StateDone
}

func (in *Interpreter) start() {
	entry := in.root.Entry()
	if entry == nil {
		in.fail(graph.DefectMissingEntry, in.root, 0, "graph has no entry node")
		return
	}
	in.frames = []*frame{newFrame(in.root, entry.ID, 0)}
	if gate, ok := entry.Behavior.(Gate); ok && !gate.Accepts(in.context(in.top(), entry)) {
		in.skipped = true
		in.state = StateDone
		in.emit(Event{Kind: EventSkip, Graph: in.root.Name, NodeID: entry.ID, NodeType: entry.Type, Depth: 1})
		return
	}
	in.state = StateRunning
}

func (in *Interpreter) step() {
	f := in.top()
	n := f.graph.Node(f.cursor)
	if n == nil {
		in.fail(graph.DefectEvaluationFailed, f.graph, f.cursor, "cursor on missing node %d", f.cursor)
		return
	}
	if err := in.quota.Check(in.cfg.RunID); err != nil {
		in.fail(graph.DefectStepsExceeded, f.graph, n.ID, "%v", err)
		return
	}
	in.emit(Event{Kind: EventNode, Graph: f.graph.Name, NodeID: n.ID, NodeType: n.Type, Depth: len(in.frames)})

	res := Next()
	if fb, ok := n.Behavior.(FlowBehavior); ok {
		res = fb.Execute(in.context(f, n))
	}
	in.apply(f, n, res)
}

func (in *Interpreter) apply(f *frame, n *graph.Node, res Result) {
	if res.defect != nil {
		if res.defect.Graph == "" {
			res.defect.Graph = f.graph.Name
		}
		if res.defect.NodeID == graph.NoNode {
			res.defect.NodeID = n.ID
		}
		in.report(res.defect)
	}
	switch res.kind {
	case resultContinue:
		f.leaveLoop(n.ID)
		in.advance(f.graph.NextVia(n.ID, res.port))
	case resultLoop:
		f.enterLoop(n.ID)
		in.advance(f.graph.NextVia(n.ID, res.port))
	case resultCall:
		in.call(f, n, res.macro)
	case resultReturn:
		in.ret()
	case resultAwait:
		in.state = StateAwaitingChoice
		in.choice = res.choice
		if in.choice == nil {
			in.choice = ir.IRObject{}
		}
		in.emit(Event{Kind: EventAwait, Graph: f.graph.Name, NodeID: n.ID, NodeType: n.Type, Depth: len(in.frames)})
	case resultAbort, resultFail:
		in.state = StateDone
	}
}

// advance moves the cursor to next. A nil next ends the current body: the
// cursor returns to the innermost loop head, or the frame is popped and the
// caller continues after its macro.call node.
func (in *Interpreter) advance(next *graph.Node) {
	for {
		f := in.top()
		if next != nil {
			f.cursor = next.ID
			return
		}
		if head, ok := f.loopHead(); ok {
			f.cursor = head
			return
		}
		if len(in.frames) == 1 {
			in.state = StateDone
			return
		}
		in.frames = in.frames[:len(in.frames)-1]
		parent := in.top()
		next = parent.graph.Next(parent.cursor)
	}
}

func (in *Interpreter) call(f *frame, n *graph.Node, name string) {
	var (
		g  *graph.Graph
		ok bool
	)
	if in.cfg.Macros != nil {
		g, ok = in.cfg.Macros.Macro(name)
	}
	if !ok {
		d := graph.NewDefect(graph.DefectMissingMacro, n.ID, "", "macro %q is not loaded", name)
		d.Graph = f.graph.Name
		in.report(d)
		in.advance(f.graph.Next(n.ID))
		return
	}
	entry := g.Entry()
	if entry == nil {
		d := graph.NewDefect(graph.DefectMissingEntry, n.ID, "", "macro %q has no input node", name)
		d.Graph = f.graph.Name
		in.report(d)
		in.advance(f.graph.Next(n.ID))
		return
	}
	if len(in.frames) >= in.cfg.MaxFrames {
		in.fail(graph.DefectEvaluationFailed, f.graph, n.ID, "macro nesting deeper than %d frames", in.cfg.MaxFrames)
		return
	}
	in.frames = append(in.frames, newFrame(g, entry.ID, n.ID))
}

func (in *Interpreter) ret() {
	if len(in.frames) == 1 {
		in.state = StateDone
		return
	}
	in.frames = in.frames[:len(in.frames)-1]
	parent := in.top()
	in.advance(parent.graph.Next(parent.cursor))
}
