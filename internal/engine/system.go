package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/flexi/internal/factory"
	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/nodes"
	"github.com/roach88/flexi/internal/stats"
)

// ChoiceContext is what choice observers receive when a run parks.
type ChoiceContext struct {
	RunID   string
	Ability string
	NodeID  int

	// Data is the choice the parked node asked for, e.g. {kind: "target"}.
	Data ir.IRObject
}

// run is one queued or active ability run.
type run struct {
	id      string
	ability *Ability
	payload ir.IRObject
	parent  string
	depth   int
	seq     int64
	parked  bool
	in      *flow.Interpreter

	// parks counts how often the run has parked, so observers of an earlier
	// choice stop once the run moved on to a later one.
	parks int

	// ctx is the context of the call currently driving the run.
	ctx context.Context
}

// System is the ability run queue and suspension controller.
//
// Exactly one run is active at a time. Run requests, including those node
// effects make while a run executes, are served strictly FIFO. A run that
// awaits a choice parks the queue: nothing else starts until Resume.
//
// Thread-safety: System is not safe for concurrent use. It is driven from
// one logical thread, like the game loop that owns it.
type System struct {
	registry *factory.Registry
	repo     *stats.Repository
	log      *slog.Logger
	clock    *Clock
	ids      RunIDGenerator
	recorder Recorder

	maxSteps           int
	maxChainDepth      int
	refreshBetweenRuns bool

	queue  *runQueue
	active *run

	byName    map[string]*Ability
	unbound   []*Ability
	bound     []*Ability
	macros    flow.MacroMap
	observers []func(ChoiceContext)

	trace    []ir.TraceEntry
	messages []string
	defects  []*graph.Defect
}

// New creates a system over a node registry and a stats repository. A nil
// registry means the built-in node library.
func New(registry *factory.Registry, repo *stats.Repository, opts ...Option) *System {
	if registry == nil {
		registry = nodes.NewRegistry()
	}
	if repo == nil {
		repo = stats.NewRepository()
	}
	s := &System{
		registry:      registry,
		repo:          repo,
		log:           slog.Default(),
		clock:         NewClock(),
		ids:           UUIDv7Generator{},
		maxSteps:      DefaultMaxSteps,
		maxChainDepth: DefaultMaxChainDepth,
		queue:         newRunQueue(),
		byName:        make(map[string]*Ability),
		macros:        make(flow.MacroMap),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository returns the stats repository the system acts on.
func (s *System) Repository() *stats.Repository { return s.repo }

// Registry returns the node registry abilities are built with.
func (s *System) Registry() *factory.Registry { return s.registry }

// OnChoice registers an observer notified every time a run parks.
// Observers may call Resume from inside the notification.
func (s *System) OnChoice(fn func(ChoiceContext)) {
	s.observers = append(s.observers, fn)
}

// TryEnqueueAndRunAbility appends a run of ab to the queue and, when no run
// is active or parked, drives the queue until it is empty or a run parks.
//
// Returns false only when the system has been closed.
func (s *System) TryEnqueueAndRunAbility(ctx context.Context, ab *Ability, payload ir.IRObject) bool {
	if ab == nil || s.queue.Closed() {
		return false
	}
	if !s.enqueue(ctx, s.newRun(ab, payload.Clone(), "", 0)) {
		s.log.Warn("run rejected: system closed", "ability", ab.Name)
		return false
	}
	s.drain(ctx)
	return true
}

// TriggerEvent raises an event from outside any run and drives the queue.
// It returns the number of runs enqueued.
func (s *System) TriggerEvent(ctx context.Context, event string, fields ir.IRObject) int {
	n := s.trigger(ctx, event, fields, nil)
	s.drain(ctx)
	return n
}

// Resume answers the parked run's choice and keeps driving the queue.
//
// A cancellation answer ends the parked run without executing anything else
// in it. An invalid answer is reported as a defect by the parked node.
func (s *System) Resume(ctx context.Context, answer flow.Answer) error {
	r := s.active
	if r == nil || !r.parked {
		return &RuntimeError{Code: ErrCodeNotParked, Message: "no run is awaiting a choice"}
	}
	r.ctx = ctx
	r.parked = false
	s.clearParked(ctx, r)

	state, err := r.in.Resume(answer)
	if err != nil {
		return fmt.Errorf("resume run %s: %w", r.id, err)
	}
	s.settle(ctx, r, state)
	s.drain(ctx)
	return nil
}

// Pending returns the parked run's choice context.
func (s *System) Pending() (ChoiceContext, bool) {
	r := s.active
	if r == nil || !r.parked {
		return ChoiceContext{}, false
	}
	nodeID, choice, ok := r.in.Pending()
	if !ok {
		return ChoiceContext{}, false
	}
	return ChoiceContext{RunID: r.id, Ability: r.ability.Name, NodeID: nodeID, Data: choice}, true
}

// Parked reports whether a run awaits a choice.
func (s *System) Parked() bool {
	return s.active != nil && s.active.parked
}

// Queued returns the ids of runs waiting behind the active one.
func (s *System) Queued() []string { return s.queue.Pending() }

// Snapshot returns the parked run's continuation.
func (s *System) Snapshot() (ir.IRObject, bool) {
	if !s.Parked() {
		return nil, false
	}
	return s.active.in.Snapshot(), true
}

// Close stops accepting runs. A parked run can still be resumed and runs
// already queued still execute.
func (s *System) Close() {
	s.queue.Close()
	s.log.Info("ability system closed", "queued", s.queue.Len(), "parked", s.Parked())
}

// RefreshStats recomputes every owner's CurrentValues.
func (s *System) RefreshStats() {
	s.repo.RefreshStats()
}

// RefreshModifiers re-evaluates every owner's conditional modifiers against
// current stat values, then refreshes stats.
func (s *System) RefreshModifiers() {
	s.repo.RefreshModifiers()
}

// Trace returns every trace entry in seq order.
func (s *System) Trace() []ir.TraceEntry {
	out := make([]ir.TraceEntry, len(s.trace))
	copy(out, s.trace)
	return out
}

// Messages returns the text of every flow.log executed, in order.
func (s *System) Messages() []string {
	out := make([]string, len(s.messages))
	copy(out, s.messages)
	return out
}

// Defects returns every defect reported so far, build-time and run-time.
func (s *System) Defects() []*graph.Defect {
	out := make([]*graph.Defect, len(s.defects))
	copy(out, s.defects)
	return out
}

func (s *System) newRun(ab *Ability, payload ir.IRObject, parent string, depth int) *run {
	if payload == nil {
		payload = ir.IRObject{}
	}
	r := &run{
		id:      s.ids.Generate(),
		ability: ab,
		payload: payload,
		parent:  parent,
		depth:   depth,
		ctx:     context.Background(),
	}
	r.in = flow.New(ab.Graph, s.flowConfig(r))
	return r
}

func (s *System) flowConfig(r *run) flow.Config {
	return flow.Config{
		RunID:    r.id,
		Payload:  r.payload,
		Host:     &runHost{sys: s, run: r},
		Macros:   s.macros,
		MaxSteps: s.maxSteps,
		Observe:  s.observer(r),
	}
}

func (s *System) enqueue(ctx context.Context, r *run) bool {
	if !s.queue.Enqueue(r) {
		return false
	}
	r.seq = s.clock.Next()
	s.log.Debug("run enqueued",
		"run_id", r.id,
		"ability", r.ability.Name,
		"parent_run", r.parent,
		"depth", r.depth,
	)
	s.recordRun(ctx, r, ir.RunQueued)
	return true
}

// trigger enqueues every bound ability whose entry accepts the event. parent
// is nil for events raised from outside a run.
func (s *System) trigger(ctx context.Context, event string, fields ir.IRObject, parent *run) int {
	payload := fields.Clone()
	payload[nodes.EventField] = ir.IRString(event)

	depth, parentID := 0, ""
	if parent != nil {
		depth, parentID = parent.depth+1, parent.id
	}

	count := 0
	for _, owner := range s.repo.Owners() {
		for _, ab := range s.Abilities(owner.ID()) {
			if !s.accepts(ab, payload) {
				continue
			}
			if depth > s.maxChainDepth {
				d := graph.NewDefect(graph.DefectChainTooDeep, graph.NoNode, "",
					"event %q would run %q at chain depth %d > %d", event, ab.Name, depth, s.maxChainDepth)
				d.Graph = ab.Name
				s.report(ctx, parentID, d)
				continue
			}
			if !s.enqueue(ctx, s.newRun(ab, payload.Clone(), parentID, depth)) {
				s.log.Warn("event run rejected: system closed", "event", event, "ability", ab.Name)
				continue
			}
			count++
		}
	}
	s.log.Debug("event triggered", "event", event, "enqueued", count, "depth", depth)
	return count
}

// accepts asks ab's entry whether it takes payload, without creating a run.
func (s *System) accepts(ab *Ability, payload ir.IRObject) bool {
	candidate := &run{ability: ab, payload: payload, ctx: context.Background()}
	in := flow.New(ab.Graph, flow.Config{Payload: payload, Host: &runHost{sys: s, run: candidate}})
	return in.Accepts()
}

// drain starts queued runs one at a time until the queue is empty, a run
// parks or ctx is cancelled. It is a no-op while a run is active: runs
// enqueued by node effects wait for the active run to finish.
func (s *System) drain(ctx context.Context) {
	for s.active == nil {
		if err := ctx.Err(); err != nil {
			s.log.Info("queue drain stopped: context cancelled", "queued", s.queue.Len(), "error", err)
			return
		}
		r, ok := s.queue.TryDequeue()
		if !ok {
			return
		}
		s.start(ctx, r)
	}
}

func (s *System) start(ctx context.Context, r *run) {
	s.active = r
	r.ctx = ctx
	s.log.Info("run started", "run_id", r.id, "ability", r.ability.Name, "depth", r.depth)
	s.appendTrace(r, ir.TraceRunStart, ir.NoNode, r.ability.Name)
	s.recordRun(ctx, r, ir.RunRunning)
	s.settle(ctx, r, r.in.Run())
}

// settle handles the state a run was driven to.
func (s *System) settle(ctx context.Context, r *run, state flow.State) {
	switch state {
	case flow.StateAwaitingChoice:
		s.park(ctx, r)
	case flow.StateDone:
		s.finish(ctx, r)
	default:
		// Run only returns when the interpreter is parked or done.
		s.log.Error("run returned in unexpected state", "run_id", r.id, "state", state)
		r.in.Abort()
		s.finish(ctx, r)
	}
}

func (s *System) park(ctx context.Context, r *run) {
	r.parked = true
	r.parks++
	mark := r.parks
	nodeID, choice, _ := r.in.Pending()
	detail, err := ir.MarshalCanonical(choice)
	if err != nil {
		detail = []byte(fmt.Sprintf("%v", choice))
	}
	s.appendTrace(r, ir.TraceChoice, nodeID, string(detail))
	s.recordRun(ctx, r, ir.RunParked)
	if s.recorder != nil {
		snap := r.in.Snapshot()
		snap[snapshotOwner] = ir.IRInt(r.ability.Owner)
		if err := s.recorder.SaveParked(ctx, r.id, snap); err != nil {
			s.log.Warn("save parked run failed", "run_id", r.id, "error", err)
		}
	}
	s.log.Info("run parked on choice", "run_id", r.id, "ability", r.ability.Name, "node_id", nodeID)

	cc := ChoiceContext{RunID: r.id, Ability: r.ability.Name, NodeID: nodeID, Data: choice}
	for _, fn := range s.observers {
		if s.active != r || !r.parked || r.parks != mark {
			// An earlier observer already answered this choice.
			return
		}
		fn(cc)
	}
}

func (s *System) finish(ctx context.Context, r *run) {
	status, detail := ir.RunDone, "done"
	switch {
	case r.in.Skipped():
		detail = "skipped"
	case r.in.Cancelled():
		status, detail = ir.RunCancelled, "cancelled"
	}
	s.appendTrace(r, ir.TraceRunEnd, ir.NoNode, detail)
	s.recordRun(ctx, r, status)
	s.log.Info("run finished",
		"run_id", r.id,
		"ability", r.ability.Name,
		"status", detail,
		"steps", r.in.Steps(),
		"defects", len(r.in.Defects()),
	)
	if s.active == r {
		s.active = nil
	}
	if s.refreshBetweenRuns && !r.in.Skipped() {
		s.repo.RefreshModifiers()
	}
}

func (s *System) clearParked(ctx context.Context, r *run) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.ClearParked(ctx, r.id); err != nil {
		s.log.Warn("clear parked run failed", "run_id", r.id, "error", err)
	}
}

// observer turns interpreter events into trace entries and defect reports.
func (s *System) observer(r *run) func(flow.Event) {
	return func(ev flow.Event) {
		switch ev.Kind {
		case flow.EventNode:
			s.appendTrace(r, ir.TraceNode, ev.NodeID, ev.Graph+"/"+ev.NodeType)
		case flow.EventDefect:
			s.report(r.ctx, r.id, ev.Defect)
		case flow.EventResume:
			s.appendTrace(r, ir.TraceResume, ev.NodeID, "answer")
		case flow.EventCancel:
			s.appendTrace(r, ir.TraceResume, ev.NodeID, "cancel")
		}
	}
}

func (s *System) message(r *run, text string) {
	s.messages = append(s.messages, text)
	s.appendTrace(r, ir.TraceMessage, ir.NoNode, text)
	s.log.Info("ability log", "run_id", r.id, "ability", r.ability.Name, "text", text)
}

// report records a defect. runID is empty for build-time defects.
func (s *System) report(ctx context.Context, runID string, d *graph.Defect) {
	s.defects = append(s.defects, d)
	level := slog.LevelError
	if d.Code.Structural() {
		level = slog.LevelWarn
	}
	s.log.Log(ctx, level, "defect reported",
		"run_id", runID,
		"graph", d.Graph,
		"node_id", d.NodeID,
		"code", string(d.Code),
		"message", d.Message,
	)
	seq := s.clock.Next()
	if runID != "" {
		s.trace = append(s.trace, ir.TraceEntry{Seq: seq, RunID: runID, Kind: ir.TraceDefect, NodeID: d.NodeID, Detail: d.Error()})
	}
	if s.recorder == nil {
		return
	}
	rec := ir.DefectRecord{Seq: seq, RunID: runID, Graph: d.Graph, Code: string(d.Code), NodeID: d.NodeID, Message: d.Message}
	if err := s.recorder.RecordDefect(ctx, rec); err != nil {
		s.log.Warn("record defect failed", "code", string(d.Code), "error", err)
	}
	if runID != "" {
		s.recordTrace(ctx, s.trace[len(s.trace)-1])
	}
}

func (s *System) appendTrace(r *run, kind ir.TraceKind, nodeID int, detail string) {
	e := ir.TraceEntry{Seq: s.clock.Next(), RunID: r.id, Kind: kind, NodeID: nodeID, Detail: detail}
	s.trace = append(s.trace, e)
	s.log.Debug("trace", "seq", e.Seq, "run_id", r.id, "kind", string(kind), "node_id", nodeID, "detail", detail)
	s.recordTrace(r.ctx, e)
}

func (s *System) recordTrace(ctx context.Context, e ir.TraceEntry) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordTrace(ctx, e); err != nil {
		s.log.Warn("record trace failed", "run_id", e.RunID, "seq", e.Seq, "error", err)
	}
}

func (s *System) recordRun(ctx context.Context, r *run, status ir.RunStatus) {
	if s.recorder == nil {
		return
	}
	rec := ir.RunRecord{
		RunID:     r.id,
		Ability:   r.ability.Name,
		GraphHash: r.ability.Hash,
		ParentRun: r.parent,
		Depth:     r.depth,
		Payload:   r.payload,
		Status:    status,
		Seq:       r.seq,
	}
	if err := s.recorder.RecordRun(ctx, rec); err != nil {
		s.log.Warn("record run failed", "run_id", r.id, "status", string(status), "error", err)
	}
}
