package engine

import (
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/stats"
)

// runHost is the nodes.Host a run's node effects act on. Everything it
// triggers is appended to the run queue; nothing runs re-entrantly.
type runHost struct {
	sys *System
	run *run
}

func (h *runHost) Owner(id int64) *stats.Owner { return h.sys.repo.GetOwner(id) }

func (h *runHost) Self() int64 { return h.run.ability.Owner }

func (h *runHost) StatID(name string) (stats.StatID, bool) { return h.sys.repo.Lookup(name) }

// Enqueue appends a run of the named ability, bound like the ability that was
// last instantiated under that name.
func (h *runHost) Enqueue(name string, payload ir.IRObject) error {
	ab, ok := h.sys.byName[name]
	if !ok {
		return graph.NewDefect(graph.DefectMissingAbility, graph.NoNode, "", "ability %q is not loaded", name)
	}
	depth := h.run.depth + 1
	if depth > h.sys.maxChainDepth {
		return graph.NewDefect(graph.DefectChainTooDeep, graph.NoNode, "", "run of %q would reach chain depth %d > %d", name, depth, h.sys.maxChainDepth)
	}
	r := h.sys.newRun(ab, payload, h.run.id, depth)
	if !h.sys.enqueue(h.run.ctx, r) {
		return graph.NewDefect(graph.DefectEvaluationFailed, graph.NoNode, "", "run queue is closed")
	}
	return nil
}

// Emit raises an event: every bound ability whose entry accepts it is
// enqueued one chain level below the current run.
func (h *runHost) Emit(event string, fields ir.IRObject) {
	h.sys.trigger(h.run.ctx, event, fields, h.run)
}

// Log appends a message to the trace.
func (h *runHost) Log(text string) {
	h.sys.message(h.run, text)
}
