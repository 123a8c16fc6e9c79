package flow

import (
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// maxDataDepth bounds recursive pulls through chains of data nodes. A longer
// chain means the data nodes form a cycle.
const maxDataDepth = 64

// ExecContext is what a node sees while it executes or evaluates.
type ExecContext struct {
	// Node is the node being executed.
	Node *graph.Node

	// Graph is the graph of the current frame.
	Graph *graph.Graph

	// RunID identifies the run.
	RunID string

	// Payload is the event context the run was enqueued with.
	Payload ir.IRObject

	// Host is the environment supplied by the caller (owners, enqueueing,
	// events). The interpreter never inspects it.
	Host any

	in    *Interpreter
	fr    *frame
	depth int

	// memo records which data nodes were already evaluated for this node
	// execution and whether they succeeded.
	memo map[int]bool
}

// Config returns the node's configuration.
func (ec *ExecContext) Config() ir.IRObject {
	return ec.Node.Config
}

// Defect builds a defect located at the current node.
func (ec *ExecContext) Defect(code graph.DefectCode, format string, args ...any) *graph.Defect {
	d := graph.NewDefect(code, ec.Node.ID, "", format, args...)
	d.Graph = ec.Graph.Name
	return d
}

// Report records a defect without changing the flow.
func (ec *ExecContext) Report(err error) {
	d := toDefect(err)
	if d == nil {
		return
	}
	if d.Graph == "" {
		d.Graph = ec.Graph.Name
	}
	if d.NodeID == graph.NoNode {
		d.NodeID = ec.Node.ID
	}
	ec.in.report(d)
}

// Connected reports whether the named inport has a source.
func (ec *ExecContext) Connected(name string) bool {
	p := ec.Graph.PortOf(ec.Node.ID, name)
	if p == nil {
		return false
	}
	_, ok := ec.Graph.Source(p.ID())
	return ok
}

// Input returns the value arriving at the named inport.
//
// A data node feeding the port is evaluated on the first pull and reused for
// the rest of the current node execution; a flow node feeding it contributes
// whatever it last wrote in this frame. The second return is false when
// nothing is connected or no value was produced.
func (ec *ExecContext) Input(name string) (ir.IRValue, bool) {
	p := ec.Graph.PortOf(ec.Node.ID, name)
	if p == nil || !p.IsInport() {
		return nil, false
	}
	src, ok := ec.Graph.Source(p.ID())
	if !ok {
		return nil, false
	}
	srcNode := ec.Graph.Node(src.NodeID())
	if srcNode != nil && !srcNode.IsFlow() {
		if !ec.evaluate(srcNode) {
			return nil, false
		}
	}
	v, ok := ec.fr.values[src.ID()]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (ec *ExecContext) evaluate(n *graph.Node) bool {
	if done, seen := ec.memo[n.ID]; seen {
		return done
	}
	db, ok := n.Behavior.(DataBehavior)
	if !ok {
		return false
	}
	sub := ec.derive(n)
	if sub.depth > maxDataDepth {
		ec.Report(sub.Defect(graph.DefectEvaluationFailed, "data evaluation deeper than %d nodes", maxDataDepth))
		return false
	}
	err := db.Evaluate(sub)
	if err != nil {
		sub.Report(err)
	}
	if ec.memo != nil {
		ec.memo[n.ID] = err == nil
	}
	return err == nil
}

func (ec *ExecContext) derive(n *graph.Node) *ExecContext {
	return &ExecContext{
		Node:    n,
		Graph:   ec.Graph,
		RunID:   ec.RunID,
		Payload: ec.Payload,
		Host:    ec.Host,
		in:      ec.in,
		fr:      ec.fr,
		depth:   ec.depth + 1,
		memo:    ec.memo,
	}
}

func (ec *ExecContext) missing(name, want string) *graph.Defect {
	d := graph.NewDefect(graph.DefectMissingInput, ec.Node.ID, name, "input %q has no %s value", name, want)
	d.Graph = ec.Graph.Name
	return d
}

// InputInt returns the named input as an integer, or a MISSING_INPUT defect.
func (ec *ExecContext) InputInt(name string) (int64, error) {
	v, ok := ec.Input(name)
	if !ok {
		return 0, ec.missing(name, "int")
	}
	n, ok := ir.AsInt(v)
	if !ok {
		return 0, ec.missing(name, "int")
	}
	return n, nil
}

// InputBool returns the named input as a bool, or a MISSING_INPUT defect.
func (ec *ExecContext) InputBool(name string) (bool, error) {
	v, ok := ec.Input(name)
	if !ok {
		return false, ec.missing(name, "bool")
	}
	b, ok := ir.AsBool(v)
	if !ok {
		return false, ec.missing(name, "bool")
	}
	return b, nil
}

// InputString returns the named input as a string, or a MISSING_INPUT defect.
func (ec *ExecContext) InputString(name string) (string, error) {
	v, ok := ec.Input(name)
	if !ok {
		return "", ec.missing(name, "string")
	}
	s, ok := ir.AsString(v)
	if !ok {
		return "", ec.missing(name, "string")
	}
	return s, nil
}

// SetOutput stores a value on one of the node's outports for this frame.
func (ec *ExecContext) SetOutput(name string, v ir.IRValue) error {
	p := ec.Graph.PortOf(ec.Node.ID, name)
	if p == nil || p.IsInport() {
		d := graph.NewDefect(graph.DefectMissingPort, ec.Node.ID, name, "node has no outport %q", name)
		d.Graph = ec.Graph.Name
		return d
	}
	ec.fr.values[p.ID()] = v
	return nil
}

// Local returns a per-run value the node stored for itself, e.g. a loop
// counter.
func (ec *ExecContext) Local(key string) (ir.IRValue, bool) {
	vals, ok := ec.fr.locals[ec.Node.ID]
	if !ok {
		return nil, false
	}
	v, ok := vals[key]
	return v, ok
}

// SetLocal stores a per-run value for the node.
func (ec *ExecContext) SetLocal(key string, v ir.IRValue) {
	vals, ok := ec.fr.locals[ec.Node.ID]
	if !ok {
		vals = ir.IRObject{}
		ec.fr.locals[ec.Node.ID] = vals
	}
	vals[key] = v
}

// ClearLocals drops every value the node stored.
func (ec *ExecContext) ClearLocals() {
	delete(ec.fr.locals, ec.Node.ID)
}
