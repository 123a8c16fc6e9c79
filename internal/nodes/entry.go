package nodes

import (
	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// StartNode is the unconditional entry.
type StartNode struct{}

func newStart(ir.IRObject) (graph.Behavior, error) { return StartNode{}, nil }

// Ports implements graph.Behavior.
func (StartNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowOut(graph.PortNext)}
}

// Execute implements flow.FlowBehavior.
func (StartNode) Execute(*flow.ExecContext) flow.Result { return flow.Next() }

// EventNode is an entry that runs only for one event. With Self set, the
// payload field of that name must also reference the ability's owner.
//
// Config: event (string, required), self (string, optional).
type EventNode struct {
	Event string
	Self  string
}

func newEvent(cfg ir.IRObject) (graph.Behavior, error) {
	ev, err := requireString(cfg, "event")
	if err != nil {
		return nil, err
	}
	self, err := optionalString(cfg, "self", "")
	if err != nil {
		return nil, err
	}
	return EventNode{Event: ev, Self: self}, nil
}

// Ports implements graph.Behavior.
func (EventNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowOut(graph.PortNext)}
}

// Execute implements flow.FlowBehavior.
func (EventNode) Execute(*flow.ExecContext) flow.Result { return flow.Next() }

// Accepts implements flow.Gate.
func (n EventNode) Accepts(ec *flow.ExecContext) bool {
	ev, _ := ec.Payload.GetString(EventField)
	if ev != n.Event {
		return false
	}
	if n.Self == "" {
		return true
	}
	h, ok := ec.Host.(Host)
	if !ok {
		return false
	}
	id, ok := ec.Payload.GetInt(n.Self)
	return ok && id == h.Self() && id != 0
}

// EventField is the payload field that carries an event name.
const EventField = "event"
