package nodes

import (
	"github.com/roach88/flexi/internal/flow"
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// DamagedEvent is the event combat.damage emits by default.
const DamagedEvent = "damaged"

// StatEffectNode changes an owner's stat and refreshes the owner's stats.
// Modifier sets are never refreshed here.
//
// Config: stat (string, required), amount (int, optional fallback for the
// amount inport), refresh (bool, default true).
type StatEffectNode struct {
	Stat    string
	Set     bool
	Refresh bool
}

func newStatEffect(set bool) func(cfg ir.IRObject) (graph.Behavior, error) {
	return func(cfg ir.IRObject) (graph.Behavior, error) {
		name, err := requireString(cfg, "stat")
		if err != nil {
			return nil, err
		}
		if _, _, err := optionalInt(cfg, "amount"); err != nil {
			return nil, err
		}
		refresh := true
		if b, ok := cfg.GetBool("refresh"); ok {
			refresh = b
		}
		return StatEffectNode{Stat: name, Set: set, Refresh: refresh}, nil
	}
}

// Ports implements graph.Behavior.
func (StatEffectNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.FlowIn(),
		graph.FlowOut(graph.PortNext),
		graph.Inport("owner", graph.TypeOwner),
		graph.Inport("amount", graph.TypeInt),
	}
}

// Execute implements flow.FlowBehavior. Missing inputs make the node a no-op.
func (n StatEffectNode) Execute(ec *flow.ExecContext) flow.Result {
	h, err := hostOf(ec)
	if err != nil {
		return flow.Fail(err)
	}
	o, err := inputOwner(ec, h, "owner")
	if err != nil {
		return flow.Next().WithDefect(err)
	}
	id, err := resolveStat(ec, h, n.Stat)
	if err != nil {
		return flow.Next().WithDefect(err)
	}
	amount, err := operand(ec, "amount")
	if err != nil {
		return flow.Next().WithDefect(err)
	}
	if n.Set {
		err = o.SetStat(id, amount)
	} else {
		err = o.ModifyStat(id, amount)
	}
	if err != nil {
		return flow.Next().WithDefect(ec.Defect(graph.DefectEvaluationFailed, "%v", err))
	}
	if n.Refresh {
		o.RefreshStats()
	}
	return flow.Next()
}

// RefreshNode refreshes an owner's stats.
type RefreshNode struct{}

func newRefresh(ir.IRObject) (graph.Behavior, error) { return RefreshNode{}, nil }

// Ports implements graph.Behavior.
func (RefreshNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.FlowIn(),
		graph.FlowOut(graph.PortNext),
		graph.Inport("owner", graph.TypeOwner),
	}
}

// Execute implements flow.FlowBehavior.
func (RefreshNode) Execute(ec *flow.ExecContext) flow.Result {
	h, err := hostOf(ec)
	if err != nil {
		return flow.Fail(err)
	}
	o, err := inputOwner(ec, h, "owner")
	if err != nil {
		return flow.Next().WithDefect(err)
	}
	o.RefreshStats()
	return flow.Next()
}

// DamageNode subtracts amount from the target's stat, refreshes the target
// and emits an event carrying target, instigator and amount.
//
// Config: stat (default "HEALTH"), event (default "damaged"), amount.
type DamageNode struct {
	Stat  string
	Event string
}

func newDamage(cfg ir.IRObject) (graph.Behavior, error) {
	stat, err := optionalString(cfg, "stat", "HEALTH")
	if err != nil {
		return nil, err
	}
	event, err := optionalString(cfg, "event", DamagedEvent)
	if err != nil {
		return nil, err
	}
	if _, _, err := optionalInt(cfg, "amount"); err != nil {
		return nil, err
	}
	return DamageNode{Stat: stat, Event: event}, nil
}

// Ports implements graph.Behavior.
func (DamageNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.FlowIn(),
		graph.FlowOut(graph.PortNext),
		graph.Inport("target", graph.TypeOwner),
		graph.Inport("amount", graph.TypeInt),
		graph.Inport("instigator", graph.TypeOwner),
	}
}

// Execute implements flow.FlowBehavior.
func (n DamageNode) Execute(ec *flow.ExecContext) flow.Result {
	h, err := hostOf(ec)
	if err != nil {
		return flow.Fail(err)
	}
	target, err := inputOwner(ec, h, "target")
	if err != nil {
		return flow.Next().WithDefect(err)
	}
	id, err := resolveStat(ec, h, n.Stat)
	if err != nil {
		return flow.Next().WithDefect(err)
	}
	amount, err := operand(ec, "amount")
	if err != nil {
		return flow.Next().WithDefect(err)
	}
	if err := target.ModifyStat(id, -amount); err != nil {
		return flow.Next().WithDefect(ec.Defect(graph.DefectEvaluationFailed, "%v", err))
	}
	target.RefreshStats()

	fields := ir.Obj(
		ir.O("target", ir.IRInt(target.ID())),
		ir.O("amount", ir.IRInt(amount)),
	)
	if ec.Connected("instigator") {
		if inst, err := ec.InputInt("instigator"); err == nil {
			fields["instigator"] = ir.IRInt(inst)
		}
	}
	if n.Event != "" {
		h.Emit(n.Event, fields)
	}
	return flow.Next()
}

// RunAbilityNode enqueues another ability with the current payload. The
// ability runs after the current run, never inside it.
//
// Config: ability (string, required).
type RunAbilityNode struct {
	Ability string
}

func newRunAbility(cfg ir.IRObject) (graph.Behavior, error) {
	name, err := requireString(cfg, "ability")
	if err != nil {
		return nil, err
	}
	return RunAbilityNode{Ability: name}, nil
}

// Ports implements graph.Behavior.
func (RunAbilityNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{graph.FlowIn(), graph.FlowOut(graph.PortNext)}
}

// Execute implements flow.FlowBehavior.
func (n RunAbilityNode) Execute(ec *flow.ExecContext) flow.Result {
	h, err := hostOf(ec)
	if err != nil {
		return flow.Fail(err)
	}
	if err := h.Enqueue(n.Ability, ec.Payload.Clone()); err != nil {
		return flow.Next().WithDefect(err)
	}
	return flow.Next()
}

// EmitNode raises an event. With target connected the event carries it.
//
// Config: event (string, required).
type EmitNode struct {
	Event string
}

func newEmit(cfg ir.IRObject) (graph.Behavior, error) {
	ev, err := requireString(cfg, "event")
	if err != nil {
		return nil, err
	}
	return EmitNode{Event: ev}, nil
}

// Ports implements graph.Behavior.
func (EmitNode) Ports() []graph.PortSpec {
	return []graph.PortSpec{
		graph.FlowIn(),
		graph.FlowOut(graph.PortNext),
		graph.Inport("target", graph.TypeOwner),
	}
}

// Execute implements flow.FlowBehavior.
func (n EmitNode) Execute(ec *flow.ExecContext) flow.Result {
	h, err := hostOf(ec)
	if err != nil {
		return flow.Fail(err)
	}
	fields := ir.IRObject{}
	if ec.Connected("target") {
		id, err := ec.InputInt("target")
		if err != nil {
			return flow.Next().WithDefect(err)
		}
		fields["target"] = ir.IRInt(id)
	}
	h.Emit(n.Event, fields)
	return flow.Next()
}
