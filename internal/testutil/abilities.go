package testutil

import "github.com/roach88/flexi/internal/ir"

// Sample abilities shared by the node, engine and harness tests. They use the
// built-in node library and the stats HEALTH and ATTACK.

// Stat names used by the sample abilities.
const (
	StatHealth = "HEALTH"
	StatAttack = "ATTACK"
)

func payloadField(field string) ir.IRObject {
	return Text("field", field)
}

func statField(name string) ir.IRObject {
	return Text("stat", name)
}

// HelloWorld logs "Hello" then "World!".
func HelloWorld() ir.GraphDescription {
	return Ability("hello_world").
		Node(1, "entry.start", nil).
		Node(2, "flow.log", Text("text", "Hello")).
		Node(3, "flow.log", Text("text", "World!")).
		Flow(1, 2).
		Flow(2, 3).
		Build()
}

// HelloWorldMissingElements is HelloWorld with an unknown node type in the
// middle: one UNRESOLVED_TYPE and two edges that cannot be wired.
func HelloWorldMissingElements() ir.GraphDescription {
	return Ability("hello_world_missing").
		Node(1, "entry.start", nil).
		Node(2, "flow.log", Text("text", "Hello")).
		Node(3, "flow.shout", Text("text", "!!!")).
		Node(4, "flow.log", Text("text", "World!")).
		Flow(1, 2).
		Flow(2, 3).
		Flow(3, 4).
		Build()
}

// NormalAttack damages payload "target" by the ATTACK of payload "attacker".
func NormalAttack() ir.GraphDescription {
	return Ability("normal_attack").
		Node(1, "entry.start", nil).
		Node(2, "data.payload", payloadField("attacker")).
		Node(3, "data.payload", payloadField("target")).
		Node(4, "data.stat", statField(StatAttack)).
		Node(5, "combat.damage", nil).
		Flow(1, 5).
		Edge(2, "value", 4, "owner").
		Edge(3, "value", 5, "target").
		Edge(4, "value", 5, "amount").
		Edge(2, "value", 5, "instigator").
		Build()
}

// NormalAttack5Times is NormalAttack inside a five-iteration loop.
func NormalAttack5Times() ir.GraphDescription {
	return Ability("normal_attack_5_times").
		Node(1, "entry.start", nil).
		Node(2, "flow.for", Int("count", 5)).
		Node(3, "data.payload", payloadField("attacker")).
		Node(4, "data.payload", payloadField("target")).
		Node(5, "data.stat", statField(StatAttack)).
		Node(6, "combat.damage", nil).
		Flow(1, 2).
		FlowVia(2, "loop", 6).
		Edge(3, "value", 5, "owner").
		Edge(4, "value", 6, "target").
		Edge(5, "value", 6, "amount").
		Edge(3, "value", 6, "instigator").
		Build()
}

func doubleOwnAttack(name string, entryType string, entryCfg ir.IRObject) ir.GraphDescription {
	return Ability(name).
		Node(1, entryType, entryCfg).
		Node(2, "data.self", nil).
		Node(3, "data.stat", statField(StatAttack)).
		Node(4, "math.mul", Int("b", 2)).
		Node(5, "stat.set", statField(StatAttack)).
		Flow(1, 5).
		Edge(2, "owner", 3, "owner").
		Edge(3, "value", 4, "a").
		Edge(2, "owner", 5, "owner").
		Edge(4, "value", 5, "amount").
		Build()
}

func whenDamaged() ir.IRObject {
	return ir.Obj(ir.O("event", ir.IRString("damaged")), ir.O("self", ir.IRString("target")))
}

// AttackDouble doubles its owner's ATTACK.
func AttackDouble() ir.GraphDescription {
	return doubleOwnAttack("attack_double", "entry.start", nil)
}

// AttackDoubleWhenDamaged doubles its owner's ATTACK whenever the owner is
// the target of a "damaged" event.
func AttackDoubleWhenDamaged() ir.GraphDescription {
	return doubleOwnAttack("attack_double_when_damaged", "entry.event", whenDamaged())
}

// AttackDecrease lowers payload "target"'s ATTACK by 2.
func AttackDecrease() ir.GraphDescription {
	return Ability("attack_decrease").
		Node(1, "entry.start", nil).
		Node(2, "data.payload", payloadField("target")).
		Node(3, "stat.modify", ir.Obj(ir.O("stat", ir.IRString(StatAttack)), ir.O("amount", ir.IRInt(-2)))).
		Flow(1, 3).
		Edge(2, "value", 3, "owner").
		Build()
}

// CounterAttack hits back at the instigator whenever its owner is damaged.
func CounterAttack() ir.GraphDescription {
	return Ability("counter_attack").
		Node(1, "entry.event", whenDamaged()).
		Node(2, "data.self", nil).
		Node(3, "data.payload", payloadField("instigator")).
		Node(4, "data.stat", statField(StatAttack)).
		Node(5, "combat.damage", nil).
		Flow(1, 5).
		Edge(2, "owner", 4, "owner").
		Edge(3, "value", 5, "target").
		Edge(4, "value", 5, "amount").
		Edge(2, "owner", 5, "instigator").
		Build()
}

// LogWhenAttacked logs two lines when its owner is damaged.
func LogWhenAttacked() ir.GraphDescription {
	return Ability("log_when_attacked").
		Node(1, "entry.event", whenDamaged()).
		Node(2, "flow.log", Text("text", "I'm damaged!")).
		Node(3, "flow.log", Text("text", "I will revenge!")).
		Flow(1, 2).
		Flow(2, 3).
		Build()
}

// NormalAttackSelection asks for a target, then damages it by the ATTACK of
// payload "activator".
func NormalAttackSelection() ir.GraphDescription {
	return Ability("normal_attack_selection").
		Node(1, "entry.start", nil).
		Node(2, "choice.target", nil).
		Node(3, "data.payload", payloadField("activator")).
		Node(4, "data.stat", statField(StatAttack)).
		Node(5, "combat.damage", nil).
		Flow(1, 2).
		Flow(2, 5).
		Edge(2, "target", 5, "target").
		Edge(3, "value", 4, "owner").
		Edge(4, "value", 5, "amount").
		Edge(3, "value", 5, "instigator").
		Build()
}

// HelloWorldMacro is the macro "hello_macro": logs "Hello World!".
func HelloWorldMacro() ir.GraphDescription {
	return Macro("hello_macro").
		Node(1, "flow.log", Text("text", "Hello World!")).
		Flow(-1, 1).
		Build()
}

// HelloWorldMacroCaller calls hello_macro, then logs "end".
func HelloWorldMacroCaller() ir.GraphDescription {
	return Ability("hello_world_macro_caller").
		Node(1, "entry.start", nil).
		Node(2, "macro.call", Text("macro", "hello_macro")).
		Node(3, "flow.log", Text("text", "end")).
		Flow(1, 2).
		Flow(2, 3).
		Build()
}

// HelloWorldMacroCaller5Times calls hello_macro five times, then logs "end".
func HelloWorldMacroCaller5Times() ir.GraphDescription {
	return Ability("hello_world_macro_caller_5_times").
		Node(1, "entry.start", nil).
		Node(2, "flow.for", Int("count", 5)).
		Node(3, "macro.call", Text("macro", "hello_macro")).
		Node(4, "flow.log", Text("text", "end")).
		Flow(1, 2).
		FlowVia(2, "loop", 3).
		FlowVia(2, "done", 4).
		Build()
}

// AttackPayload builds a payload for the attack abilities.
func AttackPayload(attacker, target int64) ir.IRObject {
	return ir.Obj(ir.O("attacker", ir.IRInt(attacker)), ir.O("target", ir.IRInt(target)))
}
