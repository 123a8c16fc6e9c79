package nodes

import (
	"fmt"

	"github.com/roach88/flexi/internal/factory"
	"github.com/roach88/flexi/internal/graph"
)

func builtins() []factory.Registration {
	return []factory.Registration{
		{Type: "entry.start", New: newStart, Entry: true},
		{Type: "entry.event", New: newEvent, Entry: true},

		{Type: "flow.log", New: newLog},
		{Type: "flow.if", New: newIf},
		{Type: "flow.for", New: newFor},
		{Type: "flow.end", New: newEnd},

		{Type: "data.int", New: newConst(graph.TypeInt)},
		{Type: "data.bool", New: newConst(graph.TypeBool)},
		{Type: "data.string", New: newConst(graph.TypeString)},
		{Type: "data.payload", New: newPayload},
		{Type: "data.self", New: newSelf},
		{Type: "data.stat", New: newStatRead},

		{Type: "math.add", New: newArith(func(a, b int64) int64 { return a + b })},
		{Type: "math.sub", New: newArith(func(a, b int64) int64 { return a - b })},
		{Type: "math.mul", New: newArith(func(a, b int64) int64 { return a * b })},
		{Type: "logic.compare", New: newCompare},

		{Type: "stat.modify", New: newStatEffect(false)},
		{Type: "stat.set", New: newStatEffect(true)},
		{Type: "stat.refresh", New: newRefresh},
		{Type: "combat.damage", New: newDamage},

		{Type: "ability.run", New: newRunAbility},
		{Type: "event.emit", New: newEmit},
		{Type: "choice.target", New: newTargetChoice},

		{Type: "macro.call", New: newMacroCall},
		{Type: factory.MacroInputType, New: newMacroInput},
		{Type: "macro.output", New: newMacroOutput},
	}
}

// RegisterBuiltins installs every built-in node type.
func RegisterBuiltins(reg *factory.Registry) error {
	for _, r := range builtins() {
		if err := reg.Register(r); err != nil {
			return fmt.Errorf("register builtins: %w", err)
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in node types.
func NewRegistry() *factory.Registry {
	reg := factory.NewRegistry()
	if err := RegisterBuiltins(reg); err != nil {
		panic(err)
	}
	return reg
}
