// Package nodes is the built-in node library.
//
// RegisterBuiltins installs every node type into a factory.Registry. Node
// effects reach the game world only through the Host interface, which the
// ability system implements per run.
//
// Type names:
//
//	entry.start    entry.event
//	flow.log       flow.if        flow.for       flow.end
//	data.int       data.bool      data.string    data.payload   data.self
//	data.stat      math.add       math.sub       math.mul       logic.compare
//	stat.modify    stat.set       stat.refresh   combat.damage
//	ability.run    event.emit     choice.target
//	macro.call     macro.input    macro.output
package nodes
