// Package flow implements the flow interpreter: the state machine that walks
// a graph of flow nodes from its entry node.
//
// The interpreter owns a stack of frames. The root frame walks the ability
// graph; a macro call pushes a frame rooted at the macro's input node and the
// end of the macro pops back to the caller's continuation. Each frame keeps
// its own loop stack, so loops and macros nest by frame depth rather than by
// rewriting the graph.
//
// State machine:
//
//	ready -> running -> done
//	            |  ^
//	            v  |
//	      awaiting-choice
//
// When a node requests a choice the interpreter stops in awaiting-choice and
// keeps its complete state: the frame stack, cursors, loop stacks, per-frame
// port values and the pending node. Resume continues from the parked node;
// Snapshot serializes the same state as a canonical ir.IRObject.
//
// Node behavior is reached through small interfaces. FlowBehavior is executed
// when the cursor lands on a node; DataBehavior is evaluated on demand when a
// flow node pulls one of its inputs, at most once per node execution.
package flow
