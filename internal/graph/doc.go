// Package graph implements the ability graph model: nodes, typed ports and
// directed connections.
//
// The Graph owns every Node and Port. Ports live in an arena indexed by PortID
// and connections reference ports by id, so cyclic graphs (loops, back edges)
// never create reference cycles between Go values, and renaming a port never
// disturbs the connections that reference it.
//
// Invariants enforced here:
//   - port names are unique within a node
//   - an Inport holds at most one incoming connection; an Outport may fan out
//   - connections join an Outport to an Inport of a compatible type
//   - the entry node has no Previous
//
// Every violation is returned as a *Defect. Nothing in this package panics on
// malformed input; callers collect defects and carry on.
package graph
