// Package factory turns graph descriptions into executable graphs.
//
// A Registry maps node type names to constructors. Build walks a
// description, resolves and configures every node, wires every edge and
// picks the entry node. Problems never abort the build: each one becomes a
// *graph.Defect, the defective element is skipped, and the partial graph is
// returned alongside the full defect list.
package factory
