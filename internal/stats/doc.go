// Package stats implements stat pools and the two-pass modifier engine.
//
// Each Owner holds stats keyed by StatID. A Stat has an immutable original
// base, a mutable current base and a derived current value. The current value
// changes only when RefreshStats runs the owner's Algorithm; the default
// algorithm applies every additive modifier first and every multiplicative
// modifier second. That order is part of the contract.
//
// Conditional modifiers (rules) are never evaluated implicitly. RefreshModifiers
// re-evaluates every rule guard against current values, rebuilds the set of
// rule-derived modifiers and refreshes stats again. Nothing in the ability
// engine calls it mid-run.
package stats
