// Package harness runs conformance scenarios against the ability system.
//
// A scenario compiles CUE specs, creates owners, drives the system through a
// list of steps and checks assertions over the final state and trace.
//
// # Scenario Format
//
//	name: double_when_damaged
//	description: "Damage triggers the appended ability"
//	specs:
//	  - ../specs/combat.cue
//	config:
//	  max_chain_depth: 8
//	owners:
//	  - name: hero
//	    stats: { HEALTH: 25, ATTACK: 2 }
//	  - name: goblin
//	    stats: { HEALTH: 6, ATTACK: 4 }
//	    abilities: [attack_double_when_damaged]
//	steps:
//	  - run: normal_attack
//	    payload: { attacker: "@hero", target: "@goblin" }
//	  - resume: { target: "@goblin" }
//	assertions:
//	  - type: stat
//	    owner: goblin
//	    stat: ATTACK
//	    value: 8
//	  - type: trace_order
//	    entries: ["run_start:normal_attack", "run_start:attack_double_when_damaged"]
//
// Strings of the form "@name" in payloads, event fields and answers are
// replaced by the id of the named owner.
//
// # Steps
//
//   - run: enqueue an ability with payload and drive the queue
//   - trigger: raise an external event with fields
//   - resume / cancel: answer or abort the parked choice
//   - refresh / refresh_modifiers: recompute stats or rule-derived modifiers
//   - set_stat: overwrite an owner's current base
//   - remove_owner: remove an owner from the repository
//
// # Assertion Types
//
//   - stat: compares a stat's base, value or original base
//   - modifier_count: counts an owner's modifiers
//   - messages: exact log output
//   - defect_count: counts defects, optionally of one code
//   - choice_pending: whether a run is parked on a choice
//   - trace_order: "kind" or "kind:detail" entries appear in order
//   - trace_count: an entry appears exactly N times
//
// # Deterministic Testing
//
// Run ids are sequential and the logical clock starts at zero, so identical
// scenarios produce identical traces. RunWithGolden compares the canonical
// JSON trace against testdata/golden/{name}.golden.
package harness
