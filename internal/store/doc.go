// Package store provides SQLite-backed durable storage for ability run logs.
//
// The store implements engine.Recorder with four tables:
//   - runs: one row per run, upserted as its status changes
//   - trace: append-only trace entries
//   - defects: structural and evaluation defects
//   - parked: canonical continuation snapshots of runs awaiting a choice
//
// # Ordering
//
// All ordering uses the seq column (the engine's logical clock), never
// timestamps. Queries order by seq ASC so reads are deterministic.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
