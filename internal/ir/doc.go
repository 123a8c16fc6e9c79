// Package ir provides the canonical intermediate representation shared by every
// layer of the ability system.
//
// It holds the sealed value family used for node configuration, payloads, port
// values and choice answers, the structural graph description consumed by the
// factory, and the record types written by the run log.
//
// ir imports nothing internal. All other internal packages may import it.
//
// Key design constraints:
//   - NO float types anywhere - stats and port values are int64
//   - All JSON tags use snake_case
//   - Logical clocks (seq) only, never wall-clock timestamps
//   - Content hashes use canonical JSON (RFC 8785) with domain separation
package ir
