package engine

import "log/slog"

const (
	// DefaultMaxSteps bounds node executions per run.
	DefaultMaxSteps = 1000

	// DefaultMaxChainDepth bounds how deep chain effects may nest. A run
	// requested by a caller has depth 0; a run triggered from inside a run of
	// depth d has depth d+1.
	DefaultMaxChainDepth = 32
)

// Option configures a System.
type Option func(*System)

// WithMaxSteps sets the per-run step quota. n <= 0 disables the limit.
func WithMaxSteps(n int) Option {
	return func(s *System) {
		s.maxSteps = n
	}
}

// WithMaxChainDepth sets the deepest chain effect that is still enqueued.
func WithMaxChainDepth(n int) Option {
	return func(s *System) {
		s.maxChainDepth = n
	}
}

// WithRunIDGenerator sets the run id source. Tests use FixedGenerator or
// testutil.SequentialRunIDs for deterministic traces.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(s *System) {
		s.ids = g
	}
}

// WithRecorder mirrors runs, trace entries, defects and parked continuations
// to r.
func WithRecorder(r Recorder) Option {
	return func(s *System) {
		s.recorder = r
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *System) {
		s.log = l
	}
}

// WithClock sets the logical clock, for appending to an existing trace.
func WithClock(c *Clock) Option {
	return func(s *System) {
		s.clock = c
	}
}

// WithRefreshModifiersBetweenRuns refreshes every owner's modifier set each
// time a run finishes. Off by default: modifier sets change only on explicit
// RefreshModifiers calls.
func WithRefreshModifiersBetweenRuns(on bool) Option {
	return func(s *System) {
		s.refreshBetweenRuns = on
	}
}
