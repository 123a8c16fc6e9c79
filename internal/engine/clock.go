package engine

import "sync/atomic"

// Clock is the logical clock that orders run records and trace entries.
//
// Every trace entry and run record is stamped with a strictly increasing seq
// from Next. Wall-clock time is never used for ordering, so the same
// sequence of calls always yields the same trace.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start. The store uses it to keep
// numbering a trace that already has entries.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
