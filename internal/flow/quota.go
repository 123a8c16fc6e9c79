package flow

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts node executions for one run and enforces a maximum.
//
// Loops and recursive macros make it possible to author a graph that never
// reaches a dead end; the quota guarantees every run terminates.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates an enforcer. maxSteps <= 0 disables the limit.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check counts one step and returns StepsExceededError once the limit is
// passed.
func (q *QuotaEnforcer) Check(runID string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			RunID: runID,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the number of steps taken.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxSteps returns the configured limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError terminates a run that executed too many nodes.
type StepsExceededError struct {
	RunID string
	Steps int
	Limit int
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max steps quota: %d steps > %d limit",
		e.RunID, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
