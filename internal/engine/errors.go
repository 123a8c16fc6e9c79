package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a misuse of the run queue reported to the caller.
//
// Problems inside a run are defects, not RuntimeErrors: they are collected
// and the run continues or ends. RuntimeError covers calls the system cannot
// honour at all.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, when there is one.
	RunID string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNotParked means Resume was called while no run awaits a choice.
	ErrCodeNotParked RuntimeErrorCode = "NOT_PARKED"

	// ErrCodeClosed means the system no longer accepts runs.
	ErrCodeClosed RuntimeErrorCode = "CLOSED"

	// ErrCodeUnknownOwner means an owner id does not name a live owner.
	ErrCodeUnknownOwner RuntimeErrorCode = "UNKNOWN_OWNER"

	// ErrCodeBusy means a run is already active or parked.
	ErrCodeBusy RuntimeErrorCode = "BUSY"

	// ErrCodeNotRestorable means a stored continuation cannot be turned back
	// into a parked run: wrong status, tampered snapshot or unknown ability.
	ErrCodeNotRestorable RuntimeErrorCode = "NOT_RESTORABLE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func isCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsNotParked reports whether err is a resume without a parked run.
func IsNotParked(err error) bool { return isCode(err, ErrCodeNotParked) }

// IsClosed reports whether err comes from a closed system.
func IsClosed(err error) bool { return isCode(err, ErrCodeClosed) }

// IsUnknownOwner reports whether err names a missing owner.
func IsUnknownOwner(err error) bool { return isCode(err, ErrCodeUnknownOwner) }

// IsBusy reports whether err was refused because a run is active.
func IsBusy(err error) bool { return isCode(err, ErrCodeBusy) }

// IsNotRestorable reports whether err comes from a continuation that cannot
// be restored.
func IsNotRestorable(err error) bool { return isCode(err, ErrCodeNotRestorable) }
