package graph

import (
	"errors"
	"fmt"

	"github.com/roach88/flexi/internal/ir"
)

// NoNode marks a defect that is not tied to a node.
const NoNode = ir.NoNode

// DefectCode categorizes a reported defect.
type DefectCode string

// Structural defects: found while building or editing a graph. The defective
// element is omitted and construction continues.
const (
	DefectUnresolvedType    DefectCode = "UNRESOLVED_TYPE"
	DefectInvalidConfig     DefectCode = "INVALID_CONFIG"
	DefectDuplicateNode     DefectCode = "DUPLICATE_NODE"
	DefectDuplicatePort     DefectCode = "DUPLICATE_PORT"
	DefectMissingNode       DefectCode = "MISSING_NODE"
	DefectMissingPort       DefectCode = "MISSING_PORT"
	DefectInvalidConnection DefectCode = "INVALID_CONNECTION"
	DefectDuplicateTarget   DefectCode = "DUPLICATE_TARGET"
	DefectRenameConflict    DefectCode = "RENAME_CONFLICT"
	DefectMissingEntry      DefectCode = "MISSING_ENTRY"
	DefectInvalidEntry      DefectCode = "INVALID_ENTRY"
)

// Evaluation defects: found while a run executes. The affected node degrades
// to a no-op or terminates its run; the system keeps going.
const (
	DefectMissingInput     DefectCode = "MISSING_INPUT"
	DefectInvalidAnswer    DefectCode = "INVALID_ANSWER"
	DefectMissingMacro     DefectCode = "MISSING_MACRO"
	DefectMissingAbility   DefectCode = "MISSING_ABILITY"
	DefectStepsExceeded    DefectCode = "STEPS_EXCEEDED"
	DefectChainTooDeep     DefectCode = "CHAIN_TOO_DEEP"
	DefectEvaluationFailed DefectCode = "EVALUATION_FAILED"
)

// Structural reports whether the code belongs to the structural category.
func (c DefectCode) Structural() bool {
	switch c {
	case DefectUnresolvedType, DefectInvalidConfig, DefectDuplicateNode, DefectDuplicatePort,
		DefectMissingNode, DefectMissingPort, DefectInvalidConnection, DefectDuplicateTarget,
		DefectRenameConflict, DefectMissingEntry, DefectInvalidEntry:
		return true
	}
	return false
}

// Defect is a recoverable problem in a graph or in one evaluation of a node.
//
// Defects are values, not faults: the graph factory, the interpreter and the
// ability system all return or collect them and continue, so one malformed
// asset yields its complete list of problems in a single pass.
type Defect struct {
	// Code identifies the defect category.
	Code DefectCode

	// Graph names the graph the defect was found in.
	Graph string

	// NodeID identifies the offending node, NoNode when not node-specific.
	NodeID int

	// Port names the offending port, if any.
	Port string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (d *Defect) Error() string {
	loc := d.Graph
	if d.NodeID != NoNode {
		loc = fmt.Sprintf("%s#%d", loc, d.NodeID)
	}
	if d.Port != "" {
		loc = fmt.Sprintf("%s.%s", loc, d.Port)
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", d.Code, d.Message, loc)
}

// NewDefect creates a defect. Graph is filled in by the caller that knows it.
func NewDefect(code DefectCode, nodeID int, port, format string, args ...any) *Defect {
	return &Defect{
		Code:    code,
		NodeID:  nodeID,
		Port:    port,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsDefect unwraps err into a *Defect.
func AsDefect(err error) (*Defect, bool) {
	var d *Defect
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// IsDefect reports whether err is a defect with the given code.
// Uses errors.As to handle wrapped errors.
func IsDefect(err error, code DefectCode) bool {
	d, ok := AsDefect(err)
	return ok && d.Code == code
}

// CountCode returns how many defects carry code.
func CountCode(defects []*Defect, code DefectCode) int {
	n := 0
	for _, d := range defects {
		if d.Code == code {
			n++
		}
	}
	return n
}
