package harness

import (
	"github.com/roach88/flexi/internal/graph"
	"github.com/roach88/flexi/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion holds.
	Pass bool `json:"pass"`

	// Trace is the system's ordered execution trace.
	Trace []ir.TraceEntry `json:"trace"`

	// Messages is the log output in emission order.
	Messages []string `json:"messages"`

	// Defects lists every defect reported while building and running graphs.
	Defects []*graph.Defect `json:"-"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []ir.TraceEntry{},
		Messages: []string{},
		Errors:   []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
