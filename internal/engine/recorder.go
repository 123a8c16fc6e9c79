package engine

import (
	"context"

	"github.com/roach88/flexi/internal/ir"
)

// Recorder persists what the system does. internal/store implements it on
// SQLite.
//
// Recorder errors never affect a run: the system logs them and continues.
type Recorder interface {
	// RecordRun upserts a run record keyed by RunID.
	RecordRun(ctx context.Context, rec ir.RunRecord) error

	// RecordTrace appends one trace entry.
	RecordTrace(ctx context.Context, e ir.TraceEntry) error

	// RecordDefect appends one defect report.
	RecordDefect(ctx context.Context, d ir.DefectRecord) error

	// SaveParked stores the continuation of a run awaiting a choice.
	SaveParked(ctx context.Context, runID string, snapshot ir.IRObject) error

	// ClearParked forgets a stored continuation once the run moves on.
	ClearParked(ctx context.Context, runID string) error
}
