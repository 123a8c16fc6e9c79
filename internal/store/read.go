package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/queryir"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ReadRun returns one run record.
func (s *Store) ReadRun(ctx context.Context, runID string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, ability, graph_hash, parent_run, depth, payload, status, seq
		FROM runs
		WHERE run_id = ?
	`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RunRecord{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	return rec, nil
}

// ReadRuns returns every run in enqueue order.
//
// Returns an empty slice (not nil) when no runs exist.
func (s *Store) ReadRuns(ctx context.Context) ([]ir.RunRecord, error) {
	return s.QueryRuns(ctx, nil)
}

// ReadTrace returns the trace entries of one run in seq order.
//
// Returns an empty slice (not nil) when the run has no entries.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]ir.TraceEntry, error) {
	return s.QueryTrace(ctx, queryir.Equals{Field: "run_id", Value: ir.IRString(runID)})
}

// ReadDefects returns defects in seq order. An empty runID selects the
// defects found while building graphs.
func (s *Store) ReadDefects(ctx context.Context, runID string) ([]ir.DefectRecord, error) {
	return s.QueryDefects(ctx, queryir.Equals{Field: "run_id", Value: ir.IRString(runID)})
}

// ReadParked returns a parked run's continuation and its content hash.
func (s *Store) ReadParked(ctx context.Context, runID string) (ir.IRObject, string, error) {
	var data, hash string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot, hash FROM parked WHERE run_id = ?`, runID).Scan(&data, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("parked run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read parked %s: %w", runID, err)
	}
	snap, err := unmarshalObject(data)
	if err != nil {
		return nil, "", fmt.Errorf("read parked %s: %w", runID, err)
	}
	return snap, hash, nil
}

// LastSeq returns the highest seq recorded in any table, 0 for an empty
// database. engine.NewClockAt(LastSeq) continues numbering after it.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			COALESCE((SELECT MAX(seq) FROM runs), 0),
			COALESCE((SELECT MAX(seq) FROM trace), 0),
			COALESCE((SELECT MAX(seq) FROM defects), 0)
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return seq, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (ir.RunRecord, error) {
	var (
		rec     ir.RunRecord
		payload string
		status  string
	)
	if err := row.Scan(&rec.RunID, &rec.Ability, &rec.GraphHash, &rec.ParentRun, &rec.Depth, &payload, &status, &rec.Seq); err != nil {
		return ir.RunRecord{}, err
	}
	obj, err := unmarshalObject(payload)
	if err != nil {
		return ir.RunRecord{}, fmt.Errorf("scan run %s: %w", rec.RunID, err)
	}
	rec.Payload = obj
	rec.Status = ir.RunStatus(status)
	return rec, nil
}
