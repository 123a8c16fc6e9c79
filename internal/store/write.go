package store

import (
	"context"
	"fmt"

	"github.com/roach88/flexi/internal/ir"
)

// RecordRun inserts a run or updates its status. The enqueue seq, ability,
// parentage and payload are fixed by the first write.
func (s *Store) RecordRun(ctx context.Context, rec ir.RunRecord) error {
	payload, err := marshalObject(rec.Payload)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rec.RunID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, ability, graph_hash, parent_run, depth, payload, status, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET status = excluded.status
	`,
		rec.RunID,
		rec.Ability,
		rec.GraphHash,
		rec.ParentRun,
		rec.Depth,
		payload,
		string(rec.Status),
		rec.Seq,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rec.RunID, err)
	}
	return nil
}

// RecordTrace appends a trace entry. Writing the same seq twice is a no-op.
func (s *Store) RecordTrace(ctx context.Context, e ir.TraceEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trace (seq, run_id, kind, node_id, detail)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`, e.Seq, e.RunID, string(e.Kind), e.NodeID, e.Detail)
	if err != nil {
		return fmt.Errorf("record trace seq %d: %w", e.Seq, err)
	}
	return nil
}

// RecordDefect appends a defect. Writing the same seq twice is a no-op.
func (s *Store) RecordDefect(ctx context.Context, d ir.DefectRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO defects (seq, run_id, graph, code, node_id, message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`, d.Seq, d.RunID, d.Graph, d.Code, d.NodeID, d.Message)
	if err != nil {
		return fmt.Errorf("record defect seq %d: %w", d.Seq, err)
	}
	return nil
}

// SaveParked stores the continuation of a parked run, replacing any earlier
// one for the same run.
func (s *Store) SaveParked(ctx context.Context, runID string, snapshot ir.IRObject) error {
	data, err := marshalObject(snapshot)
	if err != nil {
		return fmt.Errorf("save parked %s: %w", runID, err)
	}
	hash, err := ir.ContinuationHash(snapshot)
	if err != nil {
		return fmt.Errorf("save parked %s: %w", runID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO parked (run_id, snapshot, hash)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET snapshot = excluded.snapshot, hash = excluded.hash
	`, runID, data, hash)
	if err != nil {
		return fmt.Errorf("save parked %s: %w", runID, err)
	}
	return nil
}

// ClearParked removes a stored continuation. Clearing an unknown run is a
// no-op.
func (s *Store) ClearParked(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM parked WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clear parked %s: %w", runID, err)
	}
	return nil
}
