package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/queryir"
	"github.com/roach88/flexi/internal/querysql"
)

// QueryRuns returns the runs matching filter in seq order. A nil filter
// returns every run.
func (s *Store) QueryRuns(ctx context.Context, filter queryir.Predicate) ([]ir.RunRecord, error) {
	rows, err := s.query(ctx, queryir.Select{From: queryir.TableRuns, Columns: queryir.RunColumns, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// QueryTrace returns the trace entries matching filter in seq order.
func (s *Store) QueryTrace(ctx context.Context, filter queryir.Predicate) ([]ir.TraceEntry, error) {
	rows, err := s.query(ctx, queryir.Select{From: queryir.TableTrace, Columns: queryir.TraceColumns, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	entries := []ir.TraceEntry{}
	for rows.Next() {
		var (
			e    ir.TraceEntry
			kind string
		)
		if err := rows.Scan(&e.Seq, &e.RunID, &kind, &e.NodeID, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		e.Kind = ir.TraceKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return entries, nil
}

// QueryDefects returns the defects matching filter in seq order.
func (s *Store) QueryDefects(ctx context.Context, filter queryir.Predicate) ([]ir.DefectRecord, error) {
	rows, err := s.query(ctx, queryir.Select{From: queryir.TableDefects, Columns: queryir.DefectColumns, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("query defects: %w", err)
	}
	defer rows.Close()

	defects := []ir.DefectRecord{}
	for rows.Next() {
		var d ir.DefectRecord
		if err := rows.Scan(&d.Seq, &d.RunID, &d.Graph, &d.Code, &d.NodeID, &d.Message); err != nil {
			return nil, fmt.Errorf("scan defect: %w", err)
		}
		defects = append(defects, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate defects: %w", err)
	}
	return defects, nil
}

func (s *Store) query(ctx context.Context, sel queryir.Select) (*sql.Rows, error) {
	stmt, params, err := querysql.Compile(sel)
	if err != nil {
		return nil, err
	}
	return s.db.QueryContext(ctx, stmt, params...)
}
