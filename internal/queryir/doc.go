// Package queryir describes filters over the recorded run log.
//
// A Select names one log table (runs, trace or defects), the columns to
// return and a predicate built from Equals, Since and And. The SQL backend in
// internal/querysql turns a Select into a parameterized statement; nothing
// in this package knows about SQL.
//
//	queryir.Select{
//	  From:    queryir.TableTrace,
//	  Columns: queryir.TraceColumns,
//	  Filter: queryir.And{Predicates: []queryir.Predicate{
//	    queryir.Equals{Field: "run_id", Value: ir.IRString("run-1")},
//	    queryir.Equals{Field: "kind", Value: ir.IRString("message")},
//	  }},
//	}
//
// Query and Predicate are sealed: only types in this package implement them,
// so backends can switch exhaustively.
//
// Validate checks a Select against the log schema before it reaches a
// backend. Every result is ordered by seq, the logical clock, so two reads of
// the same log return rows in the same order.
package queryir
