package queryir

import "github.com/roach88/flexi/internal/ir"

// Query is a query over the run log. Sealed to this package.
type Query interface {
	queryNode()
}

// Predicate is a row filter. Sealed to this package.
type Predicate interface {
	predicateNode()
}

// Table names a run log table.
type Table string

const (
	TableRuns    Table = "runs"
	TableTrace   Table = "trace"
	TableDefects Table = "defects"
)

// Column lists in scan order. Store readers rely on this order.
var (
	RunColumns    = []string{"run_id", "ability", "graph_hash", "parent_run", "depth", "payload", "status", "seq"}
	TraceColumns  = []string{"seq", "run_id", "kind", "node_id", "detail"}
	DefectColumns = []string{"seq", "run_id", "graph", "code", "node_id", "message"}
)

// Schema maps each table to its columns and their value kind ("text" or
// "integer").
var Schema = map[Table]map[string]string{
	TableRuns: {
		"run_id": "text", "ability": "text", "graph_hash": "text", "parent_run": "text",
		"depth": "integer", "payload": "text", "status": "text", "seq": "integer",
	},
	TableTrace: {
		"seq": "integer", "run_id": "text", "kind": "text", "node_id": "integer", "detail": "text",
	},
	TableDefects: {
		"seq": "integer", "run_id": "text", "graph": "text", "code": "text",
		"node_id": "integer", "message": "text",
	},
}

// Select reads Columns from one table, keeping rows that match Filter.
// A nil Filter keeps every row. Limit > 0 caps the row count.
type Select struct {
	From    Table
	Columns []string
	Filter  Predicate
	Limit   int
}

func (Select) queryNode() {}

// Equals keeps rows where Field equals Value. Value is an IRString or IRInt
// matching the column kind.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// Since keeps rows with seq strictly greater than Seq.
type Since struct {
	Seq int64
}

func (Since) predicateNode() {}

// And keeps rows matching every predicate. An empty And keeps every row.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where builds a conjunction, dropping nil predicates. It returns nil when
// nothing is left.
func Where(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return And{Predicates: kept}
}
