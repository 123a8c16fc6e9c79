package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/flexi/internal/ir"
)

// ValidationError describes one problem found in a query.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks q against Schema: the table exists, every column and
// filtered field belongs to it, and compared values have the column's kind.
// All problems are returned joined.
func Validate(q Query) error {
	v := &validator{}
	v.query(q)
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) add(field, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) query(q Query) {
	switch query := q.(type) {
	case Select:
		v.selectQuery(query)
	case *Select:
		if query == nil {
			v.add("", "nil query")
			return
		}
		v.selectQuery(*query)
	case nil:
		v.add("", "nil query")
	default:
		v.add("", "unknown query type %T", q)
	}
}

func (v *validator) selectQuery(sel Select) {
	cols, ok := Schema[sel.From]
	if !ok {
		v.add("from", "unknown table %q", sel.From)
		return
	}
	if len(sel.Columns) == 0 {
		v.add("columns", "at least one column is required")
	}
	for _, c := range sel.Columns {
		if _, ok := cols[c]; !ok {
			v.add("columns", "table %s has no column %q", sel.From, c)
		}
	}
	if _, ok := cols["seq"]; !ok {
		v.add("from", "table %s has no seq column to order by", sel.From)
	}
	if sel.Limit < 0 {
		v.add("limit", "must not be negative")
	}
	v.predicate(sel.From, cols, sel.Filter)
}

func (v *validator) predicate(table Table, cols map[string]string, p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.equals(table, cols, pred)
	case *Equals:
		v.equals(table, cols, *pred)
	case Since, *Since:
	case And:
		for _, sub := range pred.Predicates {
			v.predicate(table, cols, sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.predicate(table, cols, sub)
		}
	default:
		v.add("filter", "unknown predicate type %T", p)
	}
}

func (v *validator) equals(table Table, cols map[string]string, eq Equals) {
	kind, ok := cols[eq.Field]
	if !ok {
		v.add(eq.Field, "table %s has no column %q", table, eq.Field)
		return
	}
	switch eq.Value.(type) {
	case ir.IRString:
		if kind != "text" {
			v.add(eq.Field, "compared to a string but the column is %s", kind)
		}
	case ir.IRInt:
		if kind != "integer" {
			v.add(eq.Field, "compared to an integer but the column is %s", kind)
		}
	default:
		v.add(eq.Field, "unsupported value %T: only strings and integers can be compared", eq.Value)
	}
}
