// Package querysql compiles run log queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/flexi/internal/ir"
	"github.com/roach88/flexi/internal/queryir"
)

// Compile validates q and converts it to SQL plus its parameters.
//
// Every statement ends in ORDER BY seq ASC. Values are always passed as
// parameters, never interpolated.
func Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	var sel queryir.Select
	switch query := q.(type) {
	case queryir.Select:
		sel = query
	case *queryir.Select:
		sel = *query
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(sel.Columns, ", "), sel.From)

	where, params, err := compilePredicate(sel.Filter)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	b.WriteString(" ORDER BY seq ASC")
	if sel.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, sel.Limit)
	}
	return b.String(), params, nil
}

// compilePredicate returns "" for a predicate that keeps every row.
func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil, nil
	case queryir.Equals:
		return compileEquals(pred)
	case *queryir.Equals:
		return compileEquals(*pred)
	case queryir.Since:
		return "seq > ?", []any{pred.Seq}, nil
	case *queryir.Since:
		return "seq > ?", []any{pred.Seq}, nil
	case queryir.And:
		return compileAnd(pred)
	case *queryir.And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := irValueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value for %s: %w", eq.Field, err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

func compileAnd(and queryir.And) (string, []any, error) {
	var (
		parts  []string
		params []any
	)
	for _, pred := range and.Predicates {
		sql, p, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
