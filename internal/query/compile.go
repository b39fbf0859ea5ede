package query

import (
	"fmt"
	"strings"
)

// tiebreaker orders rows that agree on every OrderBy column. Every
// ordinary SQLite table has a rowid.
const tiebreaker = "rowid"

// Compile converts a query to parameterized SQL.
//
// Values are never interpolated. Every query ends in an ORDER BY whose
// last key is rowid; text columns compare with COLLATE BINARY so order
// does not depend on the connection's collation.
func Compile(q Query) (string, []any, error) {
	if err := Validate(q).Err(); err != nil {
		return "", nil, err
	}
	switch query := q.(type) {
	case Select:
		return compileSelect(query)
	case *Select:
		return compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func compileSelect(q Select) (string, []any, error) {
	columns := "*"
	if len(q.Columns) > 0 {
		columns = strings.Join(q.Columns, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, q.From)

	var params []any
	if q.Filter != nil {
		where, args, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = args
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy(q.OrderBy))
	return b.String(), params, nil
}

func orderBy(columns []string) string {
	keys := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		if c == tiebreaker {
			continue
		}
		keys = append(keys, c+" COLLATE BINARY ASC")
	}
	keys = append(keys, tiebreaker+" ASC")
	return strings.Join(keys, ", ")
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		return compileEquals(pred)
	case *Equals:
		return compileEquals(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals emits "field = ?", or "field IS NULL" for a nil value.
func compileEquals(eq Equals) (string, []any, error) {
	switch v := eq.Value.(type) {
	case nil:
		return eq.Field + " IS NULL", nil, nil
	case bool:
		// stored as 0/1
		n := int64(0)
		if v {
			n = 1
		}
		return eq.Field + " = ?", []any{n}, nil
	case int:
		return eq.Field + " = ?", []any{int64(v)}, nil
	default:
		return eq.Field + " = ?", []any{v}, nil
	}
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, p := range and.Predicates {
		sql, args, err := compilePredicate(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, args...)
	}
	return strings.Join(parts, " AND "), params, nil
}
