package query

import (
	"fmt"
	"regexp"
)

// identifier matches the table and column names queries may use.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Err returns the first problem as an error, or nil.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %s", r.Errors[0])
}

// Validate checks identifiers and value types. Compile calls it; callers
// building queries from user input can call it first for every problem at
// once.
func Validate(q Query) ValidationResult {
	v := &validator{}
	v.validateQuery(q)
	return ValidationResult{Valid: len(v.errors) == 0, Errors: v.errors}
}

type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addError("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addError("unsupported query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	v.validateName("table", sel.From)
	for _, c := range sel.Columns {
		v.validateName("column", c)
	}
	for _, c := range sel.OrderBy {
		v.validateName("order column", c)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validateName(kind, name string) {
	if !identifier.MatchString(name) {
		v.addError("invalid %s name %q: must match %s", kind, name, identifier.String())
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addError("unsupported predicate type %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	v.validateName("column", eq.Field)
	switch eq.Value.(type) {
	case string, int, int64, bool, nil:
	default:
		v.addError("column %s: unsupported value type %T", eq.Field, eq.Value)
	}
}

func (v *validator) validateAnd(and And) {
	for _, p := range and.Predicates {
		if p == nil {
			v.addError("nil predicate in And")
			continue
		}
		v.validatePredicate(p)
	}
}
