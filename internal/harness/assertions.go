package harness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/turtle/internal/carry"
	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/query"
	"github.com/roach88/turtle/internal/store"
)

// poseTolerance absorbs float error in final_pose.
const poseTolerance = 1e-6

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d.%d] %s\n", event.Run, event.Seq, event.Text)
		}
	}
	return buf.String()
}

// AssertionContext is what assertions may inspect besides the result.
type AssertionContext struct {
	Ctx       context.Context
	Store     *store.Store
	Carry     carry.Store
	SessionID string
}

// EvaluateAssertions evaluates all assertions against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		trace := filterRun(result.Trace, assertion.Run)
		var err error

		switch assertion.Type {
		case AssertLogContains:
			err = assertLogContains(trace, assertion)
		case AssertLogOrder:
			err = assertLogOrder(trace, assertion)
		case AssertLogCount:
			err = assertLogCount(trace, assertion)
		case AssertFinalPose:
			err = assertFinalPose(result, assertion)
		case AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a store", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		case AssertCarried:
			if actx == nil || actx.Carry == nil {
				err = fmt.Errorf("assertion[%d]: carried requires a carry store", i)
			} else {
				err = assertCarried(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func filterRun(trace []TraceEvent, run int) []TraceEvent {
	if run == 0 {
		return trace
	}
	var out []TraceEvent
	for _, e := range trace {
		if e.Run == run {
			out = append(out, e)
		}
	}
	return out
}

// assertLogContains checks for an action of the given kind whose leading
// args match.
func assertLogContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if string(event.Kind) == assertion.Action && matchArgs(event.Args, assertion.Args) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertLogContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in log",
		Trace:    trace,
	}
}

// assertLogOrder checks that the first occurrences of the kinds are in
// order. Other actions may come between them.
func assertLogOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		kind := string(event.Kind)
		for _, expected := range assertion.Actions {
			if kind == expected && positions[expected] == 0 {
				positions[expected] = i + 1
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertLogOrder,
				Expected: fmt.Sprintf("all actions present: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(assertion.Actions); i++ {
		prev, curr := assertion.Actions[i-1], assertion.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertLogOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertLogCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if string(event.Kind) == assertion.Action {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertLogCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalPose checks where the selected run, or the last one, left the
// turtle.
func assertFinalPose(result *Result, assertion Assertion) error {
	if len(result.Runs) == 0 {
		return &AssertionError{Type: AssertFinalPose, Expected: "a finished run", Actual: "no runs"}
	}
	rec := result.Runs[len(result.Runs)-1]
	if assertion.Run > 0 {
		rec = result.Runs[assertion.Run-1]
	}

	check := func(name string, want *float64, got float64) error {
		if want == nil || math.Abs(*want-got) <= poseTolerance {
			return nil
		}
		return &AssertionError{
			Type:     AssertFinalPose,
			Expected: fmt.Sprintf("%s = %g", name, *want),
			Actual:   fmt.Sprintf("%s = %g", name, got),
		}
	}
	return errors.Join(
		check("x", assertion.X, rec.Pose.X),
		check("y", assertion.Y, rec.Pose.Y),
		check("heading", assertion.Heading, rec.Pose.Heading),
	)
}

// assertFinalState queries the attempt store and checks exactly one row
// matches.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	sqlText, args, err := query.Compile(query.Select{
		From:   assertion.Table,
		Filter: whereFilter(assertion.Where),
	})
	if err != nil {
		return err
	}

	rows, err := st.DB().QueryContext(ctx, sqlText, args...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}
	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}
	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}
	for _, key := range sortedKeys(assertion.Expect) {
		expected := assertion.Expect[key]
		actual, ok := actualRow[key]
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expected, expected),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actual, actual),
			}
		}
	}
	return nil
}

func assertCarried(actx *AssertionContext, assertion Assertion) error {
	blob, err := actx.Carry.Get(actx.Ctx, actx.SessionID, assertion.Key)
	if errors.Is(err, carry.ErrNotFound) {
		return &AssertionError{
			Type:     AssertCarried,
			Expected: fmt.Sprintf("program saved under %q", assertion.Key),
			Actual:   "nothing saved",
		}
	}
	if err != nil {
		return err
	}
	if assertion.Contains != "" && !strings.Contains(blob, assertion.Contains) {
		return &AssertionError{
			Type:     AssertCarried,
			Expected: fmt.Sprintf("saved program containing %q", assertion.Contains),
			Actual:   blob,
		}
	}
	return nil
}

// whereFilter turns a where map into equality predicates, sorted by
// column.
func whereFilter(where map[string]any) query.Predicate {
	if len(where) == 0 {
		return nil
	}
	var and query.And
	for _, key := range sortedKeys(where) {
		and.Predicates = append(and.Predicates, query.Equals{Field: key, Value: toSQLValue(key, where[key])})
	}
	return and
}

// toSQLValue converts a YAML value to a query argument. Tier names are
// stored as their numeric value.
func toSQLValue(column string, v any) any {
	switch val := v.(type) {
	case string:
		if column == "tier" {
			if t, err := ir.ParseTier(val); err == nil {
				return int64(t)
			}
		}
		return val
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	case int, int64:
		return val
	case float64:
		if val == math.Trunc(val) {
			return int64(val)
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares a YAML value with a SQLite column value.
// SQLite returns integers as int64 and booleans as 0/1; a string matched
// against an integer is read as a tier name.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	actualInt, actualIsInt := actual.(int64)
	switch exp := expected.(type) {
	case string:
		if actualIsInt {
			t, err := ir.ParseTier(exp)
			return err == nil && int64(t) == actualInt
		}
		if b, ok := actual.([]byte); ok {
			return exp == string(b)
		}
		s, ok := actual.(string)
		return ok && exp == s
	case int:
		return actualIsInt && int64(exp) == actualInt
	case int64:
		return actualIsInt && exp == actualInt
	case bool:
		return actualIsInt && exp == (actualInt != 0)
	}
	return reflect.DeepEqual(expected, actual)
}

// matchArgs reports whether actual starts with expected.
func matchArgs(actual, expected []string) bool {
	if len(expected) > len(actual) {
		return false
	}
	for i, want := range expected {
		if actual[i] != want {
			return false
		}
	}
	return true
}
