package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/ruler/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes the listing to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Listing  []string // Full listing for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Listing) > 0 {
		fmt.Fprintf(&buf, "\nFull listing:\n")
		for i, line := range e.Listing {
			fmt.Fprintf(&buf, "  [%d] %s\n", i, line)
		}
	}

	return buf.String()
}

// assertListingContains checks that the listing holds the instruction line.
func assertListingContains(listing []string, assertion Assertion) error {
	if slices.Contains(listing, assertion.Instruction) {
		return nil
	}
	return &AssertionError{
		Type:     AssertListingContains,
		Expected: assertion.Instruction,
		Actual:   "not found in listing",
		Listing:  listing,
	}
}

// assertListingOrder checks that instructions appear in the given order.
// They don't need to be consecutive (intervening instructions are allowed).
func assertListingOrder(listing []string, assertion Assertion) error {
	positions := make([]int, len(assertion.Instructions))
	for i, want := range assertion.Instructions {
		positions[i] = slices.Index(listing, want)
		if positions[i] < 0 {
			return &AssertionError{
				Type:     AssertListingOrder,
				Expected: fmt.Sprintf("all instructions present: %q", assertion.Instructions),
				Actual:   fmt.Sprintf("missing instruction: %s", want),
				Listing:  listing,
			}
		}
	}

	for i := 1; i < len(positions); i++ {
		if positions[i-1] >= positions[i] {
			return &AssertionError{
				Type:     AssertListingOrder,
				Expected: fmt.Sprintf("instructions in order: %q", assertion.Instructions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					assertion.Instructions[i-1], positions[i-1],
					assertion.Instructions[i], positions[i]),
				Listing: listing,
			}
		}
	}
	return nil
}

// assertOpCount checks that exactly Count instructions carry the opcode.
func assertOpCount(result *Result, assertion Assertion) error {
	count := 0
	if result.Program != nil {
		for _, in := range result.Program.Instructions {
			if string(in.Op) == assertion.Op {
				count++
			}
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertOpCount,
			Expected: fmt.Sprintf("%d %s instructions", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d instructions", count),
			Listing:  result.Listing,
		}
	}
	return nil
}

// assertConsumed checks that a defining instruction recorded the
// constraint in its uses. The lookup goes through the stored provenance
// rows, so it also checks what WriteProgram persisted.
func assertConsumed(ctx context.Context, st *store.Store, result *Result, assertion Assertion) error {
	idx := *assertion.Constraint
	if result.Run.ProgramID == "" {
		return &AssertionError{
			Type:     AssertConsumed,
			Expected: fmt.Sprintf("constraint %d consumed", idx),
			Actual:   "no program was compiled",
		}
	}

	seqs, err := st.ConsumersOf(ctx, result.Run.ProgramID, idx)
	if err != nil {
		return fmt.Errorf("consumed: %w", err)
	}
	for _, seq := range seqs {
		if seq < len(result.Program.Instructions) && result.Program.Instructions[seq].Defines() {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertConsumed,
		Expected: fmt.Sprintf("constraint %d used by a defining instruction", idx),
		Actual:   fmt.Sprintf("used by instructions %v", seqs),
		Listing:  result.Listing,
	}
}

// assertFinalState checks if a store table contains expected values.
// Queries the table with parameterized SQL and validates expected values
// using subset semantics.
//
// Table and column names are validated against a whitelist pattern since
// identifiers can't be parameterized.
func assertFinalState(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
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
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	// An assertion matching several rows is ambiguous.
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

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL-compatible value.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case string, int, int64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected and actual values from store tables.
// Handles type coercion for SQLite values which may be returned as different types.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case int:
		if actualInt, ok := actual.(int64); ok {
			return int64(exp) == actualInt
		}
		if actualInt, ok := actual.(int); ok {
			return exp == actualInt
		}
		return false
	case int64:
		if actualInt, ok := actual.(int64); ok {
			return exp == actualInt
		}
		return false
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for consumed and
// final_state assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertListingContains:
			err = assertListingContains(result.Listing, assertion)
		case AssertListingOrder:
			err = assertListingOrder(result.Listing, assertion)
		case AssertOpCount:
			err = assertOpCount(result, assertion)
		case AssertConsumed, AssertFinalState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, assertion.Type)
			} else if assertion.Type == AssertConsumed {
				err = assertConsumed(actx.Ctx, actx.Store, result, assertion)
			} else {
				err = assertFinalState(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
