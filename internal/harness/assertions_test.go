package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
	"github.com/roach88/ruler/internal/store"
	"github.com/roach88/ruler/internal/testutil"
)

func intPtr(n int) *int { return &n }

// compiledResult compiles p into a fresh store and returns the pieces
// assertions run against.
func compiledResult(t *testing.T, p ir.Problem) (*Result, *AssertionContext) {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	prog, err := compiler.Compile(p)
	require.NoError(t, err)

	ctx := context.Background()
	run, err := st.Record(ctx, testutil.NewFixedTokenGenerator(""), p, prog, nil)
	require.NoError(t, err)

	result := NewResult()
	result.Program = prog
	result.Listing = ir.Listing(prog.Instructions)
	result.Run = run
	return result, &AssertionContext{Store: st, Ctx: ctx}
}

func restartProblem() ir.Problem {
	return testutil.NewProblem("cc-single").
		Sample("A", "B", "C", "F").
		Solve("D").
		Constrain(ir.PredCycl, "D", "A", "B", "C").
		Constrain(ir.PredCycl, "D", "A", "B", "F").
		Build()
}

func TestAssertListingContains(t *testing.T) {
	listing := []string{"Compute(D, [midp, [A,B]])", "Assert(cong(D,A,D,B))"}

	assert.NoError(t, assertListingContains(listing, Assertion{Instruction: "Assert(cong(D,A,D,B))"}))

	err := assertListingContains(listing, Assertion{Instruction: "Assert(coll(A,B,C))"})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertListingContains, ae.Type)
	assert.Contains(t, err.Error(), "[0] Compute(D, [midp, [A,B]])")
}

func TestAssertListingOrder(t *testing.T) {
	listing := []string{"a", "b", "c"}

	tests := []struct {
		name    string
		order   []string
		wantErr string
	}{
		{"consecutive", []string{"a", "b"}, ""},
		{"gap allowed", []string{"a", "c"}, ""},
		{"reversed", []string{"c", "a"}, "c (pos 2) should be before a (pos 0)"},
		{"missing", []string{"a", "z"}, "missing instruction: z"},
		{"repeated", []string{"b", "b"}, "should be before"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertListingOrder(listing, Assertion{Instructions: tt.order})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertOpCount(t *testing.T) {
	result, _ := compiledResult(t, restartProblem())

	assert.NoError(t, assertOpCount(result, Assertion{Op: "parameterize", Count: 1}))
	assert.NoError(t, assertOpCount(result, Assertion{Op: "assert", Count: 1}))
	assert.NoError(t, assertOpCount(result, Assertion{Op: "compute", Count: 0}))

	err := assertOpCount(result, Assertion{Op: "assert", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: 2 assert instructions")
	assert.Contains(t, err.Error(), "Actual: 1 instructions")

	// A failed compile has no instructions to count.
	assert.NoError(t, assertOpCount(NewResult(), Assertion{Op: "compute", Count: 0}))
}

func TestAssertConsumed(t *testing.T) {
	result, actx := compiledResult(t, restartProblem())

	// Constraint 0 placed D on the first circle.
	assert.NoError(t, assertConsumed(actx.Ctx, actx.Store, result, Assertion{Constraint: intPtr(0)}))

	// Constraint 1 only survives as a trailing assertion.
	err := assertConsumed(actx.Ctx, actx.Store, result, Assertion{Constraint: intPtr(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "used by instructions [1]")

	err = assertConsumed(actx.Ctx, actx.Store, result, Assertion{Constraint: intPtr(7)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "used by instructions []")
}

func TestAssertConsumed_NoProgram(t *testing.T) {
	_, actx := compiledResult(t, restartProblem())

	err := assertConsumed(actx.Ctx, actx.Store, NewResult(), Assertion{Constraint: intPtr(0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no program was compiled")
}

func TestAssertFinalState(t *testing.T) {
	_, actx := compiledResult(t, restartProblem())

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name: "program row",
			assertion: Assertion{
				Table:  "programs",
				Where:  map[string]any{"problem_name": "cc-single"},
				Expect: map[string]any{"passes": 2, "blacklist": `["D"]`},
			},
		},
		{
			name: "run row",
			assertion: Assertion{
				Table:  "runs",
				Expect: map[string]any{"status": "ok", "seq": int64(1)},
			},
		},
		{
			name: "value mismatch",
			assertion: Assertion{
				Table:  "programs",
				Expect: map[string]any{"passes": 1},
			},
			wantErr: `field "passes" = 1`,
		},
		{
			name: "missing column",
			assertion: Assertion{
				Table:  "runs",
				Expect: map[string]any{"flow_token": "x"},
			},
			wantErr: `field "flow_token" not present`,
		},
		{
			name: "row not found",
			assertion: Assertion{
				Table:  "runs",
				Where:  map[string]any{"id": "missing"},
				Expect: map[string]any{"status": "ok"},
			},
			wantErr: "row not found",
		},
		{
			name: "ambiguous",
			assertion: Assertion{
				Table:  "instructions",
				Expect: map[string]any{"op": "parameterize"},
			},
			wantErr: "multiple rows matched",
		},
		{
			name: "invalid table",
			assertion: Assertion{
				Table:  "runs; DROP TABLE runs",
				Expect: map[string]any{"status": "ok"},
			},
			wantErr: "invalid table name",
		},
		{
			name: "invalid column",
			assertion: Assertion{
				Table:  "runs",
				Where:  map[string]any{"id OR 1=1": "x"},
				Expect: map[string]any{"status": "ok"},
			},
			wantErr: "invalid column name",
		},
		{
			name: "unknown table",
			assertion: Assertion{
				Table:  "invocations",
				Expect: map[string]any{"status": "ok"},
			},
			wantErr: "query error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertFinalState(actx.Ctx, actx.Store, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildWhereClause(t *testing.T) {
	sql, args, err := buildWhereClause(map[string]any{"seq": 0, "program_id": "p"})
	require.NoError(t, err)
	assert.Equal(t, "program_id = ? AND seq = ?", sql)
	assert.Equal(t, []any{"p", 0}, args)

	sql, args, err = buildWhereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)
}

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"both nil", nil, nil, true},
		{"nil expected", nil, "x", false},
		{"string", "ok", "ok", true},
		{"string from bytes", "ok", []byte("ok"), true},
		{"string mismatch", "ok", "failed", false},
		{"int vs int64", 2, int64(2), true},
		{"int mismatch", 2, int64(3), false},
		{"int64", int64(5), int64(5), true},
		{"bool from integer", true, int64(1), true},
		{"false from integer", false, int64(0), true},
		{"string vs int", "1", int64(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestEvaluateAssertions(t *testing.T) {
	result, actx := compiledResult(t, restartProblem())

	assertions := []Assertion{
		{Type: AssertListingContains, Instruction: "Assert(cycl(D,A,B,F))"},
		{Type: AssertOpCount, Op: "parameterize", Count: 1},
		{Type: AssertConsumed, Constraint: intPtr(0)},
		{Type: AssertFinalState, Table: "runs", Expect: map[string]any{"status": "ok"}},
	}
	assert.Empty(t, EvaluateAssertions(result, assertions, actx))

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertConsumed, Constraint: intPtr(0)},
		{Type: "bogus"},
	}, nil)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "consumed requires database context")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}
