package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/ruler/internal/ir"
	"github.com/roach88/ruler/internal/testutil"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValidProblem(t *testing.T) {
	p := testutil.NewProblem("ok").
		Sample("A", "B", "C").
		Solve("D").
		Constrain(ir.PredCircumcenter, "D", "A", "B", "C").
		With(ir.NewConstraint(ir.PredEqAngle, "A", "B", "B", "C", "C", "A", "A", "B")).
		Build()

	assert.Empty(t, Validate(p))
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		problem ir.Problem
		codes   []string
		field   string
	}{
		{
			name:    "empty name",
			problem: ir.Problem{Solve: []ir.Point{"D"}},
			codes:   []string{ErrEmptyName},
			field:   "name",
		},
		{
			name: "unknown predicate",
			problem: testutil.NewProblem("p").Sample("A", "B").Solve("D").
				Constrain("collinear", "D", "A", "B").Build(),
			codes: []string{ErrUnknownPredicate},
			field: "constraints[0].pred",
		},
		{
			name: "arity",
			problem: testutil.NewProblem("p").Sample("A", "B").Solve("D").
				Constrain(ir.PredMidp, "D", "A").Build(),
			codes: []string{ErrArity},
			field: "constraints[0].points",
		},
		{
			name: "undefined point",
			problem: testutil.NewProblem("p").Sample("A", "B").Solve("D").
				Constrain(ir.PredMidp, "D", "A", "Z").Build(),
			codes: []string{ErrUndefinedPoint},
			field: "constraints[0].points[2]",
		},
		{
			name:    "duplicate point",
			problem: testutil.NewProblem("p").Sample("A", "A").Solve("D").Build(),
			codes:   []string{ErrDuplicatePoint},
			field:   "sample[1]",
		},
		{
			name:    "sampled and solved",
			problem: testutil.NewProblem("p").Sample("A", "B").Solve("B").Build(),
			codes:   []string{ErrSampledAndSolved},
			field:   "solve[0]",
		},
		{
			name:    "empty point name",
			problem: testutil.NewProblem("p").Sample("A", "").Solve("D").Build(),
			codes:   []string{ErrEmptyName},
			field:   "sample[1]",
		},
		{
			name: "ndg undefined point",
			problem: testutil.NewProblem("p").Sample("A", "B").Solve("D").
				Constrain(ir.PredMidp, "D", "A", "B").
				With(ir.NewConstraint(ir.PredMidp, "D", "A", "B").WithNDGs(ir.NewConstraint(ir.PredNeq, "A", "Q"))).
				Build(),
			codes: []string{ErrUndefinedPoint},
			field: "constraints[1].ndgs[0].points[1]",
		},
		{
			name: "midp repeats its subject",
			problem: testutil.NewProblem("p").Sample("A").Solve("D").
				Constrain(ir.PredMidp, "D", "D", "A").Build(),
			codes: []string{ErrRepeatedOperand},
			field: "constraints[0].points",
		},
		{
			name: "interLL subject on a line",
			problem: testutil.NewProblem("p").Sample("A", "B", "C").Solve("D").
				Constrain(ir.PredInterLL, "D", "A", "B", "D", "C").Build(),
			codes: []string{ErrRepeatedOperand},
			field: "constraints[0].points",
		},
		{
			name: "oppSides point on its own line",
			problem: testutil.NewProblem("p").Sample("A", "X").Solve("D").
				Constrain(ir.PredOppSides, "D", "X", "D", "A").Build(),
			codes: []string{ErrRepeatedOperand},
			field: "constraints[0].points",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.problem)
			assert.Equal(t, tt.codes, codes(errs))
			if len(errs) > 0 {
				assert.Equal(t, tt.field, errs[0].Field)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	p := testutil.NewProblem("").Sample("A").Solve("A").
		Constrain("bogus", "A").
		Constrain(ir.PredColl, "A", "Z").
		Build()

	assert.Equal(t,
		[]string{ErrEmptyName, ErrSampledAndSolved, ErrUnknownPredicate, ErrArity, ErrUndefinedPoint},
		codes(Validate(p)))
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "solve[0]", Message: "boom", Code: ErrDuplicatePoint}
	assert.Equal(t, "[E105] solve[0]: boom", e.Error())

	e.Line = 7
	assert.Equal(t, "[E105] line 7: solve[0]: boom", e.Error())
}
