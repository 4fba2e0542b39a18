package testutil

import "github.com/roach88/ruler/internal/ir"

// ProblemBuilder assembles ir.Problem values for tests.
//
//	p := testutil.NewProblem("midpoint").
//		Sample("A", "B").
//		Solve("D").
//		Constrain(ir.PredMidp, "D", "A", "B").
//		Build()
type ProblemBuilder struct {
	p ir.Problem
}

// NewProblem starts a problem with the given name.
func NewProblem(name string) *ProblemBuilder {
	return &ProblemBuilder{p: ir.Problem{Name: name}}
}

// Sample appends already-placed points.
func (b *ProblemBuilder) Sample(points ...string) *ProblemBuilder {
	b.p.Sample = append(b.p.Sample, Points(points...)...)
	return b
}

// Solve appends points to compile, in processing order.
func (b *ProblemBuilder) Solve(points ...string) *ProblemBuilder {
	b.p.Solve = append(b.p.Solve, Points(points...)...)
	return b
}

// Constrain appends a constraint without side conditions.
func (b *ProblemBuilder) Constrain(pred ir.Pred, points ...string) *ProblemBuilder {
	b.p.Constraints = append(b.p.Constraints, C(pred, points...))
	return b
}

// With appends a fully built constraint.
func (b *ProblemBuilder) With(c ir.Constraint) *ProblemBuilder {
	b.p.Constraints = append(b.p.Constraints, c)
	return b
}

// Build returns the problem. The builder must not be reused afterwards.
func (b *ProblemBuilder) Build() ir.Problem {
	return b.p
}

// C is shorthand for ir.NewConstraint with string operands.
func C(pred ir.Pred, points ...string) ir.Constraint {
	return ir.NewConstraint(pred, Points(points...)...)
}

// Points converts names to points.
func Points(names ...string) []ir.Point {
	out := make([]ir.Point, len(names))
	for i, n := range names {
		out[i] = ir.Point(n)
	}
	return out
}
