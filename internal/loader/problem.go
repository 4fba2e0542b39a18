package loader

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/ruler/internal/ir"
)

// CompileProblem parses a CUE value into a Problem.
//
// The value should be the problem struct itself, e.g.:
//
//	v := cuecontext.New().CompileString(`problem: mid: { ... }`)
//	p, err := CompileProblem(v.LookupPath(cue.ParsePath("problem.mid")))
//
// sample and constraints are optional; solve is required.
func CompileProblem(v cue.Value) (*ir.Problem, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &ir.Problem{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		p.Name = labelName(labels[len(labels)-1])
	}

	var err error
	if sampleVal := v.LookupPath(cue.ParsePath("sample")); sampleVal.Exists() {
		if p.Sample, err = parsePoints(sampleVal); err != nil {
			return nil, err
		}
	}

	solveVal := v.LookupPath(cue.ParsePath("solve"))
	if !solveVal.Exists() {
		return nil, &LoadError{
			Code:    ErrCodeInvalidProblem,
			Field:   "solve",
			Message: "solve is required",
			Pos:     v.Pos(),
		}
	}
	if p.Solve, err = parsePoints(solveVal); err != nil {
		return nil, err
	}

	if constraintsVal := v.LookupPath(cue.ParsePath("constraints")); constraintsVal.Exists() {
		if p.Constraints, err = parseConstraints(constraintsVal, "constraints"); err != nil {
			return nil, err
		}
	}

	if p.Sample == nil {
		p.Sample = []ir.Point{}
	}
	if p.Constraints == nil {
		p.Constraints = []ir.Constraint{}
	}
	return p, nil
}

func parsePoints(v cue.Value) ([]ir.Point, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	points := []ir.Point{}
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		points = append(points, ir.Point(name))
	}
	return points, nil
}

func parseConstraints(v cue.Value, field string) ([]ir.Constraint, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.Constraint
	for i := 0; iter.Next(); i++ {
		c, err := parseConstraint(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseConstraint(v cue.Value, field string) (ir.Constraint, error) {
	var c ir.Constraint

	predVal := v.LookupPath(cue.ParsePath("pred"))
	if !predVal.Exists() {
		return c, &LoadError{
			Code:    ErrCodeInvalidProblem,
			Field:   field + ".pred",
			Message: "pred is required",
			Pos:     v.Pos(),
		}
	}
	pred, err := predVal.String()
	if err != nil {
		return c, formatCUEError(err)
	}
	c.Pred = ir.Pred(pred)

	pointsVal := v.LookupPath(cue.ParsePath("points"))
	if !pointsVal.Exists() {
		return c, &LoadError{
			Code:    ErrCodeInvalidProblem,
			Field:   field + ".points",
			Message: "points are required",
			Pos:     v.Pos(),
		}
	}
	if c.Points, err = parsePoints(pointsVal); err != nil {
		return c, err
	}

	if ndgVal := v.LookupPath(cue.ParsePath("ndgs")); ndgVal.Exists() {
		if c.NDGs, err = parseConstraints(ndgVal, field+".ndgs"); err != nil {
			return c, err
		}
	}
	if ordVal := v.LookupPath(cue.ParsePath("orders")); ordVal.Exists() {
		if c.Orders, err = parseConstraints(ordVal, field+".orders"); err != nil {
			return c, err
		}
	}
	return c, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	loadErr := &LoadError{
		Code:    ErrCodeInvalidProblem,
		Field:   "cue",
		Message: firstErr.Error(),
	}
	if positions := errors.Positions(firstErr); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}

// labelName returns a field label without CUE quoting, so that
// problem: "cc-single": {...} is named cc-single.
func labelName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}
