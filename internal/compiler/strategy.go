package compiler

import (
	"slices"

	"github.com/roach88/ruler/internal/ir"
)

// Outcome is a successful strategy application.
//
// Consumed lists the constraint IDs the instruction satisfies; the pass
// removes them from the pool only after the strategy returns. Curves lists
// the curves the point now lies on, for the shared-point root rule.
type Outcome struct {
	Instruction      ir.Instruction
	Consumed         []int
	Curves           []ir.Curve
	Underconstrained bool
}

// Strategy is one construction trick. Attempt returns false when the
// trick does not apply; that is never an error.
type Strategy interface {
	Name() string
	Attempt(p ir.Point, applicable []Entry, st *passState) (Outcome, bool)
}

// DefaultStrategies returns the construction tricks in priority order.
// The last one always succeeds.
func DefaultStrategies() []Strategy {
	return []Strategy{
		namedCenter{pred: ir.PredCircumcenter, method: ir.MethodCircumcenter},
		namedCenter{pred: ir.PredOrthocenter, method: ir.MethodOrthocenter},
		namedCenter{pred: ir.PredMidp, method: ir.MethodMidp},
		namedCenter{pred: ir.PredIncenter, method: ir.MethodIncenter},
		namedCenter{pred: ir.PredMixtilinearIncenter, method: ir.MethodMixtilinearIncenter},
		explicitInterLL{},
		curveIntersection{},
		segmentParam{},
		lineParam{},
		circleParam{},
		coordsParam{},
	}
}

func newOutcome(in ir.Instruction, consumed []int, curves ...ir.Curve) Outcome {
	ids := slices.Clone(consumed)
	slices.Sort(ids)
	in.Uses = ids
	return Outcome{Instruction: in, Consumed: ids, Curves: curves}
}

// firstDefining returns the first constraint of pred whose first operand is
// p. A constraint naming p again among its other operands would define p in
// terms of itself and is skipped.
func firstDefining(p ir.Point, pred ir.Pred, applicable []Entry) (Entry, bool) {
	for _, e := range applicable {
		pts := e.Constraint.Points
		if e.Constraint.Pred == pred && len(pts) > 0 && pts[0] == p && !slices.Contains(pts[1:], p) {
			return e, true
		}
	}
	return Entry{}, false
}

// namedCenter computes p as a named center of the remaining operands.
type namedCenter struct {
	pred   ir.Pred
	method ir.Method
}

func (s namedCenter) Name() string { return string(s.method) }

func (s namedCenter) Attempt(p ir.Point, applicable []Entry, _ *passState) (Outcome, bool) {
	e, ok := firstDefining(p, s.pred, applicable)
	if !ok {
		return Outcome{}, false
	}
	args := ir.PointList(slices.Clone(e.Constraint.Points[1:]))
	return newOutcome(ir.Compute(p, s.method, nil, args), []int{e.ID}), true
}

// explicitInterLL handles interLL(p, a, b, c, d): p is the meet of ab and cd.
type explicitInterLL struct{}

func (explicitInterLL) Name() string { return "explicitInterLL" }

func (explicitInterLL) Attempt(p ir.Point, applicable []Entry, _ *passState) (Outcome, bool) {
	for _, e := range applicable {
		c := e.Constraint
		if c.Pred != ir.PredInterLL || len(c.Points) != 5 || c.Points[0] != p || slices.Contains(c.Points[1:], p) {
			continue
		}
		l1 := ir.Connecting(c.Points[1], c.Points[2])
		l2 := ir.Connecting(c.Points[3], c.Points[4])
		return newOutcome(ir.Compute(p, ir.MethodInterLL, nil, l1, l2), []int{e.ID}, l1, l2), true
	}
	return Outcome{}, false
}

// curveIntersection places p on the meet of curves implied by coll/cycl.
//
//	>=2 lines           -> interLL, no ambiguity
//	1 line, >=1 circle  -> interLC with a resolved root
//	>=2 circles         -> interCC with a resolved root
//
// A resolver refusal fails the strategy for this point.
type curveIntersection struct{}

func (curveIntersection) Name() string { return "curveIntersection" }

func (curveIntersection) Attempt(p ir.Point, applicable []Entry, st *passState) (Outcome, bool) {
	lines := linesFor(p, applicable)
	circles := circlesFor(p, applicable)

	switch {
	case len(lines) >= 2:
		l1, l2 := lines[0], lines[1]
		in := ir.Compute(p, ir.MethodInterLL, nil, l1.curve, l2.curve)
		return newOutcome(in, concatIDs(l1.support, l2.support), l1.curve, l2.curve), true

	case len(lines) == 1 && len(circles) >= 1:
		l, c := lines[0], circles[0]
		root, rootIDs, ok := st.roots.resolve(p, l.curve, c.curve, applicable, st.incidence)
		if !ok {
			return Outcome{}, false
		}
		in := ir.Compute(p, ir.MethodInterLC, nil, l.curve, c.curve, root)
		return newOutcome(in, concatIDs(l.support, c.support, rootIDs), l.curve, c.curve), true

	case len(circles) >= 2:
		c1, c2 := circles[0], circles[1]
		root, rootIDs, ok := st.roots.resolve(p, c1.curve, c2.curve, applicable, st.incidence)
		if !ok {
			return Outcome{}, false
		}
		in := ir.Compute(p, ir.MethodInterCC, nil, c1.curve, c2.curve, root)
		return newOutcome(in, concatIDs(c1.support, c2.support, rootIDs), c1.curve, c2.curve), true
	}

	return Outcome{}, false
}

// segmentParam handles onSeg(p, a, b, extra...).
type segmentParam struct{}

func (segmentParam) Name() string { return "onSeg" }

func (segmentParam) Attempt(p ir.Point, applicable []Entry, _ *passState) (Outcome, bool) {
	e, ok := firstDefining(p, ir.PredOnSeg, applicable)
	if !ok || len(e.Constraint.Points) < 3 {
		return Outcome{}, false
	}
	pts := e.Constraint.Points
	ends := ir.PointList(slices.Clone(pts[1:3]))
	extra := ir.PointList(slices.Clone(pts[3:]))
	in := ir.Parameterize(p, ir.MethodOnSeg, nil, ends, extra)
	return newOutcome(in, []int{e.ID}, ir.Connecting(pts[1], pts[2])), true
}

// lineParam places p anywhere on the first coll-derived line.
type lineParam struct{}

func (lineParam) Name() string { return "onLine" }

func (lineParam) Attempt(p ir.Point, applicable []Entry, _ *passState) (Outcome, bool) {
	lines := linesFor(p, applicable)
	if len(lines) == 0 {
		return Outcome{}, false
	}
	l := lines[0]
	return newOutcome(ir.Parameterize(p, ir.MethodOnLine, nil, l.curve), l.support, l.curve), true
}

// circleParam places p anywhere on the first cycl-derived circle.
type circleParam struct{}

func (circleParam) Name() string { return "onCirc" }

func (circleParam) Attempt(p ir.Point, applicable []Entry, _ *passState) (Outcome, bool) {
	circles := circlesFor(p, applicable)
	if len(circles) == 0 {
		return Outcome{}, false
	}
	c := circles[0]
	return newOutcome(ir.Parameterize(p, ir.MethodOnCirc, nil, c.curve), c.support, c.curve), true
}

// coordsParam is the free-coordinate fallback. It always succeeds and
// marks the point as underconstrained.
type coordsParam struct{}

func (coordsParam) Name() string { return "coords" }

func (coordsParam) Attempt(p ir.Point, _ []Entry, _ *passState) (Outcome, bool) {
	out := newOutcome(ir.Parameterize(p, ir.MethodCoords, nil), nil)
	out.Underconstrained = true
	return out, true
}

func concatIDs(groups ...[]int) []int {
	var out []int
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
