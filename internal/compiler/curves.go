package compiler

import (
	"slices"

	"github.com/roach88/ruler/internal/ir"
)

// derivedCurve is a curve implied by one or more coll/cycl constraints
// incident to a point. Support lists the IDs of those constraints.
type derivedCurve struct {
	curve   ir.Curve
	support []int
}

// linesFor collects the lines implied by coll constraints through p.
// Constraints that name the same line are merged into one derived curve.
func linesFor(p ir.Point, applicable []Entry) []derivedCurve {
	return deriveCurves(p, applicable, ir.PredColl, 2, func(others []ir.Point) ir.Curve {
		return ir.Connecting(others...)
	})
}

// circlesFor collects the circles implied by cycl constraints through p.
func circlesFor(p ir.Point, applicable []Entry) []derivedCurve {
	return deriveCurves(p, applicable, ir.PredCycl, 3, func(others []ir.Point) ir.Curve {
		return ir.Through(others...)
	})
}

func deriveCurves(p ir.Point, applicable []Entry, pred ir.Pred, minOthers int, build func([]ir.Point) ir.Curve) []derivedCurve {
	var out []derivedCurve
	for _, e := range applicable {
		if e.Constraint.Pred != pred {
			continue
		}
		others := otherPoints(e.Constraint.Points, p)
		if len(others) < minOthers {
			continue
		}
		curve := build(others)
		idx := slices.IndexFunc(out, func(d derivedCurve) bool { return d.curve.Key() == curve.Key() })
		if idx >= 0 {
			out[idx].support = append(out[idx].support, e.ID)
			continue
		}
		out = append(out, derivedCurve{curve: curve, support: []int{e.ID}})
	}
	return out
}

// otherPoints returns the operands other than p, first occurrence only.
func otherPoints(points []ir.Point, p ir.Point) []ir.Point {
	var out []ir.Point
	for _, q := range points {
		if q != p && !slices.Contains(out, q) {
			out = append(out, q)
		}
	}
	return out
}

// incidence records, per curve key, the points placed on that curve in
// placement order.
type incidence map[string][]ir.Point

func (inc incidence) record(p ir.Point, curves ...ir.Curve) {
	for _, c := range curves {
		k := c.Key()
		if !slices.Contains(inc[k], p) {
			inc[k] = append(inc[k], p)
		}
	}
}

// shared returns the earliest point other than p placed on both curves.
func (inc incidence) shared(a, b ir.Curve, p ir.Point) (ir.Point, bool) {
	onB := inc[b.Key()]
	for _, q := range inc[a.Key()] {
		if q != p && slices.Contains(onB, q) {
			return q, true
		}
	}
	return "", false
}
