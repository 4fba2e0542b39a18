package compiler

import (
	"slices"

	"github.com/roach88/ruler/internal/ir"
)

// Blacklist is the set of points whose arbitrary root choice was proven
// inconsistent by an earlier pass. It only grows; it is the sole state
// carried from one pass to the next.
type Blacklist struct {
	points []ir.Point
}

// Contains reports whether p is blacklisted.
func (b *Blacklist) Contains(p ir.Point) bool {
	return slices.Contains(b.points, p)
}

// Add inserts the points not yet present and returns how many were new.
func (b *Blacklist) Add(points ...ir.Point) int {
	added := 0
	for _, p := range points {
		if !b.Contains(p) {
			b.points = append(b.points, p)
			added++
		}
	}
	return added
}

// Points returns the blacklisted points in insertion order.
func (b *Blacklist) Points() []ir.Point {
	return slices.Clone(b.points)
}

// Len returns the number of blacklisted points.
func (b *Blacklist) Len() int {
	return len(b.points)
}

// rootResolver decides how an ambiguous intersection root is picked.
//
// open maps a curve pair to the point holding the pending arbitrary
// choice for it. order keeps registration order so diagnostics and the
// blacklist stay deterministic.
type rootResolver struct {
	open      map[ir.CurvePair]ir.Point
	order     []ir.CurvePair
	blacklist *Blacklist
}

func newRootResolver(blacklist *Blacklist) *rootResolver {
	return &rootResolver{
		open:      make(map[ir.CurvePair]ir.Point),
		blacklist: blacklist,
	}
}

// resolve picks the root for p on the intersection of a and b. It returns
// the root, the IDs of any side constraints it used, and false when it
// refuses (p is blacklisted and nothing disambiguates the root).
//
// Rules, first match wins:
//  1. another point holds an open choice on the same pair: not-equal-to it,
//     and the entry closes
//  2. an earlier point was placed on both curves: not-equal-to it
//  3. an oppSides constraint pairs p with a reference point
//  4. a sameSides constraint pairs p with a reference point
//  5. p is not blacklisted: arbitrary, registered as open
//  6. refuse
func (r *rootResolver) resolve(p ir.Point, a, b ir.Curve, applicable []Entry, inc incidence) (ir.Root, []int, bool) {
	key := ir.PairOf(a, b)

	if q, ok := r.open[key]; ok && q != p {
		r.close(key)
		return ir.NotEqualTo(q), nil, true
	}

	if q, ok := inc.shared(a, b, p); ok {
		return ir.NotEqualTo(q), nil, true
	}

	if ref, line, id, ok := sideConstraint(p, ir.PredOppSides, applicable); ok {
		return ir.OppositeSideOf(ref, line), []int{id}, true
	}
	if ref, line, id, ok := sideConstraint(p, ir.PredSameSides, applicable); ok {
		return ir.SameSideOf(ref, line), []int{id}, true
	}

	if r.blacklist.Contains(p) {
		return ir.Root{}, nil, false
	}
	r.open[key] = p
	r.order = append(r.order, key)
	return ir.Arbitrary(), nil, true
}

func (r *rootResolver) close(key ir.CurvePair) {
	delete(r.open, key)
	r.order = slices.DeleteFunc(r.order, func(k ir.CurvePair) bool { return k == key })
}

// pending returns the open pairs and their holders in registration order.
func (r *rootResolver) pending() ([]ir.CurvePair, []ir.Point) {
	keys := slices.Clone(r.order)
	points := make([]ir.Point, len(keys))
	for i, k := range keys {
		points[i] = r.open[k]
	}
	return keys, points
}

// sideConstraint finds the first side constraint of the given predicate
// that names p as one of its first two operands. The other of the two is
// the reference point; the last two operands span the line. Constraints
// that mention p anywhere else are skipped.
func sideConstraint(p ir.Point, pred ir.Pred, applicable []Entry) (ir.Point, ir.Line, int, bool) {
	for _, e := range applicable {
		c := e.Constraint
		if c.Pred != pred || len(c.Points) != 4 {
			continue
		}
		var ref ir.Point
		switch p {
		case c.Points[0]:
			ref = c.Points[1]
		case c.Points[1]:
			ref = c.Points[0]
		default:
			continue
		}
		if ref == p || slices.Contains(c.Points[2:], p) {
			continue
		}
		return ref, ir.Connecting(c.Points[2], c.Points[3]), e.ID, true
	}
	return "", ir.Line{}, 0, false
}
