package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Point is an opaque point identifier. The compiler never interprets it.
type Point string

// Term is an instruction argument: a point list, a curve, or a root.
type Term interface {
	fmt.Stringer

	// Refs returns every point the term references, in operand order.
	Refs() []Point

	canonical() any
}

// PointList is an ordered list of points used as an instruction argument,
// e.g. the triangle of a circumcenter or the endpoints of a segment.
type PointList []Point

// String renders the list as [A,B,C].
func (l PointList) String() string {
	return "[" + joinPoints(l) + "]"
}

// Refs implements Term.
func (l PointList) Refs() []Point {
	return slices.Clone(l)
}

func (l PointList) canonical() any {
	return pointsCanonical(l)
}

// Curve is a line or circle descriptor.
type Curve interface {
	Term

	// Key is the canonical identity of the curve. Two descriptors that
	// name the same operands in a different order share a key.
	Key() string
}

// LineMode identifies how a line is constructed.
type LineMode string

// LineConnecting is the line through its operand points.
const LineConnecting LineMode = "connecting"

// Line is a line descriptor.
type Line struct {
	Mode   LineMode
	Points []Point
}

// Connecting returns the line through the given points.
func Connecting(points ...Point) Line {
	return Line{Mode: LineConnecting, Points: slices.Clone(points)}
}

// String renders the line as Line(A,B).
func (l Line) String() string {
	return "Line(" + joinPoints(l.Points) + ")"
}

// Refs implements Term.
func (l Line) Refs() []Point {
	return slices.Clone(l.Points)
}

// Key implements Curve.
func (l Line) Key() string {
	return curveKey("line", string(l.Mode), l.Points)
}

func (l Line) canonical() any {
	return map[string]any{
		"line":   string(l.Mode),
		"points": pointsCanonical(l.Points),
	}
}

// CircleMode identifies how a circle is constructed.
type CircleMode string

// CircleThrough is the circle through three operand points.
const CircleThrough CircleMode = "c3"

// Circle is a circle descriptor.
type Circle struct {
	Mode   CircleMode
	Points []Point
}

// Through returns the circle through the given points.
func Through(points ...Point) Circle {
	return Circle{Mode: CircleThrough, Points: slices.Clone(points)}
}

// String renders the circle as Circle(A,B,C).
func (c Circle) String() string {
	return "Circle(" + joinPoints(c.Points) + ")"
}

// Refs implements Term.
func (c Circle) Refs() []Point {
	return slices.Clone(c.Points)
}

// Key implements Curve.
func (c Circle) Key() string {
	return curveKey("circle", string(c.Mode), c.Points)
}

func (c Circle) canonical() any {
	return map[string]any{
		"circle": string(c.Mode),
		"points": pointsCanonical(c.Points),
	}
}

// CurvePair is the unordered identity of two curves. Build it with PairOf
// so that both discovery orders produce the same value.
type CurvePair struct {
	First  string
	Second string
}

// PairOf returns the normalized pair key for two curves.
func PairOf(a, b Curve) CurvePair {
	ka, kb := a.Key(), b.Key()
	if kb < ka {
		ka, kb = kb, ka
	}
	return CurvePair{First: ka, Second: kb}
}

func (k CurvePair) String() string {
	return "{" + k.First + " | " + k.Second + "}"
}

// RootKind selects one solution of a two-root intersection.
type RootKind string

const (
	// RootArbitrary lets the evaluator pick either solution.
	RootArbitrary RootKind = "arbitrary"
	// RootNotEqual picks the solution distinct from a known point.
	RootNotEqual RootKind = "not-equal-to"
	// RootSameSide picks the solution on the same side of a line as a point.
	RootSameSide RootKind = "same-side-of"
	// RootOppositeSide picks the solution on the opposite side of a line.
	RootOppositeSide RootKind = "opposite-side-of"
)

// Root is the resolution attached to an interLC or interCC instruction.
// Point is unused for RootArbitrary; Line is set only for the side kinds.
type Root struct {
	Kind  RootKind
	Point Point
	Line  *Line
}

// Arbitrary returns a root that accepts any solution.
func Arbitrary() Root { return Root{Kind: RootArbitrary} }

// NotEqualTo returns a root that excludes p.
func NotEqualTo(p Point) Root { return Root{Kind: RootNotEqual, Point: p} }

// SameSideOf returns a root on the same side of l as p.
func SameSideOf(p Point, l Line) Root { return Root{Kind: RootSameSide, Point: p, Line: &l} }

// OppositeSideOf returns a root on the opposite side of l from p.
func OppositeSideOf(p Point, l Line) Root { return Root{Kind: RootOppositeSide, Point: p, Line: &l} }

func (r Root) payload() []string {
	switch r.Kind {
	case RootArbitrary:
		return nil
	case RootNotEqual:
		return []string{string(r.Point)}
	default:
		out := []string{string(r.Point)}
		if r.Line != nil {
			out = append(out, r.Line.String())
		}
		return out
	}
}

// String renders the root as Root(kind, [payload]).
func (r Root) String() string {
	return fmt.Sprintf("Root(%s, [%s])", r.Kind, strings.Join(r.payload(), ", "))
}

// Refs implements Term.
func (r Root) Refs() []Point {
	if r.Kind == RootArbitrary {
		return nil
	}
	refs := []Point{r.Point}
	if r.Line != nil {
		refs = append(refs, r.Line.Points...)
	}
	return refs
}

func (r Root) canonical() any {
	args := []any{}
	if r.Kind != RootArbitrary {
		args = append(args, string(r.Point))
	}
	if r.Line != nil {
		args = append(args, r.Line.canonical())
	}
	return map[string]any{
		"root": string(r.Kind),
		"args": args,
	}
}

func curveKey(kind, mode string, points []Point) string {
	sorted := make([]string, len(points))
	for i, p := range points {
		sorted[i] = string(p)
	}
	slices.Sort(sorted)
	return kind + "/" + mode + "/" + strings.Join(sorted, ",")
}

func joinPoints(points []Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

func pointsCanonical(points []Point) []any {
	out := make([]any, len(points))
	for i, p := range points {
		out[i] = string(p)
	}
	return out
}
