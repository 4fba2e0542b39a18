package ir

import "slices"

// Pred is a predicate tag from the closed constraint vocabulary.
type Pred string

// Predicates that drive construction strategies.
const (
	PredCircumcenter        Pred = "circumcenter"
	PredOrthocenter         Pred = "orthocenter"
	PredMidp                Pred = "midp"
	PredIncenter            Pred = "incenter"
	PredMixtilinearIncenter Pred = "mixtilinearIncenter"
	PredInterLL             Pred = "interLL"
	PredColl                Pred = "coll"
	PredCycl                Pred = "cycl"
	PredOnSeg               Pred = "onSeg"
	PredOppSides            Pred = "oppSides"
	PredSameSides           Pred = "sameSides"
)

// Predicates that are only ever asserted.
const (
	PredCong      Pred = "cong"
	PredPerp      Pred = "perp"
	PredPara      Pred = "para"
	PredEqAngle   Pred = "eqangle"
	PredEqRatio   Pred = "eqratio"
	PredNeq       Pred = "neq"
	PredFoot      Pred = "foot"
	PredTangentCC Pred = "tangentCC"
)

// Arity bounds the operand count of a predicate. Max of 0 means unbounded.
type Arity struct {
	Min int
	Max int
}

// Accepts reports whether n operands satisfy the bounds.
func (a Arity) Accepts(n int) bool {
	if n < a.Min {
		return false
	}
	return a.Max == 0 || n <= a.Max
}

// Vocabulary is the closed set of predicates a problem may use.
var Vocabulary = map[Pred]Arity{
	PredCircumcenter:        {Min: 4, Max: 4},
	PredOrthocenter:         {Min: 4, Max: 4},
	PredMidp:                {Min: 3, Max: 3},
	PredIncenter:            {Min: 4, Max: 4},
	PredMixtilinearIncenter: {Min: 4, Max: 4},
	PredInterLL:             {Min: 5, Max: 5},
	PredColl:                {Min: 3},
	PredCycl:                {Min: 4},
	PredOnSeg:               {Min: 3},
	PredOppSides:            {Min: 4, Max: 4},
	PredSameSides:           {Min: 4, Max: 4},
	PredCong:                {Min: 4, Max: 4},
	PredPerp:                {Min: 4, Max: 4},
	PredPara:                {Min: 4, Max: 4},
	PredEqAngle:             {Min: 8, Max: 8},
	PredEqRatio:             {Min: 8, Max: 8},
	PredNeq:                 {Min: 2, Max: 2},
	PredFoot:                {Min: 4, Max: 4},
	PredTangentCC:           {Min: 4},
}

// Known reports whether p belongs to the vocabulary.
func (p Pred) Known() bool {
	_, ok := Vocabulary[p]
	return ok
}

// Constraint is a relational constraint over points. NDGs and Orders are
// side conditions that are asserted but never used to place a point.
type Constraint struct {
	Pred   Pred         `json:"pred"`
	Points []Point      `json:"points"`
	NDGs   []Constraint `json:"ndgs,omitempty"`
	Orders []Constraint `json:"orders,omitempty"`
}

// NewConstraint builds a constraint without side conditions.
func NewConstraint(pred Pred, points ...Point) Constraint {
	return Constraint{Pred: pred, Points: points}
}

// WithNDGs returns a copy of c carrying the given non-degeneracy conditions.
func (c Constraint) WithNDGs(ndgs ...Constraint) Constraint {
	c.NDGs = append(slices.Clone(c.NDGs), ndgs...)
	return c
}

// WithOrders returns a copy of c carrying the given ordering conditions.
func (c Constraint) WithOrders(orders ...Constraint) Constraint {
	c.Orders = append(slices.Clone(c.Orders), orders...)
	return c
}

// Mentions reports whether p is one of the operands.
func (c Constraint) Mentions(p Point) bool {
	return slices.Contains(c.Points, p)
}

// RepeatedOperand returns a point that makes the constraint unusable for
// placing a point because it appears twice where distinct points are needed.
// Defining predicates may not repeat their subject (the first operand)
// among the rest; side predicates need four distinct points. Other
// predicates may repeat operands freely, as in cong(A,B,A,C).
func (c Constraint) RepeatedOperand() (Point, bool) {
	switch c.Pred {
	case PredCircumcenter, PredOrthocenter, PredMidp, PredIncenter,
		PredMixtilinearIncenter, PredInterLL, PredOnSeg:
		if len(c.Points) > 0 && slices.Contains(c.Points[1:], c.Points[0]) {
			return c.Points[0], true
		}
	case PredOppSides, PredSameSides:
		for i, p := range c.Points {
			if slices.Contains(c.Points[i+1:], p) {
				return p, true
			}
		}
	}
	return "", false
}

// String renders the constraint as pred(A,B,C).
func (c Constraint) String() string {
	return string(c.Pred) + "(" + joinPoints(c.Points) + ")"
}

// Canonical returns the canonical JSON tree of the constraint.
func (c Constraint) Canonical() map[string]any {
	return map[string]any{
		"pred":   string(c.Pred),
		"points": pointsCanonical(c.Points),
		"ndgs":   constraintsCanonical(c.NDGs),
		"orders": constraintsCanonical(c.Orders),
	}
}

func constraintsCanonical(cs []Constraint) []any {
	out := make([]any, len(cs))
	for i, c := range cs {
		out[i] = c.Canonical()
	}
	return out
}
