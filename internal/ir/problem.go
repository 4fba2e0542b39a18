package ir

// Problem is the compiler input.
//
// Sample holds the points that are already placed before compilation
// starts. Solve holds the points to compile, in processing order; that
// order is taken as given. Constraints are kept in declaration order, and
// a constraint's index in this slice is its identity for provenance.
type Problem struct {
	Name        string       `json:"name"`
	Sample      []Point      `json:"sample"`
	Solve       []Point      `json:"solve"`
	Constraints []Constraint `json:"constraints"`
}

// Canonical returns the canonical JSON tree of the problem.
func (p Problem) Canonical() map[string]any {
	return map[string]any{
		"name":        p.Name,
		"sample":      pointsCanonical(p.Sample),
		"solve":       pointsCanonical(p.Solve),
		"constraints": constraintsCanonical(p.Constraints),
	}
}

// ConditionCount returns the number of trailing assertions the problem
// would produce if no constraint were consumed.
func (p Problem) ConditionCount() int {
	n := 0
	for _, c := range p.Constraints {
		n += 1 + len(c.NDGs) + len(c.Orders)
	}
	return n
}
