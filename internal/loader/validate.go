package loader

import (
	"fmt"
	"strings"

	"github.com/roach88/ruler/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrEmptyName        = "E101" // problem or point name is empty
	ErrUnknownPredicate = "E102" // predicate outside the vocabulary
	ErrArity            = "E103" // wrong operand count for predicate
	ErrUndefinedPoint   = "E104" // constraint mentions an undeclared point
	ErrDuplicatePoint   = "E105" // point declared twice
	ErrSampledAndSolved = "E106" // point is both sampled and solved
	ErrRepeatedOperand  = "E107" // constraint repeats a point it must keep distinct
)

// ValidationError represents a structural problem error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a problem against the rules the compiler relies on.
// Returns all errors found (does not fail-fast).
func Validate(p ir.Problem) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "problem name is required",
			Code:    ErrEmptyName,
		})
	}

	declared := make(map[ir.Point]string)
	declare := func(field string, points []ir.Point) {
		for i, pt := range points {
			path := fmt.Sprintf("%s[%d]", field, i)
			if strings.TrimSpace(string(pt)) == "" {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: "point name is empty",
					Code:    ErrEmptyName,
				})
				continue
			}
			prev, seen := declared[pt]
			switch {
			case !seen:
				declared[pt] = field
			case prev == field:
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("point %s is declared more than once", pt),
					Code:    ErrDuplicatePoint,
				})
			default:
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("point %s is both sampled and solved", pt),
					Code:    ErrSampledAndSolved,
				})
			}
		}
	}
	declare("sample", p.Sample)
	declare("solve", p.Solve)

	for i, c := range p.Constraints {
		errs = append(errs, validateConstraint(c, fmt.Sprintf("constraints[%d]", i), declared)...)
	}

	return errs
}

func validateConstraint(c ir.Constraint, field string, declared map[ir.Point]string) []ValidationError {
	var errs []ValidationError

	arity, known := ir.Vocabulary[c.Pred]
	if !known {
		errs = append(errs, ValidationError{
			Field:   field + ".pred",
			Message: fmt.Sprintf("unknown predicate %q", c.Pred),
			Code:    ErrUnknownPredicate,
		})
	} else if !arity.Accepts(len(c.Points)) {
		errs = append(errs, ValidationError{
			Field:   field + ".points",
			Message: fmt.Sprintf("%s takes %s operands, got %d", c.Pred, describeArity(arity), len(c.Points)),
			Code:    ErrArity,
		})
	}

	if pt, repeated := c.RepeatedOperand(); repeated {
		errs = append(errs, ValidationError{
			Field:   field + ".points",
			Message: fmt.Sprintf("%s repeats point %s", c.Pred, pt),
			Code:    ErrRepeatedOperand,
		})
	}

	for i, pt := range c.Points {
		if _, ok := declared[pt]; !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.points[%d]", field, i),
				Message: fmt.Sprintf("point %s is neither sampled nor solved", pt),
				Code:    ErrUndefinedPoint,
			})
		}
	}

	for i, ndg := range c.NDGs {
		errs = append(errs, validateConstraint(ndg, fmt.Sprintf("%s.ndgs[%d]", field, i), declared)...)
	}
	for i, ord := range c.Orders {
		errs = append(errs, validateConstraint(ord, fmt.Sprintf("%s.orders[%d]", field, i), declared)...)
	}
	return errs
}

func describeArity(a ir.Arity) string {
	switch {
	case a.Max == 0:
		return fmt.Sprintf("at least %d", a.Min)
	case a.Min == a.Max:
		return fmt.Sprintf("exactly %d", a.Min)
	default:
		return fmt.Sprintf("%d to %d", a.Min, a.Max)
	}
}
