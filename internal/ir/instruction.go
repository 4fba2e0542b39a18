package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Opcode is the instruction kind.
type Opcode string

const (
	OpCompute      Opcode = "compute"
	OpParameterize Opcode = "parameterize"
	OpAssert       Opcode = "assert"
	OpAssertNDG    Opcode = "assert_ndg"
)

// Method is the operation vocabulary downstream evaluators must support.
type Method string

const (
	MethodCircumcenter        Method = "circumcenter"
	MethodOrthocenter         Method = "orthocenter"
	MethodMidp                Method = "midp"
	MethodIncenter            Method = "incenter"
	MethodMixtilinearIncenter Method = "mixtilinearIncenter"
	MethodInterLL             Method = "interLL"
	MethodInterLC             Method = "interLC"
	MethodInterCC             Method = "interCC"
	MethodOnSeg               Method = "onSeg"
	MethodOnLine              Method = "onLine"
	MethodOnCirc              Method = "onCirc"
	MethodCoords              Method = "coords"
)

// Instruction is one step of a compiled program.
//
// Compute and Parameterize define Point using Method and Args. Assert and
// AssertNDG carry Assertion. Uses lists the indices (into
// Problem.Constraints) of the constraints this instruction consumed, or the
// single source constraint of a trailing assertion.
type Instruction struct {
	Op        Opcode
	Point     Point
	Method    Method
	Args      []Term
	Assertion *Constraint
	Uses      []int
}

// Compute returns a Compute instruction.
func Compute(p Point, m Method, uses []int, args ...Term) Instruction {
	return Instruction{Op: OpCompute, Point: p, Method: m, Args: args, Uses: slices.Clone(uses)}
}

// Parameterize returns a Parameterize instruction.
func Parameterize(p Point, m Method, uses []int, args ...Term) Instruction {
	return Instruction{Op: OpParameterize, Point: p, Method: m, Args: args, Uses: slices.Clone(uses)}
}

// Assert returns a trailing assertion of c, sourced from constraint index source.
func Assert(c Constraint, source int) Instruction {
	return Instruction{Op: OpAssert, Assertion: &c, Uses: []int{source}}
}

// AssertNDG returns a trailing non-degeneracy assertion.
func AssertNDG(c Constraint, source int) Instruction {
	return Instruction{Op: OpAssertNDG, Assertion: &c, Uses: []int{source}}
}

// Defines reports whether the instruction places a point.
func (i Instruction) Defines() bool {
	return i.Op == OpCompute || i.Op == OpParameterize
}

// Refs returns every point referenced by the arguments, in argument order.
func (i Instruction) Refs() []Point {
	var refs []Point
	for _, a := range i.Args {
		refs = append(refs, a.Refs()...)
	}
	return refs
}

// String renders the instruction, e.g. Compute(D, [midp, [A,B]]).
func (i Instruction) String() string {
	switch i.Op {
	case OpCompute, OpParameterize:
		parts := []string{string(i.Method)}
		for _, a := range i.Args {
			parts = append(parts, a.String())
		}
		name := "Compute"
		if i.Op == OpParameterize {
			name = "Parameterize"
		}
		return fmt.Sprintf("%s(%s, [%s])", name, i.Point, strings.Join(parts, ", "))
	case OpAssert:
		return fmt.Sprintf("Assert(%s)", i.Assertion)
	case OpAssertNDG:
		return fmt.Sprintf("AssertNDG(%s)", i.Assertion)
	default:
		return fmt.Sprintf("Unknown(%s)", i.Op)
	}
}

// Canonical returns the canonical JSON tree of the instruction.
func (i Instruction) Canonical() map[string]any {
	uses := make([]any, len(i.Uses))
	for k, u := range i.Uses {
		uses[k] = u
	}
	obj := map[string]any{
		"op":   string(i.Op),
		"uses": uses,
	}
	if i.Defines() {
		args := make([]any, len(i.Args))
		for k, a := range i.Args {
			args[k] = a.canonical()
		}
		obj["point"] = string(i.Point)
		obj["method"] = string(i.Method)
		obj["args"] = args
	}
	if i.Assertion != nil {
		obj["constraint"] = i.Assertion.Canonical()
	}
	return obj
}

// MarshalJSON encodes the instruction as canonical JSON.
func (i Instruction) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(i.Canonical())
}

// Listing renders instructions one per line.
func Listing(instrs []Instruction) []string {
	out := make([]string, len(instrs))
	for k, in := range instrs {
		out[k] = in.String()
	}
	return out
}
