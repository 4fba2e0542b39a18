package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ruler/internal/ir"
)

// marshalProblem converts a problem to canonical JSON TEXT for storage.
func marshalProblem(p ir.Problem) (string, error) {
	data, err := ir.MarshalCanonical(p.Canonical())
	if err != nil {
		return "", fmt.Errorf("marshal problem: %w", err)
	}
	return string(data), nil
}

// marshalPoints converts a point list to canonical JSON TEXT.
func marshalPoints(points []ir.Point) (string, error) {
	list := make([]any, len(points))
	for i, p := range points {
		list[i] = p
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal points: %w", err)
	}
	return string(data), nil
}

// unmarshalProblem converts stored JSON TEXT back to a problem.
func unmarshalProblem(data string) (ir.Problem, error) {
	var p ir.Problem
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return ir.Problem{}, fmt.Errorf("unmarshal problem: %w", err)
	}
	p.Constraints = trimSideConditions(p.Constraints)
	return p, nil
}

// unmarshalPoints converts stored JSON TEXT back to a point list.
// Empty input returns an empty list.
func unmarshalPoints(data string) ([]ir.Point, error) {
	points := []ir.Point{}
	if data == "" {
		return points, nil
	}
	if err := json.Unmarshal([]byte(data), &points); err != nil {
		return nil, fmt.Errorf("unmarshal points: %w", err)
	}
	return points, nil
}

// trimSideConditions resets empty NDG and order lists to nil so a decoded
// constraint compares equal to one built with ir.NewConstraint.
func trimSideConditions(cs []ir.Constraint) []ir.Constraint {
	for i := range cs {
		if len(cs[i].NDGs) == 0 {
			cs[i].NDGs = nil
		} else {
			cs[i].NDGs = trimSideConditions(cs[i].NDGs)
		}
		if len(cs[i].Orders) == 0 {
			cs[i].Orders = nil
		} else {
			cs[i].Orders = trimSideConditions(cs[i].Orders)
		}
	}
	return cs
}
