package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/ruler/internal/ir"
)

// CompileError is a fatal compile failure.
//
// Recoverable root ambiguity never surfaces as an error; it is handled by
// the blacklist and restart protocol. CompileError covers:
//   - Restart limit: the pass ceiling was reached with roots still open
//   - Stalled: a failed pass could not grow the blacklist
//   - Invariant: no strategy applied, or an instruction uses a point
//     before it is defined
type CompileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Point is the point being placed, for invariant errors.
	Point ir.Point

	// Blacklist is the blacklist at the time of failure.
	Blacklist []ir.Point

	// OpenKeys are the curve pairs whose roots were still unresolved.
	OpenKeys []ir.CurvePair
}

// ErrorCode categorizes compile errors.
type ErrorCode string

const (
	// ErrCodeRestartLimit indicates the pass ceiling was exceeded.
	ErrCodeRestartLimit ErrorCode = "RESTART_LIMIT"

	// ErrCodeStalled indicates a pass failed without growing the blacklist.
	ErrCodeStalled ErrorCode = "STALLED"

	// ErrCodeInvariant indicates an internal invariant was violated.
	ErrCodeInvariant ErrorCode = "INVARIANT"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.Point != "":
		return fmt.Sprintf("%s: %s (point=%s)", e.Code, e.Message, e.Point)
	case len(e.OpenKeys) > 0:
		keys := make([]string, len(e.OpenKeys))
		for i, k := range e.OpenKeys {
			keys[i] = k.String()
		}
		return fmt.Sprintf("%s: %s (blacklist=%v, open=[%s])",
			e.Code, e.Message, pointNames(e.Blacklist), strings.Join(keys, ", "))
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsRestartLimitError returns true if the error is a restart limit error.
// Uses errors.As to handle wrapped errors.
func IsRestartLimitError(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeRestartLimit
	}
	return false
}

// IsStalledError returns true if the error is a stalled blacklist error.
func IsStalledError(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeStalled
	}
	return false
}

// IsInvariantError returns true if the error is an internal invariant error.
func IsInvariantError(err error) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvariant
	}
	return false
}

// NewRestartLimitError creates a CompileError for an exceeded pass ceiling.
func NewRestartLimitError(maxPasses int, blacklist []ir.Point, open []ir.CurvePair) *CompileError {
	return &CompileError{
		Code:      ErrCodeRestartLimit,
		Message:   fmt.Sprintf("open roots remain after %d pass(es)", maxPasses),
		Blacklist: blacklist,
		OpenKeys:  open,
	}
}

// NewStalledError creates a CompileError for a blacklist that cannot grow.
func NewStalledError(blacklist []ir.Point, open []ir.CurvePair) *CompileError {
	return &CompileError{
		Code:      ErrCodeStalled,
		Message:   "open roots are held only by blacklisted points",
		Blacklist: blacklist,
		OpenKeys:  open,
	}
}

// NewInvariantError creates a CompileError for an internal invariant violation.
func NewInvariantError(p ir.Point, message string) *CompileError {
	return &CompileError{
		Code:    ErrCodeInvariant,
		Message: message,
		Point:   p,
	}
}
