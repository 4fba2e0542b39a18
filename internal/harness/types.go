package harness

import (
	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/store"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Listing is the compiled program rendered one instruction per line.
	// Empty when the compile failed.
	Listing []string `json:"listing"`

	// Program is the compiled program, nil when the compile failed.
	Program *compiler.Program `json:"program,omitempty"`

	// Run is the run row recorded for this compile.
	Run store.Run `json:"run"`

	// ErrorCode is the compile error code, empty on success.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Listing: []string{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
