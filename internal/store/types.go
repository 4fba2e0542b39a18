package store

import (
	"errors"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
)

// ErrNotFound is returned when a program or run does not exist.
var ErrNotFound = errors.New("not found")

// ProgramRecord is a stored compile result.
type ProgramRecord struct {
	ID              string                `json:"id"`
	ProblemHash     string                `json:"problem_hash"`
	Problem         ir.Problem            `json:"problem"`
	Passes          int                   `json:"passes"`
	Blacklist       []ir.Point            `json:"blacklist"`
	CompilerVersion string                `json:"compiler_version"`
	IRVersion       string                `json:"ir_version"`
	Instructions    []InstructionRecord   `json:"instructions"`
	Diagnostics     []compiler.Diagnostic `json:"diagnostics"`
}

// InstructionRecord is one stored instruction. Payload holds the canonical
// JSON of the instruction; Text holds its listing form.
type InstructionRecord struct {
	Seq     int       `json:"seq"`
	Op      ir.Opcode `json:"op"`
	Point   ir.Point  `json:"point,omitempty"`
	Text    string    `json:"text"`
	Payload string    `json:"payload"`
	Uses    []int     `json:"uses"`
}

// RunStatus is the outcome of a compile run.
type RunStatus string

const (
	RunOK     RunStatus = "ok"
	RunFailed RunStatus = "failed"
)

// Run records one compile attempt. ProgramID is empty for failed runs.
type Run struct {
	Seq          int64     `json:"seq"`
	ID           string    `json:"id"`
	ProblemHash  string    `json:"problem_hash"`
	ProblemName  string    `json:"problem_name"`
	ProgramID    string    `json:"program_id,omitempty"`
	Status       RunStatus `json:"status"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}
