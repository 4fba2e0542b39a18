package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
)

// ProgramSnapshot captures the compile outcome for a scenario.
// All fields use canonical JSON serialization for deterministic comparison.
type ProgramSnapshot struct {
	ScenarioName string
	Program      *compiler.Program
	ErrorCode    string
}

// toCanonicalMap converts a ProgramSnapshot to a map[string]any for canonical JSON serialization.
func (s *ProgramSnapshot) toCanonicalMap() map[string]any {
	if s.Program == nil {
		return map[string]any{
			"scenario": s.ScenarioName,
			"error":    s.ErrorCode,
		}
	}

	instrs := make([]any, len(s.Program.Instructions))
	for i, in := range s.Program.Instructions {
		instrs[i] = in.Canonical()
	}

	diags := make([]any, len(s.Program.Diagnostics))
	for i, d := range s.Program.Diagnostics {
		diags[i] = map[string]any{
			"kind":    string(d.Kind),
			"pass":    d.Pass,
			"points":  pointList(d.Points),
			"message": d.Message,
		}
	}

	return map[string]any{
		"scenario":     s.ScenarioName,
		"passes":       s.Program.Passes,
		"blacklist":    pointList(s.Program.Blacklist),
		"instructions": instrs,
		"diagnostics":  diags,
	}
}

func pointList(points []ir.Point) []any {
	out := make([]any, len(points))
	for i, p := range points {
		out[i] = string(p)
	}
	return out
}

// Snapshot renders the canonical JSON snapshot of a result.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := ProgramSnapshot{
		ScenarioName: scenarioName,
		Program:      result.Program,
		ErrorCode:    result.ErrorCode,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the program against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the program doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
