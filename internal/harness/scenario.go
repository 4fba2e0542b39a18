package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ruler/internal/ir"
	"github.com/roach88/ruler/internal/loader"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Problem is the problem to compile, written inline.
	Problem *ProblemDoc `yaml:"problem,omitempty"`

	// CUE is the problem as CUE source declaring exactly one problem.
	// Exactly one of Problem and CUE must be set.
	CUE string `yaml:"cue,omitempty"`

	// MaxPasses overrides the compiler pass ceiling. Zero keeps the default.
	MaxPasses int `yaml:"max_passes,omitempty"`

	// RunToken is an optional fixed run id. Defaults to "test-run-default".
	RunToken string `yaml:"run_token,omitempty"`

	// Expect holds exact expectations on the compile outcome.
	Expect Expectation `yaml:"expect"`

	// Assertions are additional checks on the listing and stored rows.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ProblemDoc is the YAML form of a problem.
type ProblemDoc struct {
	Sample      []string        `yaml:"sample"`
	Solve       []string        `yaml:"solve"`
	Constraints []ConstraintDoc `yaml:"constraints"`
}

// ConstraintDoc is the YAML form of a constraint.
type ConstraintDoc struct {
	Pred   string          `yaml:"pred"`
	Points []string        `yaml:"points"`
	NDGs   []ConstraintDoc `yaml:"ndgs,omitempty"`
	Orders []ConstraintDoc `yaml:"orders,omitempty"`
}

// Expectation describes the expected compile outcome. Nil fields are not
// checked. When Error is set the compile must fail with that code and the
// other fields are ignored.
type Expectation struct {
	// Instructions is the exact expected listing, in order.
	Instructions []string `yaml:"instructions,omitempty"`

	// Passes is the expected pass count. Zero is not checked.
	Passes int `yaml:"passes,omitempty"`

	// Blacklist is the expected final blacklist.
	Blacklist []string `yaml:"blacklist,omitempty"`

	// Warnings lists the expected diagnostic kinds, in order.
	Warnings []string `yaml:"warnings,omitempty"`

	// Error is the expected compile error code, e.g. RESTART_LIMIT.
	Error string `yaml:"error,omitempty"`
}

// Assertion type constants.
const (
	AssertListingContains = "listing_contains"
	AssertListingOrder    = "listing_order"
	AssertOpCount         = "op_count"
	AssertConsumed        = "consumed"
	AssertFinalState      = "final_state"
)

// Assertion validates the listing or the stored rows.
type Assertion struct {
	// Type selects the assertion:
	// - "listing_contains": Instruction appears in the listing
	// - "listing_order": Instructions appear in this relative order
	// - "op_count": Exactly Count instructions have opcode Op
	// - "consumed": Constraint is used by a defining instruction
	// - "final_state": Query Table and verify expected values
	Type string `yaml:"type"`

	// Instruction is the listing line (used by listing_contains).
	Instruction string `yaml:"instruction,omitempty"`

	// Instructions is the expected relative order (used by listing_order).
	Instructions []string `yaml:"instructions,omitempty"`

	// Op is the opcode to count (used by op_count).
	Op string `yaml:"op,omitempty"`

	// Count is the expected number of occurrences (used by op_count).
	Count int `yaml:"count,omitempty"`

	// Constraint is the input index (used by consumed).
	Constraint *int `yaml:"constraint,omitempty"`

	// Table is the store table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected column values (used by final_state).
	// Subset match - only specified columns are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML held in memory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "instruction:" vs "instructions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarioFiles returns the .yaml and .yml files under dir, sorted.
func FindScenarioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if !info.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// BuildProblem converts the scenario's problem into an ir.Problem named
// after the scenario.
func (s *Scenario) BuildProblem() (ir.Problem, error) {
	if s.CUE != "" {
		result, errs := loader.LoadString(s.CUE, loader.LoadModeFailFast)
		if len(errs) > 0 {
			return ir.Problem{}, fmt.Errorf("cue problem: %w", errs[0])
		}
		if len(result.Problems) != 1 {
			return ir.Problem{}, fmt.Errorf("cue problem: expected exactly one problem, found %d", len(result.Problems))
		}
		p := result.Problems[0]
		p.Name = s.Name
		return p, nil
	}

	p := ir.Problem{
		Name:        s.Name,
		Sample:      toPoints(s.Problem.Sample),
		Solve:       toPoints(s.Problem.Solve),
		Constraints: toConstraints(s.Problem.Constraints),
	}
	return p, nil
}

func toPoints(names []string) []ir.Point {
	out := make([]ir.Point, len(names))
	for i, n := range names {
		out[i] = ir.Point(n)
	}
	return out
}

func toConstraints(docs []ConstraintDoc) []ir.Constraint {
	out := make([]ir.Constraint, len(docs))
	for i, d := range docs {
		out[i] = ir.Constraint{
			Pred:   ir.Pred(d.Pred),
			Points: toPoints(d.Points),
		}
		if len(d.NDGs) > 0 {
			out[i].NDGs = toConstraints(d.NDGs)
		}
		if len(d.Orders) > 0 {
			out[i].Orders = toConstraints(d.Orders)
		}
	}
	return out
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	hasInline := s.Problem != nil
	hasCUE := strings.TrimSpace(s.CUE) != ""
	switch {
	case hasInline && hasCUE:
		return fmt.Errorf("problem and cue are mutually exclusive")
	case !hasInline && !hasCUE:
		return fmt.Errorf("one of problem or cue is required")
	}

	if s.MaxPasses < 0 {
		return fmt.Errorf("max_passes must be non-negative")
	}

	if s.Expect.Error == "" && s.Expect.Instructions == nil && s.Expect.Passes == 0 &&
		s.Expect.Blacklist == nil && s.Expect.Warnings == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions must check something")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertListingContains:
		if a.Instruction == "" {
			return fmt.Errorf("assertions[%d]: instruction is required for listing_contains", index)
		}
	case AssertListingOrder:
		if len(a.Instructions) == 0 {
			return fmt.Errorf("assertions[%d]: instructions list is required for listing_order", index)
		}
	case AssertOpCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for op_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for op_count", index)
		}
	case AssertConsumed:
		if a.Constraint == nil || *a.Constraint < 0 {
			return fmt.Errorf("assertions[%d]: non-negative constraint is required for consumed", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
