package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
	"github.com/roach88/ruler/internal/loader"
	"github.com/roach88/ruler/internal/store"
	"github.com/roach88/ruler/internal/testutil"
)

// Harness is the test execution engine.
// It compiles one scenario into an isolated store with a fixed run token.
type Harness struct {
	store    *store.Store
	compiler *compiler.Compiler
	tokens   *testutil.FixedTokenGenerator
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Build the problem and reject it if validation fails
// 2. Create fresh in-memory database
// 3. Compile and record the outcome
// 4. Check expectations and assertions
//
// The returned error reports harness failures (bad problem, store errors).
// Expectation mismatches are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with compiler logging routed to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	problem, err := scenario.BuildProblem()
	if err != nil {
		return nil, err
	}
	if verrs := loader.Validate(problem); len(verrs) > 0 {
		return nil, fmt.Errorf("scenario %s: invalid problem: %w", scenario.Name, &verrs[0])
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	opts := []compiler.Option{compiler.WithLogger(logger)}
	if scenario.MaxPasses > 0 {
		opts = append(opts, compiler.WithMaxPasses(scenario.MaxPasses))
	}

	h := &Harness{
		store:    st,
		compiler: compiler.New(opts...),
		tokens:   testutil.NewFixedTokenGenerator(scenario.RunToken),
		logger:   logger,
	}

	ctx := context.Background()
	result, err := h.execute(ctx, problem)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	for _, msg := range checkExpectation(result, scenario.Expect) {
		result.AddError(msg)
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// execute compiles the problem and records the outcome in the store.
func (h *Harness) execute(ctx context.Context, problem ir.Problem) (*Result, error) {
	result := NewResult()

	prog, compileErr := h.compiler.Compile(problem)
	if compileErr != nil {
		var ce *compiler.CompileError
		if !errors.As(compileErr, &ce) {
			return nil, fmt.Errorf("compile: %w", compileErr)
		}
		result.ErrorCode = string(ce.Code)
		prog = nil
	}

	run, err := h.store.Record(ctx, h.tokens, problem, prog, compileErr)
	if err != nil {
		return nil, err
	}
	result.Run = run

	if prog != nil {
		result.Program = prog
		result.Listing = ir.Listing(prog.Instructions)
	}

	h.logger.Info("scenario compiled",
		"problem", problem.Name,
		"run", run.ID,
		"program", run.ProgramID,
		"status", run.Status,
	)
	return result, nil
}

// checkExpectation compares the outcome against the scenario's expect block.
func checkExpectation(result *Result, expect Expectation) []string {
	var errs []string

	if expect.Error != "" {
		if result.ErrorCode != expect.Error {
			errs = append(errs, fmt.Sprintf("expected error %s, got %s", expect.Error, describeCode(result.ErrorCode)))
		}
		return errs
	}
	if result.Program == nil {
		return append(errs, fmt.Sprintf("expected successful compile, got error %s: %s",
			result.ErrorCode, result.Run.ErrorMessage))
	}

	prog := result.Program
	if expect.Instructions != nil && !slices.Equal(expect.Instructions, result.Listing) {
		errs = append(errs, fmt.Sprintf("instructions mismatch:\n  expected: %q\n  actual:   %q",
			expect.Instructions, result.Listing))
	}
	if expect.Passes != 0 && expect.Passes != prog.Passes {
		errs = append(errs, fmt.Sprintf("expected %d passes, got %d", expect.Passes, prog.Passes))
	}
	if expect.Blacklist != nil {
		actual := make([]string, len(prog.Blacklist))
		for i, p := range prog.Blacklist {
			actual[i] = string(p)
		}
		if !slices.Equal(expect.Blacklist, actual) {
			errs = append(errs, fmt.Sprintf("expected blacklist %v, got %v", expect.Blacklist, actual))
		}
	}
	if expect.Warnings != nil {
		kinds := make([]string, len(prog.Diagnostics))
		for i, d := range prog.Diagnostics {
			kinds[i] = string(d.Kind)
		}
		if !slices.Equal(expect.Warnings, kinds) {
			errs = append(errs, fmt.Sprintf("expected warnings %v, got %v", expect.Warnings, kinds))
		}
	}
	return errs
}

func describeCode(code string) string {
	if code == "" {
		return "success"
	}
	return code
}
