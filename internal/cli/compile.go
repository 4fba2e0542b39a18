package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
	"github.com/roach88/ruler/internal/loader"
	"github.com/roach88/ruler/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Problem   string // compile only this problem
	Database  string // record programs and runs here
	Output    string // output file path
	MaxPasses int    // pass ceiling, 0 for the compiler default

	// TokenGenerator overrides the run token source (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	TokenGenerator store.TokenGenerator
}

// ProgramOutput is the compile result for one problem.
type ProgramOutput struct {
	Problem      string                `json:"problem"`
	ProgramID    string                `json:"program_id,omitempty"`
	RunID        string                `json:"run_id,omitempty"`
	Passes       int                   `json:"passes,omitempty"`
	Blacklist    []ir.Point            `json:"blacklist,omitempty"`
	Instructions []ir.Instruction      `json:"instructions,omitempty"`
	Listing      []string              `json:"listing,omitempty"`
	Diagnostics  []compiler.Diagnostic `json:"diagnostics,omitempty"`
	Error        *CLIError             `json:"error,omitempty"`
}

// CompilationResult holds the per-problem outcomes of one compile command.
type CompilationResult struct {
	Programs []ProgramOutput `json:"programs"`
	Failed   int             `json:"failed"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <problems-dir>",
		Short: "Compile CUE problems to construction programs",
		Long: `Compile the geometry problems declared in a directory of CUE files.

Each problem is validated, compiled, and printed as an instruction listing.
With --db the program and a run record are written to a SQLite database.

Exit codes:
  0 - Every problem compiled
  1 - One or more problems failed to compile
  2 - Command error (bad problems, invalid paths, database errors)

Examples:
  ruler compile ./problems
  ruler compile ./problems --problem midpoint --db ./ruler.db
  ruler compile ./problems --format json --output programs.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Problem, "problem", "", "compile only the named problem")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for recording runs")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", 0, "pass ceiling including restarts (default len(solve)+1)")

	return cmd
}

func runCompile(opts *CompileOptions, problemsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := formatter.Logger()

	if opts.MaxPasses < 0 {
		return formatter.fail(ExitCommandError, loader.ErrCodeGeneric, "--max-passes must be non-negative", nil)
	}

	problems, err := loadValidProblems(formatter, problemsDir, opts.Problem)
	if err != nil {
		return err
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
		}
		defer st.Close()
	}

	gen := opts.TokenGenerator
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}

	compilerOpts := []compiler.Option{compiler.WithLogger(logger)}
	if opts.MaxPasses > 0 {
		compilerOpts = append(compilerOpts, compiler.WithMaxPasses(opts.MaxPasses))
	}
	c := compiler.New(compilerOpts...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := CompilationResult{Programs: make([]ProgramOutput, 0, len(problems))}
	for _, p := range problems {
		formatter.VerboseLog("Compiling problem: %s", p.Name)
		out, err := compileOne(ctx, c, st, gen, p)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		if out.Error != nil {
			result.Failed++
			logger.Error("compile failed", "problem", p.Name, "code", out.Error.Code)
		}
		result.Programs = append(result.Programs, out)
	}

	if opts.Output != "" {
		if err := writeProgramsToFile(result, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileResult(formatter, result, opts.Output)
}

// loadValidProblems loads the directory and returns the selected problems,
// reporting load and validation errors through the formatter.
func loadValidProblems(formatter *OutputFormatter, dir, only string) ([]ir.Problem, error) {
	loadResult, loadErrors := loader.LoadProblems(dir, loader.LoadModeCollectAll)

	// Directory not found, no files, etc.
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		return nil, formatter.fail(ExitCommandError, code, message, nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	if len(loadErrors) > 0 {
		return nil, outputLoadErrors(formatter, loadErrors)
	}

	problems := loadResult.Problems
	if only != "" {
		p, err := loadResult.Find(only)
		if err != nil {
			code, message := parseLoadError(err)
			return nil, formatter.fail(ExitCommandError, code, message, nil)
		}
		problems = []ir.Problem{p}
	}

	var verrs []error
	for _, p := range problems {
		for _, ve := range loader.Validate(p) {
			ve.Field = p.Name + "." + ve.Field
			if pos, ok := loadResult.Positions[p.Name]; ok && pos.IsValid() {
				ve.Line = pos.Line()
			}
			verrs = append(verrs, ve)
		}
	}
	if len(verrs) > 0 {
		return nil, outputLoadErrors(formatter, verrs)
	}
	return problems, nil
}

// compileOne compiles p and records the outcome when st is non-nil.
// Compile failures are reported in the output; only store failures
// are returned as errors.
func compileOne(ctx context.Context, c *compiler.Compiler, st *store.Store, gen store.TokenGenerator, p ir.Problem) (ProgramOutput, error) {
	out := ProgramOutput{Problem: p.Name}

	prog, compileErr := c.Compile(p)
	if compileErr != nil {
		out.Error = compileErrorToCLI(compileErr)
		prog = nil
	} else {
		out.Passes = prog.Passes
		out.Blacklist = prog.Blacklist
		out.Instructions = prog.Instructions
		out.Listing = ir.Listing(prog.Instructions)
		out.Diagnostics = prog.Diagnostics

		problemHash, err := ir.ProblemHash(p)
		if err != nil {
			return out, err
		}
		if out.ProgramID, err = ir.ProgramID(problemHash, prog.Instructions); err != nil {
			return out, err
		}
	}

	if st != nil {
		run, err := st.Record(ctx, gen, p, prog, compileErr)
		if err != nil {
			return out, err
		}
		out.RunID = run.ID
	}
	return out, nil
}

// compileErrorToCLI maps a compile failure to its CLI error form.
func compileErrorToCLI(err error) *CLIError {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		details := map[string]any{}
		if len(ce.Blacklist) > 0 {
			details["blacklist"] = ce.Blacklist
		}
		if len(ce.OpenKeys) > 0 {
			keys := make([]string, len(ce.OpenKeys))
			for i, k := range ce.OpenKeys {
				keys[i] = k.String()
			}
			details["open"] = keys
		}
		if ce.Point != "" {
			details["point"] = ce.Point
		}
		cliErr := &CLIError{Code: string(ce.Code), Message: ce.Message}
		if len(details) > 0 {
			cliErr.Details = details
		}
		return cliErr
	}
	return &CLIError{Code: loader.ErrCodeGeneric, Message: err.Error()}
}

// outputCompileResult outputs the compile result in the configured format.
func outputCompileResult(formatter *OutputFormatter, result CompilationResult, outputFile string) error {
	var exitErr error
	if result.Failed > 0 {
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("%d problem(s) failed to compile", result.Failed))
	}

	if formatter.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeCompileFailed,
				Message: fmt.Sprintf("%d problem(s) failed to compile", result.Failed),
			}
		}
		if len(result.Programs) == 1 {
			resp.RunID = result.Programs[0].RunID
		}
		if err := formatter.Respond(resp); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	for _, prog := range result.Programs {
		if prog.Error != nil {
			fmt.Fprintf(w, "✗ %s\n", prog.Problem)
			fmt.Fprintf(w, "  %s: %s\n\n", prog.Error.Code, prog.Error.Message)
			continue
		}

		fmt.Fprintf(w, "✓ %s: %d instruction(s), %d pass(es)\n", prog.Problem, len(prog.Listing), prog.Passes)
		if formatter.Verbose {
			fmt.Fprintf(w, "  program %s\n", prog.ProgramID)
		}
		for i, line := range prog.Listing {
			fmt.Fprintf(w, "  %3d  %s\n", i, line)
		}
		for _, d := range prog.Diagnostics {
			fmt.Fprintf(w, "  warning (%s): %s\n", d.Kind, d.Message)
		}
		fmt.Fprintln(w)
	}

	compiled := len(result.Programs) - result.Failed
	fmt.Fprintf(w, "Compiled %d of %d problem(s)\n", compiled, len(result.Programs))
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote programs to %s\n", outputFile)
	}
	return exitErr
}

// outputLoadErrors outputs load or validation errors.
func outputLoadErrors(formatter *OutputFormatter, errs []error) error {
	exitErr := NewExitError(ExitCommandError, fmt.Sprintf("loading failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Loading failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		var loadErr *loader.LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		code, message := parseLoadError(err)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}
	return exitErr
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Field != "" {
			return loadErr.Code, loadErr.Field + ": " + loadErr.Message
		}
		return loadErr.Code, loadErr.Message
	}
	var ve loader.ValidationError
	if errors.As(err, &ve) {
		if ve.Line > 0 {
			return ve.Code, fmt.Sprintf("line %d: %s: %s", ve.Line, ve.Field, ve.Message)
		}
		return ve.Code, ve.Field + ": " + ve.Message
	}
	return loader.ErrCodeGeneric, err.Error()
}

// writeProgramsToFile writes the compile result to a file.
// Instructions serialize as canonical JSON; the envelope is indented.
func writeProgramsToFile(result CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling programs: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// logDiscard is a logger for commands that compile without reporting.
var logDiscard = slog.New(slog.NewTextHandler(io.Discard, nil))
