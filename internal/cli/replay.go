package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
	"github.com/roach88/ruler/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	ProgramID string // optional - specific program only
}

// ReplayProgramResult holds the replay result for a single program.
type ReplayProgramResult struct {
	ProgramID     string `json:"program_id"`
	Problem       string `json:"problem"`
	Instructions  int    `json:"instructions"`
	Deterministic bool   `json:"deterministic"`
	RecompiledID  string `json:"recompiled_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Programs         []ReplayProgramResult `json:"programs"`
	TotalPrograms    int                   `json:"total_programs"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompile stored programs and verify determinism",
		Long: `Recompile every stored program from its recorded problem and check
that the result has the same content-addressed id.

Exit codes:
  0 - All programs recompiled identically
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  ruler replay --db ./ruler.db
  ruler replay --db ./ruler.db --program 3f9a...
  ruler replay --db ./ruler.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.ProgramID, "program", "", "replay specific program only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var programIDs []string
	if opts.ProgramID != "" {
		programIDs = []string{opts.ProgramID}
	} else {
		programIDs, err = storedProgramIDs(ctx, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list programs", err)
		}
	}

	result := ReplayResult{
		Programs:         make([]ReplayProgramResult, 0, len(programIDs)),
		TotalPrograms:    len(programIDs),
		AllDeterministic: true,
	}

	for _, id := range programIDs {
		formatter.VerboseLog("Replaying program: %s", id)
		progResult, err := replayProgram(ctx, st, id)
		if errors.Is(err, store.ErrNotFound) {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("program %s not found", id), nil)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay program %s", id), err)
		}
		result.Programs = append(result.Programs, progResult)
		if !progResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if formatter.IsJSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// storedProgramIDs returns the programs referenced by successful runs,
// in first-recorded order.
func storedProgramIDs(ctx context.Context, st *store.Store) ([]string, error) {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, r := range runs {
		if r.ProgramID != "" && !slices.Contains(ids, r.ProgramID) {
			ids = append(ids, r.ProgramID)
		}
	}
	return ids, nil
}

// replayProgram recompiles a stored program's problem and compares ids.
// The stored pass count is the ceiling: a deterministic compile needs
// exactly that many passes again.
func replayProgram(ctx context.Context, st *store.Store, id string) (ReplayProgramResult, error) {
	rec, err := st.ReadProgram(ctx, id)
	if err != nil {
		return ReplayProgramResult{}, err
	}

	out := ReplayProgramResult{
		ProgramID:    id,
		Problem:      rec.Problem.Name,
		Instructions: len(rec.Instructions),
	}

	c := compiler.New(compiler.WithMaxPasses(rec.Passes), compiler.WithLogger(logDiscard))
	prog, err := c.Compile(rec.Problem)
	if err != nil {
		out.Error = err.Error()
		return out, nil
	}

	problemHash, err := ir.ProblemHash(rec.Problem)
	if err != nil {
		return out, err
	}
	if out.RecompiledID, err = ir.ProgramID(problemHash, prog.Instructions); err != nil {
		return out, err
	}
	out.Deterministic = out.RecompiledID == id && problemHash == rec.ProblemHash
	return out, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeDeterminism,
			Message: "determinism verification failed",
		}
	}

	if err := formatter.Respond(response); err != nil {
		return err
	}
	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	if result.TotalPrograms == 0 {
		fmt.Fprintln(w, "No programs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d program(s)\n", result.TotalPrograms)
	fmt.Fprintln(w)

	for _, p := range result.Programs {
		status := "✓"
		if !p.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", status, p.ProgramID, p.Problem)
		if formatter.Verbose {
			fmt.Fprintf(w, "  Instructions: %d\n", p.Instructions)
		}
		switch {
		case p.Error != "":
			fmt.Fprintf(w, "  Recompile failed: %s\n", p.Error)
		case !p.Deterministic:
			fmt.Fprintf(w, "  Recompiled to %s\n", p.RecompiledID)
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All programs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
