package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ruler/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database   string
	Constraint int // -1 for none
}

// ShowResult is a stored program plus an optional provenance query.
type ShowResult struct {
	Program   store.ProgramRecord `json:"program"`
	Consumers []int               `json:"consumers,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <program-id>",
		Short: "Show a stored program",
		Long: `Show a compiled program from the database.

Prints the problem it was compiled from, the instruction listing with the
constraints each instruction used, and the diagnostics. With --constraint
it also lists the instructions that used that input constraint.

Examples:
  ruler show --db ./ruler.db 3f9a...
  ruler show --db ./ruler.db 3f9a... --constraint 2
  ruler show --db ./ruler.db 3f9a... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Constraint, "constraint", -1, "list instructions that used this constraint index")

	return cmd
}

func runShow(opts *ShowOptions, programID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
	}
	defer st.Close()

	rec, err := st.ReadProgram(ctx, programID)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("program %s not found", programID), nil)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	result := ShowResult{Program: rec}
	if opts.Constraint >= 0 {
		if result.Consumers, err = st.ConsumersOf(ctx, programID, opts.Constraint); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputShowText(formatter, result, opts.Constraint)
	return nil
}

func outputShowText(formatter *OutputFormatter, result ShowResult, constraint int) {
	w := formatter.Writer
	rec := result.Program

	fmt.Fprintf(w, "Program: %s\n", rec.ID)
	fmt.Fprintf(w, "Problem: %s (%s)\n", rec.Problem.Name, rec.ProblemHash)
	fmt.Fprintf(w, "Compiler: %s (IR %s)\n", rec.CompilerVersion, rec.IRVersion)
	fmt.Fprintf(w, "Passes: %d\n", rec.Passes)
	if len(rec.Blacklist) > 0 {
		fmt.Fprintf(w, "Blacklist: %v\n", rec.Blacklist)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Constraints:")
	for i, c := range rec.Problem.Constraints {
		fmt.Fprintf(w, "  [%d] %s\n", i, c)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Instructions:")
	for _, in := range rec.Instructions {
		fmt.Fprintf(w, "  %3d  %-60s uses %v\n", in.Seq, in.Text, in.Uses)
	}

	if len(rec.Diagnostics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Diagnostics:")
		for _, d := range rec.Diagnostics {
			fmt.Fprintf(w, "  pass %d %s: %s\n", d.Pass, d.Kind, d.Message)
		}
	}

	if constraint >= 0 {
		fmt.Fprintln(w)
		if len(result.Consumers) == 0 {
			fmt.Fprintf(w, "Constraint %d: not used by any instruction\n", constraint)
		} else {
			fmt.Fprintf(w, "Constraint %d: used by instructions %v\n", constraint, result.Consumers)
		}
	}
}
