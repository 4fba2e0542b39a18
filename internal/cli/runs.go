package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ruler/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database    string
	ProblemHash string // optional - runs of one problem only
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded compile runs",
		Long: `List the compile runs recorded in the database, oldest first.

Examples:
  ruler runs --db ./ruler.db
  ruler runs --db ./ruler.db --problem-hash 9c1e...
  ruler runs --db ./ruler.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.ProblemHash, "problem-hash", "", "only runs of the problem with this hash")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
	}
	defer st.Close()

	var runs []store.Run
	if opts.ProblemHash != "" {
		runs, err = st.RunsForProblem(ctx, opts.ProblemHash)
	} else {
		runs, err = st.ListRuns(ctx)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.IsJSON() {
		if runs == nil {
			runs = []store.Run{}
		}
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		switch r.Status {
		case store.RunOK:
			fmt.Fprintf(w, "%4d  ✓ %-24s %s  program %s\n", r.Seq, r.ProblemName, r.ID, r.ProgramID)
		default:
			fmt.Fprintf(w, "%4d  ✗ %-24s %s  %s\n", r.Seq, r.ProblemName, r.ID, r.ErrorCode)
		}
	}
	fmt.Fprintf(w, "\n%d run(s)\n", len(runs))
	return nil
}
