package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
	"github.com/roach88/ruler/internal/store"
	"github.com/roach88/ruler/internal/testutil"
)

const (
	problemsDir  = "testdata/problems"
	invalidDir   = "testdata/invalid"
	brokenDir    = "testdata/broken"
	scenariosDir = "testdata/scenarios"
)

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func midpointProblem() ir.Problem {
	return testutil.NewProblem("midpoint").
		Sample("A", "B").
		Solve("D").
		Constrain(ir.PredMidp, "D", "A", "B").
		Build()
}

// seedDatabase records one compiled midpoint run in a fresh database and
// returns the database path and the program id.
func seedDatabase(t *testing.T) (string, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "ruler.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	p := midpointProblem()
	prog, err := compiler.New(compiler.WithLogger(logDiscard)).Compile(p)
	require.NoError(t, err)

	run, err := st.Record(context.Background(), testutil.NewFixedTokenGenerator("seed-run"), p, prog, nil)
	require.NoError(t, err)
	return dbPath, run.ProgramID
}
