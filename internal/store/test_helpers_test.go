package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
	"github.com/roach88/ruler/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// midpointProblem compiles to a single Compute with no diagnostics.
func midpointProblem() ir.Problem {
	return testutil.NewProblem("midpoint").
		Sample("A", "B").
		Solve("D").
		Constrain(ir.PredMidp, "D", "A", "B").
		With(testutil.C(ir.PredCong, "D", "A", "D", "B").WithNDGs(testutil.C(ir.PredNeq, "A", "B"))).
		Build()
}

// restartProblem needs a second pass and carries one restart diagnostic.
func restartProblem() ir.Problem {
	return testutil.NewProblem("cc-single").
		Sample("A", "B", "C", "F").
		Solve("D").
		Constrain(ir.PredCycl, "D", "A", "B", "C").
		Constrain(ir.PredCycl, "D", "A", "B", "F").
		Build()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mustCompile compiles p with a silent logger.
func mustCompile(t *testing.T, p ir.Problem) *compiler.Program {
	t.Helper()
	c := compiler.New(compiler.WithLogger(quietLogger()))
	prog, err := c.Compile(p)
	if err != nil {
		t.Fatalf("Compile(%s) failed: %v", p.Name, err)
	}
	return prog
}
