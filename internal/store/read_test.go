package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruler/internal/compiler"
	"github.com/roach88/ruler/internal/ir"
	"github.com/roach88/ruler/internal/testutil"
)

func TestReadProgram_Roundtrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := midpointProblem()
	prog := mustCompile(t, p)

	id, err := s.WriteProgram(ctx, p, prog)
	require.NoError(t, err)

	rec, err := s.ReadProgram(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, rec.ID)
	assert.Equal(t, ir.MustProblemHash(p), rec.ProblemHash)
	assert.Equal(t, ir.MustProblemHash(p), ir.MustProblemHash(rec.Problem))
	assert.Equal(t, p.Constraints, rec.Problem.Constraints)
	assert.Equal(t, 1, rec.Passes)
	assert.Empty(t, rec.Blacklist)
	assert.Equal(t, ir.CompilerVersion, rec.CompilerVersion)
	assert.Equal(t, ir.IRVersion, rec.IRVersion)
	assert.Empty(t, rec.Diagnostics)

	require.Len(t, rec.Instructions, len(prog.Instructions))
	for i, in := range prog.Instructions {
		assert.Equal(t, i, rec.Instructions[i].Seq)
		assert.Equal(t, in.Op, rec.Instructions[i].Op)
		assert.Equal(t, in.Point, rec.Instructions[i].Point)
		assert.Equal(t, in.String(), rec.Instructions[i].Text)
		assert.Equal(t, in.Uses, rec.Instructions[i].Uses)
	}
}

func TestReadProgram_Diagnostics(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := restartProblem()
	prog := mustCompile(t, p)

	id, err := s.WriteProgram(ctx, p, prog)
	require.NoError(t, err)

	rec, err := s.ReadProgram(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.Passes)
	assert.Equal(t, []ir.Point{"D"}, rec.Blacklist)
	assert.Equal(t, prog.Diagnostics, rec.Diagnostics)
}

func TestReadProgram_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadProgram(context.Background(), "nonexistent")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConsumersOf(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := midpointProblem()

	id, err := s.WriteProgram(ctx, p, mustCompile(t, p))
	require.NoError(t, err)

	// midp(D,A,B) is consumed by the Compute.
	seqs, err := s.ConsumersOf(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, seqs)

	// cong and its NDG are both asserted from source 1.
	seqs, err = s.ConsumersOf(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seqs)

	seqs, err = s.ConsumersOf(ctx, id, 9)
	require.NoError(t, err)
	assert.Empty(t, seqs)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestListRuns_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	mid := midpointProblem()
	res := restartProblem()
	_, err := s.Record(ctx, testutil.NewFixedTokenGenerator("zzz"), mid, mustCompile(t, mid), nil)
	require.NoError(t, err)
	_, err = s.Record(ctx, testutil.NewFixedTokenGenerator("aaa"), res, nil,
		compiler.NewStalledError([]ir.Point{"D"}, nil))
	require.NoError(t, err)
	_, err = s.Record(ctx, testutil.NewFixedTokenGenerator("mmm"), mid, mustCompile(t, mid), nil)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "zzz", runs[0].ID)
	assert.Equal(t, "aaa", runs[1].ID)
	assert.Equal(t, "mmm", runs[2].ID)
	assert.Equal(t, RunFailed, runs[1].Status)
	assert.Equal(t, string(compiler.ErrCodeStalled), runs[1].ErrorCode)
	assert.Equal(t, runs[0].ProgramID, runs[2].ProgramID)

	forMid, err := s.RunsForProblem(ctx, ir.MustProblemHash(mid))
	require.NoError(t, err)
	require.Len(t, forMid, 2)
	assert.Equal(t, "zzz", forMid[0].ID)
	assert.Equal(t, "mmm", forMid[1].ID)
}

func TestReadRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	p := midpointProblem()

	written, err := s.Record(ctx, testutil.NewFixedTokenGenerator("run-1"), p, mustCompile(t, p), nil)
	require.NoError(t, err)

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, written, run)

	_, err = s.ReadRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
