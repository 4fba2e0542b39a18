package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruler/internal/ir"
)

const twoProblems = `
package problems

problem: alpha: {
	sample: ["A", "B"]
	solve: ["D"]
	constraints: [
		{pred: "midp", points: ["D", "A", "B"]},
	]
}

problem: beta: {
	sample: ["A", "B", "C"]
	solve: ["D"]
	constraints: [
		{pred: "coll", points: ["D", "A", "B"], ndgs: [{pred: "neq", points: ["A", "B"]}]},
		{pred: "cycl", points: ["D", "A", "B", "C"]},
	]
}
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadProblemsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "problems.cue", twoProblems)

	result, errs := LoadProblems(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, result)

	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Problems, 2)

	alpha, err := result.Find("alpha")
	require.NoError(t, err)
	assert.Equal(t, []ir.Point{"A", "B"}, alpha.Sample)
	assert.Equal(t, []ir.Point{"D"}, alpha.Solve)
	require.Len(t, alpha.Constraints, 1)
	assert.Equal(t, "midp(D,A,B)", alpha.Constraints[0].String())

	beta, err := result.Find("beta")
	require.NoError(t, err)
	require.Len(t, beta.Constraints, 2)
	require.Len(t, beta.Constraints[0].NDGs, 1)
	assert.Equal(t, "neq(A,B)", beta.Constraints[0].NDGs[0].String())
	assert.True(t, result.Positions["beta"].IsValid())
}

func TestLoadProblemsMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", "package problems\n"+`problem: one: {sample: ["A", "B"], solve: ["M"], constraints: [{pred: "midp", points: ["M", "A", "B"]}]}`)
	writeFile(t, dir, "b.cue", "package problems\n"+`problem: two: {sample: ["A", "B", "C"], solve: ["O"], constraints: [{pred: "circumcenter", points: ["O", "A", "B", "C"]}]}`)

	result, errs := LoadProblems(dir, LoadModeFailFast)
	require.Empty(t, errs)
	assert.Equal(t, 2, result.FileCount)
	assert.Len(t, result.Problems, 2)
}

func TestLoadProblemsDirectoryErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		code  string
	}{
		{
			name:  "missing directory",
			setup: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") },
			code:  ErrCodeNotFound,
		},
		{
			name: "file instead of directory",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "x.cue", twoProblems)
				return filepath.Join(dir, "x.cue")
			},
			code: ErrCodeNotFound,
		},
		{
			name:  "no cue files",
			setup: func(t *testing.T) string { return t.TempDir() },
			code:  ErrCodeNoFiles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, errs := LoadProblems(tt.setup(t), LoadModeFailFast)
			assert.Nil(t, result)
			require.Len(t, errs, 1)

			var loadErr *LoadError
			require.True(t, errors.As(errs[0], &loadErr))
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestLoadModes(t *testing.T) {
	src := `
problem: a_bad: {sample: ["A"]}
problem: b_good: {sample: ["A", "B"], solve: ["M"], constraints: [{pred: "midp", points: ["M", "A", "B"]}]}
problem: c_bad: {solve: ["M"], constraints: [{points: ["M"]}]}
`
	result, errs := LoadString(src, LoadModeCollectAll)
	require.Len(t, errs, 2)
	require.Len(t, result.Problems, 1)
	assert.Equal(t, "b_good", result.Problems[0].Name)

	_, errs = LoadString(src, LoadModeFailFast)
	require.Len(t, errs, 1)
}

func TestLoadStringEmpty(t *testing.T) {
	_, errs := LoadString(`other: 1`, LoadModeCollectAll)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no problems found")
}

func TestLoadStringSyntaxError(t *testing.T) {
	result, errs := LoadString(`problem: {`, LoadModeCollectAll)
	assert.Nil(t, result)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	assert.True(t, errors.As(errs[0], &loadErr))
}

func TestFindMissingProblem(t *testing.T) {
	result, errs := LoadString(twoProblems, LoadModeCollectAll)
	require.Empty(t, errs)

	_, err := result.Find("gamma")
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNoProblem, loadErr.Code)
}

func TestLoadStringQuotedLabel(t *testing.T) {
	result, errs := LoadString(`problem: "cc-single": {solve: ["D"], sample: ["A"]}`, LoadModeFailFast)
	require.Empty(t, errs)
	require.Len(t, result.Problems, 1)
	assert.Equal(t, "cc-single", result.Problems[0].Name)

	_, err := result.Find("cc-single")
	assert.NoError(t, err)
}
