package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenarios copies the scenario fixtures into a temp dir so golden
// updates never touch testdata.
func copyScenarios(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range []string{"midpoint.yaml", "collinear.yaml"} {
		data, err := os.ReadFile(filepath.Join(scenariosDir, name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	return dir
}

func TestTestCommandPasses(t *testing.T) {
	out, _, err := execute(t, "test", scenariosDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ midpoint")
	assert.Contains(t, out, "✓ collinear")
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, _, err := execute(t, "test", scenariosDir, "--filter", "mid*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "midpoint", resp.Data.Scenarios[0].Name)
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := copyScenarios(t)

	out, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ collinear (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "collinear.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"method":"onLine"`)
	assert.Contains(t, string(golden), `"scenario":"collinear"`)

	// A second run compares against the fresh golden files.
	_, _, err = execute(t, "test", dir)
	require.NoError(t, err)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := copyScenarios(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "midpoint.golden"), []byte(`{}`), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ midpoint")
	assert.Contains(t, out, "does not match golden file")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandScenarioFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong
description: expects the wrong pass count
problem:
  sample: [A, B]
  solve: [D]
  constraints:
    - {pred: midp, points: [D, A, B]}
expect:
  passes: 3
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "typo.yaml"), []byte("name: t\ndescrption: x\n"), 0o644))

	out, _, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, 2, resp.Data.Failed)

	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "typo.yaml", resp.Data.Scenarios[0].Name)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "failed to load scenario")
	assert.Equal(t, "wrong", resp.Data.Scenarios[1].Name)
	assert.Contains(t, resp.Data.Scenarios[1].Errors[0], "expected 3 passes, got 1")
}

func TestTestCommandEmptyAndMissing(t *testing.T) {
	out, _, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	_, _, err = execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFilesInvalidFilter(t *testing.T) {
	_, err := findScenarioFiles(scenariosDir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}
