package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowText(t *testing.T) {
	dbPath, programID := seedDatabase(t)

	out, _, err := execute(t, "show", programID, "--db", dbPath, "--constraint", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "Program: "+programID)
	assert.Contains(t, out, "Problem: midpoint")
	assert.Contains(t, out, "Passes: 1")
	assert.Contains(t, out, "[0] midp(D,A,B)")
	assert.Contains(t, out, "Compute(D, [midp, [A,B]])")
	assert.Contains(t, out, "uses [0]")
	assert.Contains(t, out, "Constraint 0: used by instructions [0]")
}

func TestShowJSON(t *testing.T) {
	dbPath, programID := seedDatabase(t)

	out, _, err := execute(t, "show", programID, "--db", dbPath, "--constraint", "5", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Program struct {
				ID           string `json:"id"`
				Passes       int    `json:"passes"`
				Instructions []struct {
					Text string `json:"text"`
					Uses []int  `json:"uses"`
				} `json:"instructions"`
			} `json:"program"`
			Consumers []int `json:"consumers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, programID, resp.Data.Program.ID)
	require.Len(t, resp.Data.Program.Instructions, 1)
	assert.Equal(t, []int{0}, resp.Data.Program.Instructions[0].Uses)
	assert.Empty(t, resp.Data.Consumers)
}

func TestShowNotFound(t *testing.T) {
	dbPath, _ := seedDatabase(t)

	out, _, err := execute(t, "show", "missing", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E021]: program missing not found")
}
