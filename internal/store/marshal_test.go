package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ruler/internal/ir"
)

func TestMarshalPoints(t *testing.T) {
	data, err := marshalPoints([]ir.Point{"D", "E"})
	require.NoError(t, err)
	assert.Equal(t, `["D","E"]`, data)

	data, err = marshalPoints(nil)
	require.NoError(t, err)
	assert.Equal(t, `[]`, data)
}

func TestUnmarshalPoints(t *testing.T) {
	points, err := unmarshalPoints(`["D","E"]`)
	require.NoError(t, err)
	assert.Equal(t, []ir.Point{"D", "E"}, points)

	points, err = unmarshalPoints("")
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)

	_, err = unmarshalPoints(`{`)
	assert.Error(t, err)
}

func TestMarshalProblemIsCanonical(t *testing.T) {
	p := midpointProblem()

	data, err := marshalProblem(p)
	require.NoError(t, err)
	assert.Equal(t,
		`{"constraints":[`+
			`{"ndgs":[],"orders":[],"points":["D","A","B"],"pred":"midp"},`+
			`{"ndgs":[{"ndgs":[],"orders":[],"points":["A","B"],"pred":"neq"}],"orders":[],"points":["D","A","D","B"],"pred":"cong"}`+
			`],"name":"midpoint","sample":["A","B"],"solve":["D"]}`,
		data)

	back, err := unmarshalProblem(data)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}
