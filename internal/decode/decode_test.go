package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandFlatArray(t *testing.T) {
	cmd, err := Command([]byte(`["SET","k","v"]`))
	require.NoError(t, err)
	require.Equal(t, []string{"SET", "k", "v"}, cmd)
}

func TestCommandNestedArray(t *testing.T) {
	cmd, err := Command([]byte(`[["SET","k","v"]]`))
	require.NoError(t, err)
	require.Equal(t, []string{"SET", "k", "v"}, cmd)
}

func TestCommandJSONEnvelope(t *testing.T) {
	cmd, err := Command([]byte(`{"_json":["GET","k"]}`))
	require.NoError(t, err)
	require.Equal(t, []string{"GET", "k"}, cmd)
}

func TestCommandEmptyFails(t *testing.T) {
	_, err := Command([]byte(`[]`))
	require.ErrorIs(t, err, ErrEmptyCommand)
}

func TestCommandMalformedFails(t *testing.T) {
	_, err := Command([]byte(`{"not":"valid"}`))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Command([]byte(`true`))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestCommandScalarCoercion(t *testing.T) {
	cmd, err := Command([]byte(`["SET","k",100,true,null]`))
	require.NoError(t, err)
	require.Equal(t, []string{"SET", "k", "100", "true", ""}, cmd)
}

func TestBatchOfArrays(t *testing.T) {
	cmds, err := Batch([]byte(`[["SET","a","1"],["INCR","a"],["GET","a"]]`))
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"SET", "a", "1"},
		{"INCR", "a"},
		{"GET", "a"},
	}, cmds)
}

func TestBatchSkipsEmptyCommands(t *testing.T) {
	cmds, err := Batch([]byte(`[["SET","a","1"],[]]`))
	require.NoError(t, err)
	require.Equal(t, [][]string{{"SET", "a", "1"}}, cmds)
}

func TestBatchRejectsNonArrayElement(t *testing.T) {
	_, err := Batch([]byte(`[["SET","a","1"],"not-an-array"]`))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestBatchEmptyInputYieldsEmptySlice(t *testing.T) {
	cmds, err := Batch([]byte(`[]`))
	require.NoError(t, err)
	require.Empty(t, cmds)
}
