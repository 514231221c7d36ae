package bench

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDs_Args(t *testing.T) {
	seed := MovieSeed{Prefix: "insert_test__", People: []string{"a", "b", "c", "d"}}
	ids := IDs{
		GetUser:         []string{"u1", "u2"},
		GetMovie:        []string{"m1"},
		GetPerson:       []string{"p1"},
		UpdateMovie:     []string{"m1"},
		InsertUser:      []string{"insert_test__"},
		InsertMovie:     []MovieSeed{seed},
		InsertMoviePlus: []string{"insert_test__", "insert_test__"},
	}

	assert.Equal(t, []any{"u1", "u2"}, ids.Args(GetUser))
	assert.Equal(t, []any{"m1"}, ids.Args(GetMovie))
	assert.Equal(t, []any{"p1"}, ids.Args(GetPerson))
	assert.Equal(t, []any{"m1"}, ids.Args(UpdateMovie))
	assert.Equal(t, []any{"insert_test__"}, ids.Args(InsertUser))
	assert.Equal(t, []any{seed}, ids.Args(InsertMovie))
	assert.Len(t, ids.Args(InsertMoviePlus), 2)
	assert.Nil(t, ids.Args("nope"))
}

func TestIDs_JSONKeyedByBenchmarkName(t *testing.T) {
	body, err := json.Marshal(IDs{})
	require.NoError(t, err)

	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &keys))
	for _, name := range Benchmarks {
		assert.Contains(t, keys, name)
	}
	assert.Len(t, keys, len(Benchmarks))
}
