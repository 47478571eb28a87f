package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRoundTrip(t *testing.T) {
	in := map[string]any{"name": "Al", "tags": []any{"a", "b"}, "age": float64(3)}
	data, err := Marshal(in)
	require.NoError(t, err)
	assert.True(t, Valid(data))

	var out any
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	data, err := MarshalCanonical(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.True(t, Valid(data))
	assert.Less(t, bytes.Index(data, []byte(`"a"`)), bytes.Index(data, []byte(`"b"`)))
	assert.Contains(t, string(data), "\n")
}

func TestCanonicalEncoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCanonicalEncoder(&buf).Encode(map[string]int{"z": 1, "y": 2}))
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(`"y"`)), bytes.Index(buf.Bytes(), []byte(`"z"`)))

	var out map[string]int
	require.NoError(t, NewDecoder(&buf).Decode(&out))
	assert.Equal(t, map[string]int{"y": 2, "z": 1}, out)
}
