package fingerprint

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIgnoresKeyOrder(t *testing.T) {
	a := []byte(`{"observations":[{"id":"o1","text":"wait"},{"text":"rework","id":"o2"}],"session":{"name":"s","tier":1}}`)
	b := []byte(`{"session":{"tier":1,"name":"s"},"observations":[{"text":"wait","id":"o1"},{"id":"o2","text":"rework"}]}`)

	ha, err := HashJSON(a)
	require.NoError(t, err)
	hb, err := HashJSON(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, HexLength)
}

func TestHashIgnoresWhitespace(t *testing.T) {
	ha, err := HashJSON([]byte(`{"a": [1, 2,  3]}`))
	require.NoError(t, err)
	hb, err := HashJSON([]byte("{\n\"a\":[1,2,3]\n}"))
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestHashMapAndRawAgree(t *testing.T) {
	fromMap, err := Hash(map[string]any{"b": "x", "a": []any{1, "two"}})
	require.NoError(t, err)
	fromRaw, err := HashJSON([]byte(`{"a":[1,"two"],"b":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, fromMap, fromRaw)
}

func TestHashArrayOrderMatters(t *testing.T) {
	ha, err := HashJSON([]byte(`{"a":[1,2]}`))
	require.NoError(t, err)
	hb, err := HashJSON([]byte(`{"a":[2,1]}`))
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestHashSensitivityCorpus(t *testing.T) {
	seen := make(map[string]string, 20000)
	for i := 0; i < 10000; i++ {
		for _, rec := range []map[string]any{
			{"observation": fmt.Sprintf("obs-%d", i), "weight": i},
			{"observation": fmt.Sprintf("obs-%d", i), "weight": i, "flag": true},
		} {
			h, err := Hash(rec)
			require.NoError(t, err)
			key := fmt.Sprint(rec)
			if prev, ok := seen[h]; ok {
				t.Fatalf("collision between %s and %s", prev, key)
			}
			seen[h] = key
		}
	}
}

func TestHashLargeNumbersPreserved(t *testing.T) {
	ha, err := HashJSON([]byte(`{"n":9007199254740993}`))
	require.NoError(t, err)
	hb, err := HashJSON([]byte(`{"n":9007199254740992}`))
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestCanonicalize(t *testing.T) {
	out, err := Canonicalize([]byte(` {"z":1,"a":{"y":"<b>","x":null}} `))
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"x":null,"y":"<b>"},"z":1}`, string(out))
}

func TestHashRejectsInvalidJSON(t *testing.T) {
	_, err := HashJSON([]byte(`{"a":`))
	assert.Error(t, err)

	_, err = HashJSON([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)

	_, err = Hash(func() {})
	assert.Error(t, err)
}

func TestHashStableAcrossCalls(t *testing.T) {
	raw := json.RawMessage(`{"k":"v"}`)
	first, err := Hash(raw)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Hash(raw)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
