package pipeline

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leanflow/agentengine/internal/domain"
)

const themes = `{"themes":[{"name":"Handoffs","observation_ids":["o1","o2"],"waste_types":["waiting"]}]}`

func TestRepair(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"fenced json", "```json\n" + themes + "\n```", themes, true},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"leading commentary", `Here you go: {"a":{"b":[1,2]}} hope this helps`, `{"a":{"b":[1,2]}}`, true},
		{"braces inside strings", `x {"a":"}{","b":"\"}"} y`, `{"a":"}{","b":"\"}"}`, true},
		{"first of two objects", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"truncated", `Sure, here it is: {not valid`, "", false},
		{"no object", "just words", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Repair(tc.raw)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveDirect(t *testing.T) {
	res, err := Resolve(themes, domain.AgentTypeSynthesis)
	require.NoError(t, err)
	assert.False(t, res.Repaired)
	assert.JSONEq(t, themes, string(res.Value))
}

func TestResolveStripsFences(t *testing.T) {
	res, err := Resolve("```json\n"+themes+"\n```", domain.AgentTypeSynthesis)
	require.NoError(t, err)
	assert.True(t, res.Repaired)
	assert.JSONEq(t, themes, string(res.Value))
}

func TestResolveCommentaryAroundObject(t *testing.T) {
	res, err := Resolve("Here is the analysis:\n"+themes+"\nLet me know.", domain.AgentTypeSynthesis)
	require.NoError(t, err)
	assert.JSONEq(t, themes, string(res.Value))
}

func TestResolveMalformed(t *testing.T) {
	_, err := Resolve(`Sure, here it is: {not valid`, domain.AgentTypeSynthesis)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, err.Error(), "Sure, here it is")
}

func TestResolveBalancedButBroken(t *testing.T) {
	_, err := Resolve(`prefix {"themes": [1,,]} suffix`, domain.AgentTypeSynthesis)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestResolveSchemaViolation(t *testing.T) {
	_, err := Resolve(`{"themes":[{"observation_ids":["o1"],"waste_types":["boredom"]}]}`, domain.AgentTypeSynthesis)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.ElementsMatch(t, []string{"themes[0].name", "themes[0].waste_types[0]"}, schemaErr.Fields())
	assert.Contains(t, err.Error(), "themes[0].name")
}

func TestResolveUnknownAgentType(t *testing.T) {
	_, err := Resolve(themes, domain.AgentType("mystery"))
	require.Error(t, err)
	var schemaErr *SchemaError
	assert.False(t, errors.As(err, &schemaErr))
}

func TestParseErrorSnippetBounded(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	_, err := Resolve(string(long), domain.AgentTypeSynthesis)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.LessOrEqual(t, len(parseErr.Snippet), maxSnippet+3)
}

func TestParseErrorSnippetKeepsRunesWhole(t *testing.T) {
	// 'é' is two bytes, so byte maxSnippet falls inside a rune.
	raw := "x" + strings.Repeat("é", maxSnippet)
	_, err := Resolve(raw, domain.AgentTypeSynthesis)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.True(t, utf8.ValidString(parseErr.Snippet))
	assert.True(t, strings.HasSuffix(parseErr.Snippet, "é..."))
}

func TestResolveRejectsMiscasedKeys(t *testing.T) {
	res, err := Resolve(`{"THEMES":[{"NAME":"x","Observation_IDs":["o1"]}]}`, domain.AgentTypeSynthesis)
	require.Error(t, err)
	assert.Nil(t, res)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"THEMES"}, schemaErr.Fields())
}
