// Package pipeline turns raw backend text into a schema-checked value.
package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/leanflow/agentengine/internal/domain"
	"github.com/leanflow/agentengine/internal/schema"
)

// maxSnippet bounds how much raw text a ParseError carries.
const maxSnippet = 200

// ParseError reports text that could not be recovered into JSON.
type ParseError struct {
	Snippet string
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: response is not valid JSON: %v (response starts with %q)", e.Cause, e.Snippet)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// SchemaError reports a parsed value that violates the agent type's shape.
type SchemaError struct {
	AgentType  domain.AgentType
	Violations []schema.Violation
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("schema error: %s output failed validation: %s", e.AgentType, strings.Join(parts, "; "))
}

// Fields returns the violated field paths.
func (e *SchemaError) Fields() []string {
	out := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v.Path)
	}
	return out
}

// Result is a resolved, validated value.
type Result struct {
	Value    json.RawMessage
	Repaired bool
}

// Resolve parses raw directly, falls back to one Repair pass, and validates
// the parsed value against the schema registered for t.
func Resolve(raw string, t domain.AgentType) (*Result, error) {
	value, repaired, err := parse(raw)
	if err != nil {
		return nil, err
	}

	violations, err := schema.Validate(t, value)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &SchemaError{AgentType: t, Violations: violations}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return nil, &ParseError{Snippet: snippet(raw), Cause: err}
	}
	return &Result{Value: compact.Bytes(), Repaired: repaired}, nil
}

func parse(raw string) ([]byte, bool, error) {
	direct := []byte(strings.TrimSpace(raw))
	var probe any
	directErr := json.Unmarshal(direct, &probe)
	if directErr == nil {
		return direct, false, nil
	}

	candidate, ok := Repair(raw)
	if !ok {
		return nil, false, &ParseError{Snippet: snippet(raw), Cause: fmt.Errorf("no balanced JSON object found: %w", directErr)}
	}
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil, false, &ParseError{Snippet: snippet(raw), Cause: err}
	}
	return []byte(candidate), true, nil
}

func snippet(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= maxSnippet {
		return raw
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut] + "..."
}
