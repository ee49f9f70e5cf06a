// Package schema maps each agent type to the typed shape its output must
// satisfy and validates decoded output against it.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/leanflow/agentengine/internal/domain"
)

// Violation describes one failed constraint.
type Violation struct {
	Path    string `json:"path"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Output is implemented by every registered output shape.
type Output interface {
	Validate() []Violation
}

// For returns a fresh value of the output shape registered for t.
func For(t domain.AgentType) (Output, bool) {
	switch t {
	case domain.AgentTypeSynthesis:
		return &SynthesisOutput{}, true
	case domain.AgentTypeSolutions:
		return &SolutionsOutput{}, true
	case domain.AgentTypeSequencing:
		return &SequencingOutput{}, true
	case domain.AgentTypeDesign:
		return &DesignOutput{}, true
	case domain.AgentTypeStepDesign:
		return &StepDesignOutput{}, true
	}
	return nil, false
}

// Validate decodes raw into the shape registered for t and checks it.
// Type mismatches are reported as violations, not errors; the error return
// is reserved for an unknown agent type.
func Validate(t domain.AgentType, raw []byte) ([]Violation, error) {
	out, ok := For(t)
	if !ok {
		return nil, fmt.Errorf("no schema registered for agent type %q", t)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return []Violation{{Path: "$", Rule: "type", Message: "expected a JSON object"}}, nil
	}

	// encoding/json matches keys case-insensitively; the stored bytes must
	// carry the declared spelling.
	var c checker
	c.keyCase(reflect.TypeOf(out), trimmed, "")
	if len(c.violations) > 0 {
		return c.violations, nil
	}

	if err := json.Unmarshal(trimmed, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			path := typeErr.Field
			if path == "" {
				path = "$"
			}
			return []Violation{{
				Path:    path,
				Rule:    "type",
				Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
			}}, nil
		}
		return []Violation{{Path: "$", Rule: "type", Message: err.Error()}}, nil
	}
	return out.Validate(), nil
}

// checker accumulates violations while walking a decoded value.
type checker struct {
	violations []Violation
}

func (c *checker) add(path, rule, format string, args ...any) {
	c.violations = append(c.violations, Violation{Path: path, Rule: rule, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) required(path, value string) {
	if strings.TrimSpace(value) == "" {
		c.add(path, "required", "is required")
	}
}

func (c *checker) minItems(path string, n, min int) {
	if n < min {
		if n == 0 {
			c.add(path, "required", "must contain at least %d item(s)", min)
			return
		}
		c.add(path, "min_items", "must contain at least %d item(s), got %d", min, n)
	}
}

func (c *checker) maxItems(path string, n, max int) {
	if n > max {
		c.add(path, "max_items", "must contain at most %d item(s), got %d", max, n)
	}
}

// enum checks value against allowed. An empty value passes unless required.
func (c *checker) enum(path, value string, required bool, allowed ...string) {
	if value == "" {
		if required {
			c.add(path, "required", "is required")
		}
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.add(path, "enum", "%q is not one of [%s]", value, strings.Join(allowed, ", "))
}

func (c *checker) numberRange(path string, value *float64, min, max float64) {
	if value == nil {
		return
	}
	if *value < min || *value > max {
		c.add(path, "range", "%v is outside [%v, %v]", *value, min, max)
	}
}

func (c *checker) intMin(path string, value, min int) {
	if value < min {
		c.add(path, "range", "%d is below minimum %d", value, min)
	}
}

func (c *checker) unique(path string, seen map[string]bool, value string) {
	if value == "" {
		return
	}
	if seen[value] {
		c.add(path, "unique", "%q is duplicated", value)
		return
	}
	seen[value] = true
}

func at(base string, i int, field string) string {
	if field == "" {
		return fmt.Sprintf("%s[%d]", base, i)
	}
	return fmt.Sprintf("%s[%d].%s", base, i, field)
}

// keyCase reports object keys that differ only in case from a field
// declared on t. Unknown keys are left alone.
func (c *checker) keyCase(t reflect.Type, raw json.RawMessage, path string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		var obj map[string]json.RawMessage
		if json.Unmarshal(raw, &obj) != nil {
			return
		}
		fields := jsonFields(t)
		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value := obj[key]
			if ft, ok := fields[key]; ok {
				c.keyCase(ft, value, join(path, key))
				continue
			}
			for name := range fields {
				if strings.EqualFold(key, name) {
					c.add(join(path, key), "type", "unexpected key %q, expected %q", key, name)
					break
				}
			}
		}
	case reflect.Slice:
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) != nil {
			return
		}
		for i, item := range items {
			c.keyCase(t.Elem(), item, fmt.Sprintf("%s[%d]", path, i))
		}
	}
}

// jsonFields maps the JSON names of t's exported fields to their types.
func jsonFields(t reflect.Type) map[string]reflect.Type {
	fields := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fields[name] = f.Type
	}
	return fields
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
