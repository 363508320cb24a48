// Package tool defines the tools the ReAct runtime can invoke on behalf of
// an agent, plus input schema validation and the tool registry.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidInput indicates tool input failed schema validation.
var ErrInvalidInput = errors.New("invalid tool input")

// ErrNotFound indicates an unknown tool name.
var ErrNotFound = errors.New("tool not found")

// Tool is one capability an agent can invoke. Input is a JSON object
// matching the declared schema; output is a stringified result fed back to
// the agent as a user-role message.
type Tool interface {
	// Name is the identifier the agent uses in its action field.
	Name() string
	// Description tells the agent what the tool does.
	Description() string
	// Schema declares the JSON schema of the input object.
	Schema() map[string]any
	// Invoke runs the tool. Errors propagate to the runtime as recoverable
	// coaching feedback.
	Invoke(ctx context.Context, input json.RawMessage) (string, error)
}

// Registry holds the tools bound to a team, preserving registration order.
type Registry struct {
	order []string
	byName map[string]Tool
}

// NewRegistry creates a registry with the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any previous tool of the same name.
func (r *Registry) Register(t Tool) {
	if _, exists := r.byName[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.byName[t.Name()] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Subset returns a registry restricted to the given names. Unknown names
// are an error so agent bindings fail at construction, not at use.
func (r *Registry) Subset(names []string) (*Registry, error) {
	sub := NewRegistry()
	for _, name := range names {
		t, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		sub.Register(t)
	}
	return sub, nil
}

// ValidateInput checks a JSON input object against a tool's declared schema:
// it must be an object, required properties must be present, and present
// properties must match their declared primitive type.
func ValidateInput(schema map[string]any, input json.RawMessage) error {
	var obj map[string]any
	if err := json.Unmarshal(input, &obj); err != nil {
		return fmt.Errorf("%w: not a JSON object: %v", ErrInvalidInput, err)
	}

	props, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]any); ok {
		for _, raw := range required {
			name, _ := raw.(string)
			if _, present := obj[name]; !present {
				return fmt.Errorf("%w: missing required property %q", ErrInvalidInput, name)
			}
		}
	}
	if required, ok := schema["required"].([]string); ok {
		for _, name := range required {
			if _, present := obj[name]; !present {
				return fmt.Errorf("%w: missing required property %q", ErrInvalidInput, name)
			}
		}
	}

	for name, value := range obj {
		spec, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		declared, _ := spec["type"].(string)
		if declared == "" {
			continue
		}
		if !matchesType(declared, value) {
			return fmt.Errorf("%w: property %q is not a %s", ErrInvalidInput, name, declared)
		}
	}
	return nil
}

func matchesType(declared string, value any) bool {
	switch declared {
	case "string":
		_, ok := value.(string)
		return ok
	case "number", "integer":
		_, ok := value.(float64)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	default:
		return true
	}
}
