package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Calculator is a deterministic arithmetic tool.
type Calculator struct{}

// NewCalculator creates the calculator tool.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Name implements Tool.
func (c *Calculator) Name() string { return "calculator" }

// Description implements Tool.
func (c *Calculator) Description() string {
	return "Performs basic arithmetic. Supply an operation (add, subtract, multiply, divide) and two operands a and b."
}

// Schema implements Tool.
func (c *Calculator) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"description": "One of add, subtract, multiply, divide",
			},
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"operation", "a", "b"},
	}
}

type calculatorInput struct {
	Operation string  `json:"operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
}

// Invoke implements Tool.
func (c *Calculator) Invoke(_ context.Context, input json.RawMessage) (string, error) {
	var in calculatorInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("decode input: %w", err)
	}

	var out float64
	switch in.Operation {
	case "add":
		out = in.A + in.B
	case "subtract":
		out = in.A - in.B
	case "multiply":
		out = in.A * in.B
	case "divide":
		if in.B == 0 {
			return "", fmt.Errorf("division by zero")
		}
		out = in.A / in.B
	default:
		return "", fmt.Errorf("unknown operation %q", in.Operation)
	}

	return strconv.FormatFloat(out, 'f', -1, 64), nil
}
