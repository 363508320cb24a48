package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput indicates the raw LLM output matched none of the three
// recognized shapes.
var ErrMalformedOutput = errors.New("malformed llm output")

// ParsedKind tags the closed set of recognized LLM output shapes.
type ParsedKind int

const (
	// KindThought is a thought plus an action (tool use or self-question).
	KindThought ParsedKind = iota
	// KindObservation is an intermediate observation.
	KindObservation
	// KindFinalAnswer terminates the loop with a result.
	KindFinalAnswer
)

// Parsed is the tagged-variant representation of one LLM turn.
type Parsed struct {
	Kind ParsedKind

	// Thought variant.
	Thought     string
	Action      string
	ActionInput json.RawMessage

	// Observation variant.
	Observation        string
	IsFinalAnswerReady bool

	// FinalAnswer variant.
	FinalAnswer string
}

// rawOutput is the loose decoding target; classification happens after.
type rawOutput struct {
	Thought            string          `json:"thought"`
	Action             string          `json:"action"`
	ActionInput        json.RawMessage `json:"actionInput"`
	Observation        string          `json:"observation"`
	IsFinalAnswerReady *bool           `json:"isFinalAnswerReady"`
	FinalAnswer        json.RawMessage `json:"finalAnswer"`
}

// Parse extracts the JSON object from a raw LLM completion and classifies it
// into one of the three recognized shapes. Output that decodes but matches
// no shape, or does not decode at all, fails with ErrMalformedOutput.
func Parse(raw string) (*Parsed, error) {
	payload, ok := extractJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedOutput)
	}

	var out rawOutput
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	if len(out.FinalAnswer) > 0 && string(out.FinalAnswer) != "null" {
		return &Parsed{Kind: KindFinalAnswer, FinalAnswer: decodeAnswer(out.FinalAnswer)}, nil
	}

	if out.Action != "" {
		return &Parsed{
			Kind:        KindThought,
			Thought:     out.Thought,
			Action:      out.Action,
			ActionInput: out.ActionInput,
		}, nil
	}

	if out.Observation != "" || out.IsFinalAnswerReady != nil {
		p := &Parsed{Kind: KindObservation, Observation: out.Observation}
		if out.IsFinalAnswerReady != nil {
			p.IsFinalAnswerReady = *out.IsFinalAnswerReady
		}
		return p, nil
	}

	return nil, fmt.Errorf("%w: matches no recognized shape", ErrMalformedOutput)
}

// decodeAnswer renders a finalAnswer value as a string whether the model
// produced a JSON string or a nested object.
func decodeAnswer(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// extractJSONObject finds the outermost JSON object in the completion,
// tolerating surrounding prose and markdown fences.
func extractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = strings.ReplaceAll(s, "```json", "")
		s = strings.ReplaceAll(s, "```", "")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
