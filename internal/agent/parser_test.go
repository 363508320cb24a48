package agent

import (
	"errors"
	"testing"
)

func TestParseFinalAnswer(t *testing.T) {
	p, err := Parse(`{"finalAnswer": "42"}`)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != KindFinalAnswer || p.FinalAnswer != "42" {
		t.Errorf("parsed = %+v", p)
	}
}

func TestParseFinalAnswerObject(t *testing.T) {
	p, err := Parse(`{"finalAnswer": {"total": 7}}`)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != KindFinalAnswer {
		t.Fatalf("kind = %v", p.Kind)
	}
	if p.FinalAnswer != `{"total": 7}` {
		t.Errorf("finalAnswer = %q", p.FinalAnswer)
	}
}

func TestParseThoughtWithAction(t *testing.T) {
	p, err := Parse(`{"thought": "need math", "action": "calculator", "actionInput": {"operation":"add","a":1,"b":2}}`)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != KindThought || p.Action != "calculator" {
		t.Errorf("parsed = %+v", p)
	}
	if p.Thought != "need math" {
		t.Errorf("thought = %q", p.Thought)
	}
	if len(p.ActionInput) == 0 {
		t.Error("actionInput missing")
	}
}

func TestParseObservation(t *testing.T) {
	p, err := Parse(`{"observation": "sum is 3", "isFinalAnswerReady": true}`)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != KindObservation || !p.IsFinalAnswerReady {
		t.Errorf("parsed = %+v", p)
	}
}

func TestParseFencedOutput(t *testing.T) {
	raw := "Here is my reply:\n```json\n{\"finalAnswer\": \"done\"}\n```\n"
	p, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != KindFinalAnswer || p.FinalAnswer != "done" {
		t.Errorf("parsed = %+v", p)
	}
}

func TestParsePrecedenceFinalAnswerWins(t *testing.T) {
	// A confused reply carrying several fields classifies as final answer.
	p, err := Parse(`{"finalAnswer": "x", "action": "calculator", "observation": "y"}`)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != KindFinalAnswer {
		t.Errorf("kind = %v, want final answer", p.Kind)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"not json at all",
		`{"unrelated": "fields"}`,
		`{"thought": "no action here"}`,
		"",
		`[1,2,3]`,
	}
	for _, raw := range cases {
		if _, err := Parse(raw); !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("Parse(%q): expected ErrMalformedOutput, got %v", raw, err)
		}
	}
}
