package main

import "testing"

func TestParseInputs(t *testing.T) {
	inputs, err := parseInputs([]string{"topic=go", "count=3"})
	if err != nil {
		t.Fatal(err)
	}
	if inputs["topic"] != "go" || inputs["count"] != "3" {
		t.Errorf("inputs = %v", inputs)
	}

	if got, err := parseInputs(nil); err != nil || got != nil {
		t.Errorf("empty inputs = %v, %v", got, err)
	}

	if _, err := parseInputs([]string{"novalue"}); err == nil {
		t.Error("expected error for missing =")
	}
	if _, err := parseInputs([]string{"=x"}); err == nil {
		t.Error("expected error for empty key")
	}

	// Values may contain '='.
	inputs, err = parseInputs([]string{"query=a=b"})
	if err != nil {
		t.Fatal(err)
	}
	if inputs["query"] != "a=b" {
		t.Errorf("inputs = %v", inputs)
	}
}
