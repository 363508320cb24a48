package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestEngineRunsStepsInOrder(t *testing.T) {
	var visited []string
	e := NewEngine(
		Step{ID: "fetch", Handler: func(ctx context.Context, run *Run) error {
			visited = append(visited, "fetch")
			run.Data["value"] = "7"
			return nil
		}},
		Step{ID: "render", Handler: func(ctx context.Context, run *Run) error {
			visited = append(visited, "render")
			run.Output = "value=" + run.Data["value"]
			return nil
		}},
	)

	var events []StepEvent
	out := e.Run(context.Background(), map[string]string{"seed": "x"}, func(ev StepEvent) {
		events = append(events, ev)
	})

	if out.Kind != Done || out.Output != "value=7" {
		t.Fatalf("outcome = %+v", out)
	}
	if len(visited) != 2 || visited[0] != "fetch" {
		t.Errorf("visited = %v", visited)
	}

	want := []StepEvent{
		{StepID: "fetch", Status: StepStarted},
		{StepID: "fetch", Status: StepCompleted},
		{StepID: "render", Status: StepStarted},
		{StepID: "render", Status: StepCompleted},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestEngineSuspendAndResume(t *testing.T) {
	e := NewEngine(
		Step{ID: "ask", Handler: func(ctx context.Context, run *Run) error {
			if resume := run.Resumed(); resume != nil {
				run.Data["approval"] = string(resume)
				return nil
			}
			return &SuspendError{Payload: json.RawMessage(`{"need":"approval"}`)}
		}},
		Step{ID: "finish", Handler: func(ctx context.Context, run *Run) error {
			run.Output = "approved:" + run.Data["approval"]
			return nil
		}},
	)

	out := e.Run(context.Background(), nil, nil)
	if out.Kind != Suspended {
		t.Fatalf("outcome = %+v", out)
	}
	if string(out.Suspension) != `{"need":"approval"}` {
		t.Errorf("suspension = %s", out.Suspension)
	}

	out = e.Resume(context.Background(), json.RawMessage(`"yes"`), nil)
	if out.Kind != Done {
		t.Fatalf("resume outcome = %+v", out)
	}
	if out.Output != `approved:"yes"` {
		t.Errorf("output = %q", out.Output)
	}
}

func TestEngineStepFailure(t *testing.T) {
	boom := errors.New("boom")
	e := NewEngine(
		Step{ID: "explode", Handler: func(ctx context.Context, run *Run) error {
			return boom
		}},
	)

	var events []StepEvent
	out := e.Run(context.Background(), nil, func(ev StepEvent) { events = append(events, ev) })

	if out.Kind != Failed || !errors.Is(out.Err, boom) {
		t.Fatalf("outcome = %+v", out)
	}
	if events[len(events)-1].Status != StepFailed {
		t.Errorf("events = %v", events)
	}
}

func TestEngineResumeBeforeRun(t *testing.T) {
	e := NewEngine(Step{ID: "s", Handler: func(ctx context.Context, run *Run) error { return nil }})
	out := e.Resume(context.Background(), nil, nil)
	if out.Kind != Failed {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestEngineContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(Step{ID: "s", Handler: func(ctx context.Context, run *Run) error { return nil }})
	out := e.Run(ctx, nil, nil)
	if out.Kind != Failed || !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("outcome = %+v", out)
	}
}
