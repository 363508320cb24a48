package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ShayCichocki/teamflow/internal/agent"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

type recordingEmitter struct {
	mu       sync.Mutex
	statuses []models.AgentStatus
}

func (r *recordingEmitter) AgentStatus(agentName, taskID string, status models.AgentStatus, description string, metadata map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

type openGate struct{}

func (openGate) Wait(ctx context.Context) error { return ctx.Err() }
func (openGate) InterruptCh() <-chan struct{}   { return nil }
func (openGate) Paused() bool                   { return false }
func (openGate) Stopped() bool                  { return false }

func execReq() agent.ExecuteRequest {
	return agent.ExecuteRequest{Task: models.Task{ID: "t1", Description: "do the thing"}}
}

func TestRuntimeDone(t *testing.T) {
	wf := NewEngine(
		Step{ID: "work", Handler: func(ctx context.Context, run *Run) error {
			run.Output = "finished: " + run.Data["task"]
			return nil
		}},
	)
	emitter := &recordingEmitter{}
	rt := NewRuntime("driver", wf, emitter, openGate{})

	out := rt.ExecuteTask(context.Background(), execReq())
	if out.Kind != agent.OutcomeDone {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Result != "finished: do the thing" {
		t.Errorf("result = %q", out.Result)
	}
	if out.Stats.Iterations != 1 {
		t.Errorf("iterations = %d", out.Stats.Iterations)
	}

	want := []models.AgentStatus{models.AgentWorkflowStepStarted, models.AgentWorkflowStepCompleted}
	if len(emitter.statuses) != 2 || emitter.statuses[0] != want[0] || emitter.statuses[1] != want[1] {
		t.Errorf("statuses = %v", emitter.statuses)
	}
}

func TestRuntimeSuspension(t *testing.T) {
	wf := NewEngine(
		Step{ID: "gate", Handler: func(ctx context.Context, run *Run) error {
			if run.Resumed() != nil {
				run.Output = "resumed"
				return nil
			}
			return &SuspendError{Payload: json.RawMessage(`{"waiting":true}`)}
		}},
	)
	emitter := &recordingEmitter{}
	rt := NewRuntime("driver", wf, emitter, openGate{})

	out := rt.ExecuteTask(context.Background(), execReq())
	if out.Kind != agent.OutcomeSuspended {
		t.Fatalf("outcome = %+v", out)
	}
	if string(out.Suspension) != `{"waiting":true}` {
		t.Errorf("suspension = %s", out.Suspension)
	}

	resumed := rt.ResumeTask(context.Background(), execReq(), json.RawMessage(`"go"`))
	if resumed.Kind != agent.OutcomeDone || resumed.Result != "resumed" {
		t.Fatalf("resume outcome = %+v", resumed)
	}
}

func TestRuntimeFailure(t *testing.T) {
	wf := NewEngine(
		Step{ID: "bad", Handler: func(ctx context.Context, run *Run) error {
			return errors.New("downstream unavailable")
		}},
	)
	rt := NewRuntime("driver", wf, &recordingEmitter{}, openGate{})

	out := rt.ExecuteTask(context.Background(), execReq())
	if out.Kind != agent.OutcomeErrored {
		t.Fatalf("outcome = %+v", out)
	}
	if out.ErrKind != models.ErrKindSubWorkflow {
		t.Errorf("err kind = %s", out.ErrKind)
	}
}

func TestRuntimeBlockSignal(t *testing.T) {
	wf := NewEngine(
		Step{ID: "guard", Handler: func(ctx context.Context, run *Run) error {
			return &BlockError{Reason: "policy violation"}
		}},
	)
	rt := NewRuntime("driver", wf, &recordingEmitter{}, openGate{})

	out := rt.ExecuteTask(context.Background(), execReq())
	if out.Kind != agent.OutcomeBlocked {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Reason != "policy violation" {
		t.Errorf("reason = %q", out.Reason)
	}
}
