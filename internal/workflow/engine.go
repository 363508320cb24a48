package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// HandlerFunc is one step's work. It reads and mutates the run state, and
// may end the run early by returning a SuspendError or BlockError.
type HandlerFunc func(ctx context.Context, run *Run) error

// Step is one node of the declared step graph, executed in declaration order.
type Step struct {
	ID      string
	Handler HandlerFunc
}

// Run is the mutable state threaded through step handlers.
type Run struct {
	// Data carries key/value state between steps, seeded from the input.
	Data map[string]string
	// Output is the workflow result; the last step to set it wins.
	Output string

	resume json.RawMessage
}

// Resumed returns the resume payload handed to the step after a suspension,
// or nil on the first entry into a step.
func (r *Run) Resumed() json.RawMessage {
	return r.resume
}

// Engine executes a declared sequence of steps deterministically. One engine
// instance drives one run; after a suspension the same instance resumes from
// the suspended step.
type Engine struct {
	steps []Step
	pos   int
	run   *Run
}

// NewEngine creates an engine over the declared steps.
func NewEngine(steps ...Step) *Engine {
	return &Engine{steps: steps}
}

// Run executes from the first step.
func (e *Engine) Run(ctx context.Context, input map[string]string, onEvent EventFunc) Outcome {
	e.pos = 0
	e.run = &Run{Data: make(map[string]string, len(input))}
	for k, v := range input {
		e.run.Data[k] = v
	}
	return e.exec(ctx, onEvent)
}

// Resume continues a suspended run, handing the payload to the suspended
// step through Run.Resumed.
func (e *Engine) Resume(ctx context.Context, resume json.RawMessage, onEvent EventFunc) Outcome {
	if e.run == nil {
		return Outcome{Kind: Failed, Err: errors.New("resume before run")}
	}
	e.run.resume = resume
	return e.exec(ctx, onEvent)
}

func (e *Engine) exec(ctx context.Context, onEvent EventFunc) Outcome {
	emit := func(ev StepEvent) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	for e.pos < len(e.steps) {
		step := e.steps[e.pos]
		if err := ctx.Err(); err != nil {
			return Outcome{Kind: Failed, Err: err}
		}

		emit(StepEvent{StepID: step.ID, Status: StepStarted})

		err := step.Handler(ctx, e.run)
		// The resume payload is consumed by the first step entry after Resume.
		e.run.resume = nil

		if err != nil {
			var suspend *SuspendError
			if errors.As(err, &suspend) {
				emit(StepEvent{StepID: step.ID, Status: StepSuspended})
				return Outcome{Kind: Suspended, Suspension: suspend.Payload}
			}
			emit(StepEvent{StepID: step.ID, Status: StepFailed})
			return Outcome{Kind: Failed, Err: fmt.Errorf("step %s: %w", step.ID, err)}
		}

		emit(StepEvent{StepID: step.ID, Status: StepCompleted})
		e.pos++
	}

	return Outcome{Kind: Done, Output: e.run.Output}
}
