package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/teamflow/internal/agent"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

// Runtime drives a sub-workflow on behalf of a workflow-driven agent and
// translates step boundaries and outcomes into the task vocabulary.
type Runtime struct {
	agentName string
	wf        Workflow
	emitter   agent.Emitter
	gate      agent.Gate
}

// NewRuntime creates a runtime binding the agent's sub-workflow.
func NewRuntime(agentName string, wf Workflow, emitter agent.Emitter, gate agent.Gate) *Runtime {
	return &Runtime{agentName: agentName, wf: wf, emitter: emitter, gate: gate}
}

// ExecuteTask runs the sub-workflow from the start.
func (rt *Runtime) ExecuteTask(ctx context.Context, req agent.ExecuteRequest) agent.Outcome {
	input := map[string]string{
		"task":             req.Task.Description,
		"expected_output":  req.Task.ExpectedOutput,
		"workflow_context": req.WorkflowContext,
	}
	stats := models.TaskStats{StartedAt: time.Now()}
	return rt.translate(ctx, req.Task.ID, stats, func(onEvent EventFunc) Outcome {
		return rt.wf.Run(ctx, input, onEvent)
	})
}

// ResumeTask re-enters a suspended sub-workflow with the recorded payload.
func (rt *Runtime) ResumeTask(ctx context.Context, req agent.ExecuteRequest, resume json.RawMessage) agent.Outcome {
	stats := models.TaskStats{StartedAt: time.Now()}
	return rt.translate(ctx, req.Task.ID, stats, func(onEvent EventFunc) Outcome {
		return rt.wf.Resume(ctx, resume, onEvent)
	})
}

func (rt *Runtime) translate(ctx context.Context, taskID string, stats models.TaskStats, run func(EventFunc) Outcome) agent.Outcome {
	steps := 0
	onEvent := func(ev StepEvent) {
		switch ev.Status {
		case StepStarted:
			// Suspension point: observe pause/stop at each step boundary.
			_ = rt.gate.Wait(ctx)
			rt.emit(taskID, models.AgentWorkflowStepStarted, "step "+ev.StepID+" started", ev)
		case StepCompleted:
			steps++
			rt.emit(taskID, models.AgentWorkflowStepCompleted, "step "+ev.StepID+" completed", ev)
		case StepFailed:
			rt.emit(taskID, models.AgentWorkflowStepFailed, "step "+ev.StepID+" failed", ev)
		case StepSuspended:
			rt.emit(taskID, models.AgentWorkflowSuspended, "step "+ev.StepID+" suspended", ev)
		}
	}

	outcome := run(onEvent)

	stats.Iterations = steps
	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)

	if ctx.Err() != nil || rt.gate.Stopped() {
		return agent.Outcome{Kind: agent.OutcomeCancelled, Stats: stats}
	}

	switch outcome.Kind {
	case Done:
		return agent.Outcome{Kind: agent.OutcomeDone, Result: outcome.Output, Stats: stats}
	case Suspended:
		return agent.Outcome{Kind: agent.OutcomeSuspended, Suspension: outcome.Suspension, Stats: stats}
	default:
		var block *BlockError
		if errors.As(outcome.Err, &block) {
			return agent.Outcome{Kind: agent.OutcomeBlocked, Reason: block.Reason, Stats: stats}
		}
		return agent.Outcome{
			Kind:    agent.OutcomeErrored,
			ErrKind: models.ErrKindSubWorkflow,
			Err:     fmt.Errorf("sub-workflow failed: %w", outcome.Err),
			Stats:   stats,
		}
	}
}

func (rt *Runtime) emit(taskID string, status models.AgentStatus, description string, ev StepEvent) {
	rt.emitter.AgentStatus(rt.agentName, taskID, status, description, map[string]any{
		"stepId": ev.StepID,
		"status": string(ev.Status),
	})
}
