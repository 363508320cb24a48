package team

import (
	"context"
	"encoding/json"

	"github.com/ShayCichocki/teamflow/internal/agent"
	"github.com/ShayCichocki/teamflow/internal/queue"
	"github.com/ShayCichocki/teamflow/internal/workflow"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

// runLoop drives admission and absorbs runtime completions until the
// workflow reaches a terminal status or the run context is cancelled.
func (t *Team) runLoop(ctx context.Context) {
	defer t.wg.Done()
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-t.completionCh:
			t.handleCompletion(ctx, c)
			if t.checkDone() {
				return
			}
			t.admit(ctx)

		case <-t.admitCh:
			t.admit(ctx)
			if t.checkDone() {
				return
			}
		}
	}
}

// admit runs the admission algorithm and dispatches every admitted task to
// its owning agent runtime.
func (t *Team) admit(ctx context.Context) {
	if ctx.Err() != nil || t.gate.Stopped() {
		return
	}

	tasks := t.store.Tasks()
	admitted := queue.Admit(t.graph, tasks, t.store.QueuePaused())
	if len(admitted) == 0 {
		return
	}
	t.logger.Log("[team] admitting %d tasks: %v", len(admitted), admitted)

	// All DOING entries of one admission batch are appended before any
	// runtime starts, so parallel tasks start near-simultaneously in the log.
	for _, id := range admitted {
		if err := t.store.SetTaskStatus(id, models.TaskDoing, "task admitted"); err != nil {
			t.logger.Log("[team] admit %s: %v", id, err)
		}
	}
	for _, id := range admitted {
		t.dispatch(ctx, id)
	}
}

// dispatch runs one task on its owning agent runtime in the background.
func (t *Team) dispatch(ctx context.Context, taskID string) {
	task, ok := t.store.Task(taskID)
	if !ok {
		return
	}
	owner := t.agents[task.Agent]
	req := agent.ExecuteRequest{Task: task, WorkflowContext: t.store.WorkflowContext()}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		var out agent.Outcome
		if owner.Spec.Kind == models.AgentKindWorkflow {
			rt := workflow.NewRuntime(owner.Spec.Name, t.workflows[owner.Spec.Name], t, t.gate)
			t.mu.Lock()
			t.wfRuntimes[taskID] = rt
			t.mu.Unlock()
			out = rt.ExecuteTask(ctx, req)
		} else {
			rt := agent.NewReactRuntime(owner, t, t.gate)
			rt.LLMTimeout = t.llmTimeout
			rt.ToolTimeout = t.toolTimeout
			out = rt.ExecuteTask(ctx, req)
		}

		select {
		case t.completionCh <- completion{taskID: taskID, outcome: out}:
		case <-ctx.Done():
		}
	}()
}

// dispatchResumeLocked re-enters a suspended sub-workflow with the recorded
// payload. Caller holds t.mu.
func (t *Team) dispatchResumeLocked(task models.Task, payload json.RawMessage) {
	rt, ok := t.wfRuntimes[task.ID]
	if !ok {
		return
	}
	ctx := t.runCtx
	req := agent.ExecuteRequest{Task: task, WorkflowContext: t.store.WorkflowContext()}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		out := rt.ResumeTask(ctx, req, payload)
		t.completionCh <- completion{taskID: task.ID, outcome: out}
	}()
}

// handleCompletion folds one runtime outcome into the store and the team
// status.
func (t *Team) handleCompletion(ctx context.Context, c completion) {
	task, ok := t.store.Task(c.taskID)
	if !ok {
		return
	}

	// A runtime can finish in the window between a pause marking its task
	// PAUSED and the runtime observing the gate. Accept the result by
	// stepping back through DOING.
	if task.Status == models.TaskPaused && c.outcome.Kind != agent.OutcomeSuspended && c.outcome.Kind != agent.OutcomeCancelled {
		_ = t.store.SetTaskStatus(c.taskID, models.TaskDoing, "completed during pause")
	}

	switch c.outcome.Kind {
	case agent.OutcomeDone:
		t.store.SetTaskResult(c.taskID, c.outcome.Result, c.outcome.Stats)
		if err := t.store.SetTaskStatus(c.taskID, models.TaskDone, "task completed"); err != nil {
			t.logger.Log("[team] complete %s: %v", c.taskID, err)
			return
		}
		t.store.AppendTaskContext(task.Description, c.outcome.Result)
		if t.isLastTask(c.taskID) {
			t.store.SetWorkflowResult(c.outcome.Result)
		}

	case agent.OutcomeBlocked:
		t.store.SetTaskBlockedReason(c.taskID, c.outcome.Reason)
		_ = t.store.SetTaskStatus(c.taskID, models.TaskBlocked, c.outcome.Reason)
		t.store.SetStatus(models.WorkflowBlocked, "task blocked: "+c.outcome.Reason)
		t.runCancel()

	case agent.OutcomeErrored:
		message := ""
		if c.outcome.Err != nil {
			message = c.outcome.Err.Error()
		}
		t.store.SetTaskError(c.taskID, c.outcome.ErrKind, message)
		_ = t.store.SetTaskStatus(c.taskID, models.TaskErrored, message)
		t.store.SetStatus(models.WorkflowErrored, "task errored: "+message)
		t.runCancel()

	case agent.OutcomeSuspended:
		t.mu.Lock()
		t.suspensions[c.taskID] = c.outcome.Suspension
		t.mu.Unlock()
		_ = t.store.SetTaskStatus(c.taskID, models.TaskPaused, "sub-workflow suspended")

	case agent.OutcomeCancelled:
		// Silent: no status updates beyond the global transition.
	}
}

// isLastTask reports whether the task is the final one in declaration order.
func (t *Team) isLastTask(taskID string) bool {
	order := t.graph.Order()
	return len(order) > 0 && order[len(order)-1] == taskID
}

// checkDone finishes the workflow when a terminal status was reached or all
// tasks completed.
func (t *Team) checkDone() bool {
	status := t.store.Status()
	if status.Terminal() {
		t.finish(status)
		return true
	}

	tasks := t.store.Tasks()
	if len(tasks) == 0 {
		t.store.SetStatus(models.WorkflowFinished, "no tasks to run")
		t.finish(models.WorkflowFinished)
		return true
	}
	for _, task := range tasks {
		if task.Status != models.TaskDone {
			return false
		}
	}

	t.store.SetStatus(models.WorkflowFinished, "all tasks completed")
	t.finish(models.WorkflowFinished)
	return true
}
