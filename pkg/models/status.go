package models

// WorkflowStatus represents the lifecycle state of the whole team workflow.
type WorkflowStatus string

const (
	// WorkflowInitial indicates the workflow has not been started yet.
	WorkflowInitial WorkflowStatus = "INITIAL"
	// WorkflowRunning indicates tasks are being admitted and executed.
	WorkflowRunning WorkflowStatus = "RUNNING"
	// WorkflowPaused indicates admission is suppressed and runtimes are held.
	WorkflowPaused WorkflowStatus = "PAUSED"
	// WorkflowStopping indicates a stop was requested and runtimes are winding down.
	WorkflowStopping WorkflowStatus = "STOPPING"
	// WorkflowStopped indicates the workflow was stopped and non-completed tasks were reset.
	WorkflowStopped WorkflowStatus = "STOPPED"
	// WorkflowErrored indicates a task failure escalated to the team.
	WorkflowErrored WorkflowStatus = "ERRORED"
	// WorkflowFinished indicates every task completed successfully.
	WorkflowFinished WorkflowStatus = "FINISHED"
	// WorkflowBlocked indicates a task was blocked and admission halted.
	WorkflowBlocked WorkflowStatus = "BLOCKED"
)

// Valid returns true if the status is a known value.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowInitial, WorkflowRunning, WorkflowPaused, WorkflowStopping,
		WorkflowStopped, WorkflowErrored, WorkflowFinished, WorkflowBlocked:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions happen without a new Start.
func (s WorkflowStatus) Terminal() bool {
	switch s {
	case WorkflowStopped, WorkflowErrored, WorkflowFinished, WorkflowBlocked:
		return true
	default:
		return false
	}
}

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskTodo indicates the task has not started.
	TaskTodo TaskStatus = "TODO"
	// TaskDoing indicates the task is being worked on by its agent.
	TaskDoing TaskStatus = "DOING"
	// TaskPaused indicates the task was paused mid-flight.
	TaskPaused TaskStatus = "PAUSED"
	// TaskResumed is the transient state logged between PAUSED and DOING.
	TaskResumed TaskStatus = "RESUMED"
	// TaskBlocked indicates the agent refused the task; terminal by default.
	TaskBlocked TaskStatus = "BLOCKED"
	// TaskDone indicates the task completed with a result.
	TaskDone TaskStatus = "DONE"
	// TaskErrored indicates the task failed; terminal.
	TaskErrored TaskStatus = "ERRORED"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskDoing, TaskPaused, TaskResumed, TaskBlocked, TaskDone, TaskErrored:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is a legal walk of the
// task state machine.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case TaskTodo:
		return next == TaskDoing
	case TaskDoing:
		switch next {
		case TaskDone, TaskPaused, TaskBlocked, TaskErrored, TaskTodo:
			return true
		}
	case TaskPaused:
		return next == TaskResumed || next == TaskDoing || next == TaskTodo
	case TaskResumed:
		return next == TaskDoing
	case TaskBlocked, TaskErrored:
		return next == TaskTodo
	case TaskDone:
		return false
	}
	return false
}

// AgentStatus represents the last observed activity of an agent.
type AgentStatus string

const (
	// AgentInitial indicates the agent has not been dispatched yet.
	AgentInitial AgentStatus = "INITIAL"
	// AgentIdle indicates the agent finished its work.
	AgentIdle AgentStatus = "IDLE"
	// AgentThinking indicates an LLM call is being prepared or in flight.
	AgentThinking AgentStatus = "THINKING"
	// AgentThinkingEnd indicates the agent decided its next final-answer turn.
	AgentThinkingEnd AgentStatus = "THINKING_END"
	// AgentThought indicates a parsed thought with an action was received.
	AgentThought AgentStatus = "THOUGHT"
	// AgentSelfQuestion indicates the agent posed itself a question.
	AgentSelfQuestion AgentStatus = "SELF_QUESTION"
	// AgentObserving indicates the agent produced an observation.
	AgentObserving AgentStatus = "OBSERVING"
	// AgentUsingTool indicates a tool invocation started.
	AgentUsingTool AgentStatus = "USING_TOOL"
	// AgentUsingToolEnd indicates a tool invocation completed.
	AgentUsingToolEnd AgentStatus = "USING_TOOL_END"
	// AgentToolDoesNotExist indicates the agent named an unbound tool.
	AgentToolDoesNotExist AgentStatus = "TOOL_DOES_NOT_EXIST"
	// AgentInvalidToolInput indicates tool input failed schema validation.
	AgentInvalidToolInput AgentStatus = "INVALID_TOOL_INPUT"
	// AgentToolError indicates the tool itself returned an error.
	AgentToolError AgentStatus = "TOOL_ERROR"
	// AgentWeirdLLMOutput indicates the raw LLM output could not be parsed.
	AgentWeirdLLMOutput AgentStatus = "WEIRD_LLM_OUTPUT"
	// AgentFinalAnswer indicates a final answer was produced.
	AgentFinalAnswer AgentStatus = "FINAL_ANSWER"
	// AgentTaskCompleted indicates the task was marked done by the agent.
	AgentTaskCompleted AgentStatus = "TASK_COMPLETED"
	// AgentTaskBlocked indicates the agent invoked block_task.
	AgentTaskBlocked AgentStatus = "TASK_BLOCKED"
	// AgentMaxIterationsError indicates the reasoning budget ran out.
	AgentMaxIterationsError AgentStatus = "MAX_ITERATIONS_ERROR"
	// AgentPaused indicates the agent is held at a suspension point.
	AgentPaused AgentStatus = "PAUSED"
	// AgentResumed indicates the agent resumed after a pause.
	AgentResumed AgentStatus = "RESUMED"
	// AgentWorkflowStepStarted indicates a sub-workflow step started.
	AgentWorkflowStepStarted AgentStatus = "WORKFLOW_STEP_STARTED"
	// AgentWorkflowStepCompleted indicates a sub-workflow step completed.
	AgentWorkflowStepCompleted AgentStatus = "WORKFLOW_STEP_COMPLETED"
	// AgentWorkflowStepFailed indicates a sub-workflow step failed.
	AgentWorkflowStepFailed AgentStatus = "WORKFLOW_STEP_FAILED"
	// AgentWorkflowSuspended indicates the sub-workflow suspended itself.
	AgentWorkflowSuspended AgentStatus = "WORKFLOW_SUSPENDED"
)
