package models

import (
	"time"

	"github.com/google/uuid"
)

// Task represents a unit of work bound to one agent.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// ReferenceID is an optional human-facing identifier.
	ReferenceID string `json:"reference_id,omitempty"`
	// Description states what the agent should do. May contain {placeholder}
	// tokens resolved from team inputs at start time.
	Description string `json:"description"`
	// ExpectedOutput describes the shape of a good result.
	ExpectedOutput string `json:"expected_output,omitempty"`
	// Agent is the name of the agent that owns this task.
	Agent string `json:"agent"`
	// DependsOn lists task IDs that must reach DONE before this task starts.
	DependsOn []string `json:"depends_on,omitempty"`
	// AllowParallel opts this task into parallel execution with other
	// parallel-capable tasks in the same admission batch.
	AllowParallel bool `json:"allow_parallel,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Result holds the accumulated result once the task is DONE.
	Result string `json:"result,omitempty"`
	// BlockedReason explains why the task was blocked, if it was.
	BlockedReason string `json:"blocked_reason,omitempty"`
	// Error contains the error message if the task errored.
	Error string `json:"error,omitempty"`
	// ErrorKind preserves the taxonomy kind of a task failure.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	// Stats accumulates execution statistics for this task.
	Stats TaskStats `json:"stats"`
}

// NewTaskID mints a fresh opaque task identifier.
func NewTaskID() string {
	return uuid.New().String()[:8]
}

// Clone returns a deep copy of the task safe to hand to observers.
func (t *Task) Clone() Task {
	c := *t
	c.DependsOn = append([]string(nil), t.DependsOn...)
	return c
}

// LLMUsageStats aggregates token usage across LLM calls made for a task.
type LLMUsageStats struct {
	// InputTokens is the total prompt tokens consumed.
	InputTokens int64 `json:"input_tokens"`
	// OutputTokens is the total completion tokens produced.
	OutputTokens int64 `json:"output_tokens"`
	// Calls is the number of provider calls made.
	Calls int `json:"calls"`
	// CallErrors is the number of provider calls that failed.
	CallErrors int `json:"call_errors"`
	// ParseErrors is the number of unparseable LLM outputs encountered.
	ParseErrors int `json:"parse_errors"`
}

// Add accumulates another usage sample into the stats.
func (u *LLMUsageStats) Add(other LLMUsageStats) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Calls += other.Calls
	u.CallErrors += other.CallErrors
	u.ParseErrors += other.ParseErrors
}

// TaskStats holds execution statistics for a task.
type TaskStats struct {
	// StartedAt is when the task first entered DOING.
	StartedAt time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the task reached a terminal state.
	CompletedAt time.Time `json:"completed_at,omitempty"`
	// Duration is the wall-clock time between start and completion.
	Duration time.Duration `json:"duration,omitempty"`
	// Iterations counts reasoning iterations (ReAct) or steps (workflow).
	Iterations int `json:"iterations,omitempty"`
	// LLMUsage aggregates token usage across the task's LLM calls.
	LLMUsage LLMUsageStats `json:"llm_usage"`
}

// WorkflowStats aggregates statistics across all tasks of a finished workflow.
type WorkflowStats struct {
	StartedAt   time.Time     `json:"started_at,omitempty"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	TaskCount   int           `json:"task_count"`
	LLMUsage    LLMUsageStats `json:"llm_usage"`
}

// WorkflowResult is the terminal outcome surfaced to callers of Wait.
type WorkflowResult struct {
	// Status is the terminal workflow status.
	Status WorkflowStatus `json:"status"`
	// Result is the result of the final task, when the workflow finished.
	Result string `json:"result,omitempty"`
	// Stats aggregates execution statistics.
	Stats WorkflowStats `json:"stats"`
}
