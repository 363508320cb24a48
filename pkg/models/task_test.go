package models

import "testing"

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{TaskTodo, TaskDoing, TaskPaused, TaskResumed, TaskBlocked, TaskDone, TaskErrored}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []TaskStatus{"", "todo", "RUNNING", "unknown"}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskTodo, TaskDoing, true},
		{TaskTodo, TaskDone, false},
		{TaskDoing, TaskDone, true},
		{TaskDoing, TaskPaused, true},
		{TaskDoing, TaskBlocked, true},
		{TaskDoing, TaskErrored, true},
		{TaskDoing, TaskTodo, true}, // stop reset
		{TaskPaused, TaskResumed, true},
		{TaskPaused, TaskDoing, true},
		{TaskResumed, TaskDoing, true},
		{TaskResumed, TaskDone, false},
		{TaskDone, TaskTodo, false}, // completed tasks survive stop
		{TaskDone, TaskDoing, false},
		{TaskErrored, TaskTodo, true},
		{TaskBlocked, TaskTodo, true},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestWorkflowStatusTerminal(t *testing.T) {
	terminal := []WorkflowStatus{WorkflowStopped, WorkflowErrored, WorkflowFinished, WorkflowBlocked}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %q to be terminal", s)
		}
	}

	active := []WorkflowStatus{WorkflowInitial, WorkflowRunning, WorkflowPaused, WorkflowStopping}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("expected %q to be non-terminal", s)
		}
	}
}

func TestTaskClone(t *testing.T) {
	task := Task{
		ID:        "t1",
		Agent:     "writer",
		DependsOn: []string{"t0"},
		Status:    TaskTodo,
	}

	clone := task.Clone()
	clone.DependsOn[0] = "changed"
	clone.Status = TaskDoing

	if task.DependsOn[0] != "t0" {
		t.Error("clone shares DependsOn backing array with original")
	}
	if task.Status != TaskTodo {
		t.Error("clone mutation leaked into original")
	}
}

func TestLLMUsageStatsAdd(t *testing.T) {
	var u LLMUsageStats
	u.Add(LLMUsageStats{InputTokens: 10, OutputTokens: 5, Calls: 1})
	u.Add(LLMUsageStats{InputTokens: 7, OutputTokens: 3, Calls: 1, CallErrors: 1, ParseErrors: 2})

	if u.InputTokens != 17 || u.OutputTokens != 8 {
		t.Errorf("tokens = %d/%d, want 17/8", u.InputTokens, u.OutputTokens)
	}
	if u.Calls != 2 || u.CallErrors != 1 || u.ParseErrors != 2 {
		t.Errorf("calls = %d errors = %d parse = %d", u.Calls, u.CallErrors, u.ParseErrors)
	}
}

func TestNewTaskID(t *testing.T) {
	a := NewTaskID()
	b := NewTaskID()
	if len(a) != 8 {
		t.Errorf("expected 8-char id, got %q", a)
	}
	if a == b {
		t.Error("expected distinct ids")
	}
}
