package state

import "github.com/ShayCichocki/teamflow/pkg/models"

// Snapshot is a value copy of the full team state, including runtime-only
// fields. It is safe to retain and inspect from any goroutine.
type Snapshot struct {
	Name            string                `json:"name"`
	Status          models.WorkflowStatus `json:"team_workflow_status"`
	Tasks           []models.Task         `json:"tasks"`
	Agents          []models.AgentState   `json:"agents"`
	Inputs          map[string]string     `json:"inputs"`
	WorkflowContext string                `json:"workflow_context"`
	WorkflowResult  string                `json:"workflow_result"`
	Logs            []models.LogEntry     `json:"workflow_logs"`
	LogLevel        string                `json:"log_level"`

	// Runtime bookkeeping, excluded from the cleaned projection.
	ExecutingTasks []string `json:"executing_tasks"`
	PendingTasks   []string `json:"pending_tasks"`
	QueuePaused    bool     `json:"queue_paused"`
}

// CleanedState is the stable projection surfaced to consumers. It strips the
// executing/pending id-sets and any runtime handles; its JSON shape is the
// compatibility contract.
type CleanedState struct {
	Name            string                `json:"name"`
	Status          models.WorkflowStatus `json:"team_workflow_status"`
	Tasks           []models.Task         `json:"tasks"`
	Agents          []models.AgentState   `json:"agents"`
	Inputs          map[string]string     `json:"inputs"`
	WorkflowContext string                `json:"workflow_context"`
	WorkflowResult  string                `json:"workflow_result"`
	Logs            []models.LogEntry     `json:"workflow_logs"`
	LogLevel        string                `json:"log_level"`
}

// Clean projects a snapshot down to the cleaned state.
func (s Snapshot) Clean() CleanedState {
	return CleanedState{
		Name:            s.Name,
		Status:          s.Status,
		Tasks:           s.Tasks,
		Agents:          s.Agents,
		Inputs:          s.Inputs,
		WorkflowContext: s.WorkflowContext,
		WorkflowResult:  s.WorkflowResult,
		Logs:            s.Logs,
		LogLevel:        s.LogLevel,
	}
}
