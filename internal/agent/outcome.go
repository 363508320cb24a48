package agent

import (
	"encoding/json"

	"github.com/ShayCichocki/teamflow/pkg/models"
)

// OutcomeKind classifies how a runtime finished a task.
type OutcomeKind int

const (
	// OutcomeDone means the task produced a result.
	OutcomeDone OutcomeKind = iota
	// OutcomeBlocked means the agent refused the task.
	OutcomeBlocked
	// OutcomeErrored means execution failed.
	OutcomeErrored
	// OutcomeCancelled means a stop aborted execution; no further status
	// updates are emitted for the task.
	OutcomeCancelled
	// OutcomeSuspended means a sub-workflow suspended itself; the task parks
	// in PAUSED until the team resumes it.
	OutcomeSuspended
)

// Outcome is the terminal report a runtime hands back to the controller.
type Outcome struct {
	Kind OutcomeKind
	// Result is the final answer or sub-workflow output for OutcomeDone.
	Result string
	// Reason explains an OutcomeBlocked.
	Reason string
	// ErrKind classifies an OutcomeErrored.
	ErrKind models.ErrorKind
	// Err carries the failure for OutcomeErrored.
	Err error
	// Suspension is the payload to replay on resume for OutcomeSuspended.
	Suspension json.RawMessage
	// Stats accumulates per-task execution statistics.
	Stats models.TaskStats
}
