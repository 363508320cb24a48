package models

// ErrorKind classifies failures surfaced by the orchestration engine.
type ErrorKind string

const (
	// ErrKindConfiguration covers cyclic dependencies, unknown agents, and
	// missing credentials. Returned synchronously while the team is being
	// built, before any task runs.
	ErrKindConfiguration ErrorKind = "ConfigurationError"
	// ErrKindLLMProvider covers HTTP, auth, rate-limit, and timeout failures.
	ErrKindLLMProvider ErrorKind = "LLMProviderError"
	// ErrKindToolInvocation covers schema mismatches and tool exceptions.
	ErrKindToolInvocation ErrorKind = "ToolInvocationError"
	// ErrKindMalformedOutput covers unparseable LLM output.
	ErrKindMalformedOutput ErrorKind = "MalformedLLMOutput"
	// ErrKindIterationLimit covers an exhausted ReAct budget.
	ErrKindIterationLimit ErrorKind = "IterationLimitExceeded"
	// ErrKindTaskBlocked covers an agent invoking block_task.
	ErrKindTaskBlocked ErrorKind = "TaskBlocked"
	// ErrKindSubWorkflow covers a failed sub-workflow.
	ErrKindSubWorkflow ErrorKind = "SubWorkflowFailure"
	// ErrKindCancelled covers a stop during execution.
	ErrKindCancelled ErrorKind = "Cancelled"
)
