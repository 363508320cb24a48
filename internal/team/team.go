// Package team implements the workflow controller: top-level lifecycle,
// input interpolation, admission, and the pause/resume/stop protocol.
package team

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ShayCichocki/teamflow/internal/agent"
	"github.com/ShayCichocki/teamflow/internal/queue"
	"github.com/ShayCichocki/teamflow/internal/state"
	"github.com/ShayCichocki/teamflow/internal/workflow"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

// ErrConfiguration wraps team construction failures: cyclic dependencies,
// unknown agents, missing sub-workflows.
var ErrConfiguration = errors.New("configuration error")

// ErrInvalidTransition is returned when a lifecycle operation's precondition
// does not hold.
var ErrInvalidTransition = errors.New("invalid workflow transition")

// Config assembles a team.
type Config struct {
	// Name identifies the team.
	Name string
	// Agents are the runtime agents, keyed by their spec name.
	Agents []*agent.Agent
	// Workflows maps a workflow-driven agent's name to its sub-workflow.
	Workflows map[string]workflow.Workflow
	// Tasks is the declared task list, in declaration order.
	Tasks []*models.Task
	// Inputs seeds the input key/value map.
	Inputs map[string]string
	// Env is the initial credential environment pushed to every agent.
	Env map[string]string
	// LogLevel is surfaced in the cleaned state.
	LogLevel string
	// LLMTimeout bounds each provider call; zero disables the deadline.
	LLMTimeout time.Duration
	// ToolTimeout bounds each tool invocation; zero disables the deadline.
	ToolTimeout time.Duration
	// Logger is an optional diagnostic sink.
	Logger *DebugLogger
}

// completion is one runtime's terminal report delivered to the run loop.
type completion struct {
	taskID  string
	outcome agent.Outcome
}

// Team is the top-level workflow controller and the public surface of the
// orchestration engine.
type Team struct {
	name        string
	store       *state.Store
	graph       *queue.Graph
	agents      map[string]*agent.Agent
	workflows   map[string]workflow.Workflow
	templates   map[string]string
	logger      *DebugLogger
	llmTimeout  time.Duration
	toolTimeout time.Duration

	mu           sync.Mutex
	env          map[string]string
	running      bool
	gate         *Gate
	runCtx       context.Context
	runCancel    context.CancelFunc
	wg           *sync.WaitGroup
	completionCh chan completion
	admitCh      chan struct{}
	doneCh       chan struct{}
	doneOnce     *sync.Once
	result       models.WorkflowResult
	suspensions  map[string]json.RawMessage
	wfRuntimes   map[string]*workflow.Runtime
	startedAt    time.Time
}

// New validates the configuration, builds the dependency graph, and
// constructs the team. A cyclic dependency graph, an unknown agent binding,
// or a workflow-driven agent without a sub-workflow fails construction.
func New(cfg Config) (*Team, error) {
	name := cfg.Name
	if name == "" {
		name = "team"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger()
	}

	agents := make(map[string]*agent.Agent, len(cfg.Agents))
	var agentSpecs []models.AgentSpec
	for _, a := range cfg.Agents {
		if _, dup := agents[a.Spec.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate agent name %q", ErrConfiguration, a.Spec.Name)
		}
		agents[a.Spec.Name] = a
		agentSpecs = append(agentSpecs, a.Spec)
	}

	for _, task := range cfg.Tasks {
		if task.ID == "" {
			task.ID = models.NewTaskID()
		}
		owner, ok := agents[task.Agent]
		if !ok {
			return nil, fmt.Errorf("%w: task %s bound to unknown agent %q", ErrConfiguration, task.ID, task.Agent)
		}
		if owner.Spec.Kind == models.AgentKindWorkflow {
			if _, ok := cfg.Workflows[owner.Spec.Name]; !ok {
				return nil, fmt.Errorf("%w: workflow-driven agent %q has no sub-workflow", ErrConfiguration, owner.Spec.Name)
			}
		}
	}

	taskValues := make([]models.Task, 0, len(cfg.Tasks))
	templates := make(map[string]string, len(cfg.Tasks))
	for _, task := range cfg.Tasks {
		taskValues = append(taskValues, *task)
		templates[task.ID] = task.Description
	}

	graph, err := queue.BuildGraph(taskValues)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	env := make(map[string]string, len(cfg.Env))
	for k, v := range cfg.Env {
		env[k] = v
	}
	for _, a := range agents {
		if len(env) > 0 {
			a.SetEnv(env)
		}
	}

	store := state.New(state.Config{
		Name:     name,
		Tasks:    cfg.Tasks,
		Agents:   agentSpecs,
		Inputs:   cfg.Inputs,
		LogLevel: cfg.LogLevel,
		DebugLog: logger.Log,
	})

	return &Team{
		name:        name,
		store:       store,
		graph:       graph,
		agents:      agents,
		workflows:   cfg.Workflows,
		templates:   templates,
		logger:      logger,
		llmTimeout:  cfg.LLMTimeout,
		toolTimeout: cfg.ToolTimeout,
		env:         env,
	}, nil
}

// Start interpolates inputs into task descriptions, transitions the team to
// RUNNING, and seeds the queue. It returns once the observable state
// reflects the transition; execution continues in the background.
func (t *Team) Start(inputs map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("%w: workflow already running", ErrInvalidTransition)
	}
	switch t.store.Status() {
	case models.WorkflowInitial, models.WorkflowStopped, models.WorkflowFinished:
	default:
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, t.store.Status())
	}

	merged := t.store.Inputs()
	for k, v := range inputs {
		merged[k] = v
	}
	t.store.SetInputs(merged)
	for id, template := range t.templates {
		t.store.SetTaskDescription(id, interpolate(template, merged))
	}

	t.gate = NewGate()
	t.wg = &sync.WaitGroup{}
	t.completionCh = make(chan completion, len(t.templates)+1)
	t.admitCh = make(chan struct{}, 1)
	t.doneCh = make(chan struct{})
	t.doneOnce = &sync.Once{}
	t.suspensions = make(map[string]json.RawMessage)
	t.wfRuntimes = make(map[string]*workflow.Runtime)
	t.startedAt = time.Now()
	t.running = true

	ctx, cancel := context.WithCancel(context.Background())
	t.runCtx = ctx
	t.runCancel = cancel

	t.store.SetQueuePaused(false)
	t.store.SetStatus(models.WorkflowRunning, "workflow started")
	t.logger.Log("[team] started with %d tasks", len(t.templates))

	t.kickLocked()
	t.wg.Add(1)
	go t.runLoop(ctx)
	return nil
}

// Wait blocks until the workflow reaches a terminal status and returns the
// result.
func (t *Team) Wait(ctx context.Context) (*models.WorkflowResult, error) {
	t.mu.Lock()
	done := t.doneCh
	t.mu.Unlock()
	if done == nil {
		return nil, fmt.Errorf("%w: workflow not started", ErrInvalidTransition)
	}

	select {
	case <-done:
		t.mu.Lock()
		result := t.result
		t.mu.Unlock()
		return &result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run starts the workflow and waits for it to finish.
func (t *Team) Run(ctx context.Context, inputs map[string]string) (*models.WorkflowResult, error) {
	if err := t.Start(inputs); err != nil {
		return nil, err
	}
	return t.Wait(ctx)
}

// Pause suppresses admission, holds every in-flight runtime at its next
// suspension point, and marks every DOING task PAUSED.
func (t *Team) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.store.Status() != models.WorkflowRunning {
		return fmt.Errorf("%w: cannot pause from %s", ErrInvalidTransition, t.store.Status())
	}

	t.store.SetQueuePaused(true)
	t.gate.Pause()
	for _, task := range t.store.Tasks() {
		if task.Status == models.TaskDoing {
			_ = t.store.SetTaskStatus(task.ID, models.TaskPaused, "workflow paused")
			t.store.AppendAgentLog(task.Agent, task.ID, models.AgentPaused, "paused at suspension point", nil)
		}
	}
	t.store.SetStatus(models.WorkflowPaused, "workflow paused")
	t.logger.Log("[team] paused")
	return nil
}

// Resume releases the pause: paused tasks flip back to DOING (logging a
// RESUMED then a DOING entry), suspended sub-workflows re-enter through
// their Resume entry, and admission reruns.
func (t *Team) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.store.Status()
	pausedTasks := t.pausedTasksLocked()

	switch {
	case status == models.WorkflowPaused:
	case status == models.WorkflowRunning && len(pausedTasks) > 0:
		// Sub-workflow suspensions park tasks in PAUSED without pausing the
		// team; resuming them is allowed while RUNNING.
	default:
		return fmt.Errorf("%w: cannot resume from %s", ErrInvalidTransition, status)
	}

	for _, task := range pausedTasks {
		_ = t.store.SetTaskStatus(task.ID, models.TaskResumed, "workflow resumed")
		_ = t.store.SetTaskStatus(task.ID, models.TaskDoing, "workflow resumed")
		t.store.AppendAgentLog(task.Agent, task.ID, models.AgentResumed, "resumed", nil)
		if payload, ok := t.suspensions[task.ID]; ok {
			delete(t.suspensions, task.ID)
			t.dispatchResumeLocked(task, payload)
		}
	}

	if status == models.WorkflowPaused {
		t.store.SetQueuePaused(false)
		t.store.SetStatus(models.WorkflowRunning, "workflow resumed")
		t.gate.Resume()
	}
	t.kickLocked()
	t.logger.Log("[team] resumed %d tasks", len(pausedTasks))
	return nil
}

// Stop cancels every in-flight runtime, resets every non-completed task to
// TODO, and transitions RUNNING|PAUSED -> STOPPING -> STOPPED. It returns
// once the stop is observable.
func (t *Team) Stop() error {
	t.mu.Lock()
	status := t.store.Status()
	if status != models.WorkflowRunning && status != models.WorkflowPaused {
		t.mu.Unlock()
		return fmt.Errorf("%w: cannot stop from %s", ErrInvalidTransition, status)
	}
	t.store.SetStatus(models.WorkflowStopping, "stop requested")
	gate := t.gate
	cancel := t.runCancel
	wg := t.wg
	t.mu.Unlock()

	gate.Stop()
	cancel()
	wg.Wait()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.store.ResetNonDone()
	t.store.SetQueuePaused(false)
	t.store.SetStatus(models.WorkflowStopped, "workflow stopped")
	t.running = false
	t.finish(models.WorkflowStopped)
	t.logger.Log("[team] stopped")
	return nil
}

// SetEnv patches every agent's environment atomically; the patch is visible
// to the next provider call, including calls for tasks already in flight.
func (t *Team) SetEnv(kv map[string]string) {
	t.mu.Lock()
	for k, v := range kv {
		t.env[k] = v
	}
	snapshot := make(map[string]string, len(t.env))
	for k, v := range t.env {
		snapshot[k] = v
	}
	agents := make([]*agent.Agent, 0, len(t.agents))
	for _, a := range t.agents {
		agents = append(agents, a)
	}
	t.mu.Unlock()

	for _, a := range agents {
		a.SetEnv(snapshot)
	}
}

// Subscribe registers a selector-projected listener on the state store.
func (t *Team) Subscribe(selector state.Selector, listener state.Listener) func() {
	return t.store.Subscribe(selector, listener)
}

// State returns the full state snapshot, including runtime id-sets.
func (t *Team) State() state.Snapshot {
	return t.store.Snapshot()
}

// CleanedState returns the stable projection surfaced to consumers.
func (t *Team) CleanedState() state.CleanedState {
	return t.store.Cleaned()
}

// Status returns the current workflow status.
func (t *Team) Status() models.WorkflowStatus {
	return t.store.Status()
}

// Logs returns a snapshot of the workflow log.
func (t *Team) Logs() []models.LogEntry {
	return t.store.Logs()
}

// Close releases the store's dispatch resources. Call after the team is no
// longer needed.
func (t *Team) Close() {
	t.store.Close()
}

// AgentStatus implements agent.Emitter by appending to the workflow log.
func (t *Team) AgentStatus(agentName, taskID string, status models.AgentStatus, description string, metadata map[string]any) {
	t.store.AppendAgentLog(agentName, taskID, status, description, metadata)
}

// pausedTasksLocked returns tasks currently in PAUSED, declaration order.
func (t *Team) pausedTasksLocked() []models.Task {
	var out []models.Task
	for _, task := range t.store.Tasks() {
		if task.Status == models.TaskPaused {
			out = append(out, task)
		}
	}
	return out
}

// kickLocked nudges the run loop to re-evaluate admission.
func (t *Team) kickLocked() {
	select {
	case t.admitCh <- struct{}{}:
	default:
	}
}

// finish records the terminal result and releases waiters. Idempotent per
// run.
func (t *Team) finish(status models.WorkflowStatus) {
	t.doneOnce.Do(func() {
		t.result = t.buildResult(status)
		close(t.doneCh)
	})
}

func (t *Team) buildResult(status models.WorkflowStatus) models.WorkflowResult {
	snap := t.store.Snapshot()
	stats := models.WorkflowStats{
		StartedAt:   t.startedAt,
		CompletedAt: time.Now(),
		TaskCount:   len(snap.Tasks),
	}
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	for _, task := range snap.Tasks {
		stats.LLMUsage.Add(task.Stats.LLMUsage)
	}
	return models.WorkflowResult{
		Status: status,
		Result: snap.WorkflowResult,
		Stats:  stats,
	}
}
