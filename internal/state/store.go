// Package state holds the in-memory authoritative team state and the
// selector-based change notification machinery.
package state

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/teamflow/internal/stream"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

// Selector projects the state snapshot down to the value a subscriber cares
// about. Listeners fire only when the projected value changes.
type Selector func(Snapshot) any

// Listener receives the new projected value after a change.
type Listener func(any)

type subscription struct {
	id       int
	selector Selector
	listener Listener
	last     any
	primed   bool
}

// Store is the exclusive owner of tasks, agents, and the workflow log.
// All mutation goes through its typed transition methods; every mutation is
// followed by a notification pass over the subscriber registry. Listener
// dispatch is serialized on a single goroutine so subscribers observe
// mutations in order.
type Store struct {
	mu sync.Mutex

	name     string
	logLevel string
	status   models.WorkflowStatus

	tasks  []*models.Task // declaration order
	byID   map[string]*models.Task
	agents []models.AgentSpec
	agentStatus map[string]models.AgentStatus

	inputs          map[string]string
	workflowContext string
	workflowResult  string

	executing   map[string]bool
	pending     map[string]bool
	queuePaused bool

	journal *stream.Journal

	subs    map[int]*subscription
	nextSub int

	// dispatch queue, drained by a single goroutine
	dq       []dispatchItem
	dqCond   *sync.Cond
	dqClosed bool

	debugLog func(format string, args ...any)
}

type dispatchItem struct {
	sub *subscription
	val any
}

// Config configures a new Store.
type Config struct {
	Name     string
	Tasks    []*models.Task
	Agents   []models.AgentSpec
	Inputs   map[string]string
	LogLevel string
	// DebugLog is an optional diagnostic sink.
	DebugLog func(format string, args ...any)
}

// New creates a store owning the given tasks and agents and starts the
// dispatch goroutine.
func New(cfg Config) *Store {
	s := &Store{
		name:        cfg.Name,
		logLevel:    cfg.LogLevel,
		status:      models.WorkflowInitial,
		byID:        make(map[string]*models.Task),
		agentStatus: make(map[string]models.AgentStatus),
		inputs:      make(map[string]string),
		executing:   make(map[string]bool),
		pending:     make(map[string]bool),
		journal:     stream.New(),
		subs:        make(map[int]*subscription),
		debugLog:    func(format string, args ...any) {},
	}
	if cfg.DebugLog != nil {
		s.debugLog = cfg.DebugLog
	}
	s.dqCond = sync.NewCond(&sync.Mutex{})

	for _, task := range cfg.Tasks {
		if task.Status == "" {
			task.Status = models.TaskTodo
		}
		s.tasks = append(s.tasks, task)
		s.byID[task.ID] = task
		s.pending[task.ID] = true
	}
	s.agents = append(s.agents, cfg.Agents...)
	for _, a := range cfg.Agents {
		s.agentStatus[a.Name] = models.AgentInitial
	}
	for k, v := range cfg.Inputs {
		s.inputs[k] = v
	}

	go s.dispatchLoop()
	return s
}

// Close stops the dispatch goroutine. Pending notifications are delivered
// first.
func (s *Store) Close() {
	s.dqCond.L.Lock()
	s.dqClosed = true
	s.dqCond.Broadcast()
	s.dqCond.L.Unlock()
}

func (s *Store) dispatchLoop() {
	for {
		s.dqCond.L.Lock()
		for len(s.dq) == 0 && !s.dqClosed {
			s.dqCond.Wait()
		}
		if len(s.dq) == 0 && s.dqClosed {
			s.dqCond.L.Unlock()
			return
		}
		item := s.dq[0]
		s.dq = s.dq[1:]
		s.dqCond.L.Unlock()

		s.deliver(item)
	}
}

// deliver invokes one listener, unsubscribing it if it panics.
func (s *Store) deliver(item dispatchItem) {
	defer func() {
		if r := recover(); r != nil {
			s.debugLog("[state] listener %d panicked: %v; unsubscribing", item.sub.id, r)
			s.mu.Lock()
			delete(s.subs, item.sub.id)
			s.mu.Unlock()
		}
	}()
	item.sub.listener(item.val)
}

// Subscribe registers a selector-projected listener. The listener fires once
// immediately with the current projection, then whenever the projection
// changes by value. The returned function unsubscribes.
func (s *Store) Subscribe(selector Selector, listener Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	sub := &subscription{id: id, selector: selector, listener: listener}
	s.subs[id] = sub

	snap := s.snapshotLocked()
	val := sub.selector(snap)
	sub.last = val
	sub.primed = true
	s.enqueue(dispatchItem{sub: sub, val: val})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// enqueue appends to the unbounded dispatch queue. Caller may hold s.mu; the
// queue has its own lock so listeners can safely call back into the store.
func (s *Store) enqueue(item dispatchItem) {
	s.dqCond.L.Lock()
	if !s.dqClosed {
		s.dq = append(s.dq, item)
		s.dqCond.Broadcast()
	}
	s.dqCond.L.Unlock()
}

// notifyLocked re-evaluates every subscription against a fresh snapshot.
// Caller must hold s.mu.
func (s *Store) notifyLocked() {
	snap := s.snapshotLocked()
	for _, sub := range s.subs {
		val := sub.selector(snap)
		if sub.primed && reflect.DeepEqual(val, sub.last) {
			continue
		}
		sub.last = val
		sub.primed = true
		s.enqueue(dispatchItem{sub: sub, val: val})
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Name:            s.name,
		Status:          s.status,
		WorkflowContext: s.workflowContext,
		WorkflowResult:  s.workflowResult,
		Logs:            s.journal.Entries(),
		LogLevel:        s.logLevel,
		QueuePaused:     s.queuePaused,
		Inputs:          make(map[string]string, len(s.inputs)),
	}
	for k, v := range s.inputs {
		snap.Inputs[k] = v
	}
	for _, t := range s.tasks {
		snap.Tasks = append(snap.Tasks, t.Clone())
	}
	for _, a := range s.agents {
		snap.Agents = append(snap.Agents, models.AgentState{AgentSpec: a, Status: s.agentStatus[a.Name]})
	}
	snap.ExecutingTasks = sortedKeys(s.executing)
	snap.PendingTasks = sortedKeys(s.pending)
	return snap
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a value copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Cleaned returns the cleaned-state projection.
func (s *Store) Cleaned() CleanedState {
	return s.Snapshot().Clean()
}

// Status returns the current workflow status.
func (s *Store) Status() models.WorkflowStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Logs returns a snapshot of the workflow log.
func (s *Store) Logs() []models.LogEntry {
	return s.journal.Entries()
}

// LogsSince returns log entries with sequence index >= seq.
func (s *Store) LogsSince(seq int) []models.LogEntry {
	return s.journal.Since(seq)
}

// Task returns a copy of the task, or false if unknown.
func (s *Store) Task(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return models.Task{}, false
	}
	return t.Clone(), true
}

// Tasks returns copies of all tasks in declaration order.
func (s *Store) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Agents returns the agent specs in declaration order.
func (s *Store) Agents() []models.AgentSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AgentSpec(nil), s.agents...)
}

// Inputs returns a copy of the input map.
func (s *Store) Inputs() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.inputs))
	for k, v := range s.inputs {
		out[k] = v
	}
	return out
}

// WorkflowContext returns the accumulated narrative of completed results.
func (s *Store) WorkflowContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflowContext
}

// QueuePaused reports the admission suppression flag.
func (s *Store) QueuePaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queuePaused
}

// ExecutingCount returns how many tasks are currently in the executing set.
func (s *Store) ExecutingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.executing)
}

// --- mutators ---

// SetInputs replaces the input map.
func (s *Store) SetInputs(inputs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = make(map[string]string, len(inputs))
	for k, v := range inputs {
		s.inputs[k] = v
	}
	s.notifyLocked()
}

// SetTaskDescription rewrites a task description (input interpolation).
func (s *Store) SetTaskDescription(id, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byID[id]; ok {
		t.Description = description
	}
	s.notifyLocked()
}

// SetStatus transitions the team workflow status and appends a
// WorkflowStatusUpdate entry.
func (s *Store) SetStatus(status models.WorkflowStatus, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.journal.Append(models.LogEntry{
		LogType:        models.LogWorkflowStatusUpdate,
		WorkflowStatus: status,
		Description:    description,
	})
	s.notifyLocked()
}

// SetQueuePaused flips the admission suppression flag.
func (s *Store) SetQueuePaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queuePaused = paused
	s.notifyLocked()
}

// SetTaskStatus transitions a task and appends a TaskStatusUpdate entry with
// a snapshot of the task. Illegal transitions are rejected.
func (s *Store) SetTaskStatus(id string, status models.TaskStatus, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("unknown task %s", id)
	}
	if !t.Status.CanTransition(status) && t.Status != status {
		return fmt.Errorf("illegal task transition %s -> %s for task %s", t.Status, status, id)
	}

	switch status {
	case models.TaskDoing:
		if t.Stats.StartedAt.IsZero() {
			t.Stats.StartedAt = time.Now()
		}
		delete(s.pending, id)
		s.executing[id] = true
	case models.TaskDone, models.TaskErrored, models.TaskBlocked:
		t.Stats.CompletedAt = time.Now()
		if !t.Stats.StartedAt.IsZero() {
			t.Stats.Duration = t.Stats.CompletedAt.Sub(t.Stats.StartedAt)
		}
		delete(s.executing, id)
		delete(s.pending, id)
	}

	t.Status = status
	snap := t.Clone()
	s.journal.Append(models.LogEntry{
		LogType:     models.LogTaskStatusUpdate,
		Task:        &snap,
		TaskStatus:  status,
		TaskID:      id,
		AgentName:   t.Agent,
		Description: description,
	})
	s.notifyLocked()
	return nil
}

// SetTaskResult records a completed task's result and stats. Call before
// transitioning the task to DONE so the DONE log snapshot carries the result.
func (s *Store) SetTaskResult(id, result string, stats models.TaskStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byID[id]; ok {
		t.Result = result
		started := t.Stats.StartedAt
		t.Stats = stats
		if t.Stats.StartedAt.IsZero() {
			t.Stats.StartedAt = started
		}
	}
	s.notifyLocked()
}

// SetTaskError records a task failure's kind and message.
func (s *Store) SetTaskError(id string, kind models.ErrorKind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byID[id]; ok {
		t.ErrorKind = kind
		t.Error = message
	}
	s.notifyLocked()
}

// SetTaskBlockedReason records why a task was blocked.
func (s *Store) SetTaskBlockedReason(id, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byID[id]; ok {
		t.BlockedReason = reason
	}
	s.notifyLocked()
}

// AppendTaskContext appends a completed task's findings to the workflow
// context narrative supplied to subsequent tasks.
func (s *Store) AppendTaskContext(description, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workflowContext != "" {
		s.workflowContext += "\n"
	}
	s.workflowContext += fmt.Sprintf("Task: %s / Result: %s", description, result)
	s.notifyLocked()
}

// SetWorkflowResult records the final workflow result.
func (s *Store) SetWorkflowResult(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflowResult = result
	s.notifyLocked()
}

// AppendAgentLog records an agent activity boundary and updates the agent's
// last observed status.
func (s *Store) AppendAgentLog(agentName, taskID string, status models.AgentStatus, description string, metadata map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentStatus[agentName] = status
	s.journal.Append(models.LogEntry{
		LogType:     models.LogAgentStatusUpdate,
		AgentName:   agentName,
		AgentStatus: status,
		TaskID:      taskID,
		Description: description,
		Metadata:    metadata,
	})
	s.notifyLocked()
}

// ResetNonDone returns every task that has not completed to TODO and rebuilds
// the pending set. No per-task log entries are appended: cancellation is
// silent beyond the global STOPPED transition.
func (s *Store) ResetNonDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executing = make(map[string]bool)
	s.pending = make(map[string]bool)
	for _, t := range s.tasks {
		if t.Status != models.TaskDone {
			t.Status = models.TaskTodo
			t.Result = ""
			t.Error = ""
			t.ErrorKind = ""
			t.BlockedReason = ""
			t.Stats = models.TaskStats{}
			s.pending[t.ID] = true
		}
	}
	s.notifyLocked()
}
