package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ShayCichocki/teamflow/internal/llm"
	"github.com/ShayCichocki/teamflow/internal/tool"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

// fakeProvider replays scripted completions and records every request.
type fakeProvider struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]llm.Message
	env     map[string]string
}

func (f *fakeProvider) ChatCompletion(ctx context.Context, messages []llm.Message, cfg models.LLMConfig) (*llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	f.calls = append(f.calls, snapshot)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return &llm.Result{Content: `{"observation": "nothing left", "isFinalAnswerReady": false}`, InputTokens: 1, OutputTokens: 1}, nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return &llm.Result{Content: reply, InputTokens: 10, OutputTokens: 5}, nil
}

func (f *fakeProvider) SetEnv(env map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.env = env
}

// recordedEvent is one emitted agent status boundary.
type recordedEvent struct {
	status   models.AgentStatus
	metadata map[string]any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEmitter) AgentStatus(agentName, taskID string, status models.AgentStatus, description string, metadata map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{status: status, metadata: metadata})
}

func (f *fakeEmitter) statuses() []models.AgentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.AgentStatus, len(f.events))
	for i, e := range f.events {
		out[i] = e.status
	}
	return out
}

// openGate never pauses or stops.
type openGate struct{}

func (openGate) Wait(ctx context.Context) error  { return ctx.Err() }
func (openGate) InterruptCh() <-chan struct{}    { return nil }
func (openGate) Paused() bool                    { return false }
func (openGate) Stopped() bool                   { return false }

func newTestRuntime(replies []string, tools *tool.Registry) (*ReactRuntime, *fakeProvider, *fakeEmitter) {
	if tools == nil {
		tools = tool.NewRegistry()
	}
	provider := &fakeProvider{replies: replies}
	a := NewAgent(models.AgentSpec{
		Name:          "tester",
		Role:          "test agent",
		Goal:          "finish tasks",
		Kind:          models.AgentKindReact,
		MaxIterations: 5,
		LLM:           models.LLMConfig{Provider: "openai", Model: "gpt-4o"},
	}, provider, tools, nil)
	emitter := &fakeEmitter{}
	return NewReactRuntime(a, emitter, openGate{}), provider, emitter
}

func task() models.Task {
	return models.Task{ID: "t1", Description: "compute something", Agent: "tester"}
}

func hasStatus(statuses []models.AgentStatus, want models.AgentStatus) bool {
	for _, s := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

func TestReactImmediateFinalAnswer(t *testing.T) {
	rt, _, emitter := newTestRuntime([]string{`{"finalAnswer": "42"}`}, nil)

	out := rt.ExecuteTask(context.Background(), ExecuteRequest{Task: task()})
	if out.Kind != OutcomeDone {
		t.Fatalf("kind = %v, err = %v", out.Kind, out.Err)
	}
	if out.Result != "42" {
		t.Errorf("result = %q", out.Result)
	}
	if out.Stats.Iterations != 1 {
		t.Errorf("iterations = %d", out.Stats.Iterations)
	}

	statuses := emitter.statuses()
	if statuses[0] != models.AgentThinking {
		t.Errorf("first status = %s, want THINKING", statuses[0])
	}
	if !hasStatus(statuses, models.AgentFinalAnswer) || !hasStatus(statuses, models.AgentTaskCompleted) {
		t.Errorf("statuses = %v", statuses)
	}
}

func TestReactToolFlow(t *testing.T) {
	rt, provider, emitter := newTestRuntime([]string{
		`{"thought": "add them", "action": "calculator", "actionInput": {"operation":"add","a":2,"b":3}}`,
		`{"observation": "the sum is 5", "isFinalAnswerReady": true}`,
		`{"finalAnswer": "5"}`,
	}, tool.NewRegistry(tool.NewCalculator()))

	out := rt.ExecuteTask(context.Background(), ExecuteRequest{Task: task()})
	if out.Kind != OutcomeDone || out.Result != "5" {
		t.Fatalf("outcome = %+v", out)
	}

	statuses := emitter.statuses()
	sawTool, sawToolEnd, sawObserving, sawThinkingEnd := false, false, false, false
	for _, s := range statuses {
		switch s {
		case models.AgentUsingTool:
			sawTool = true
		case models.AgentUsingToolEnd:
			if !sawTool {
				t.Error("USING_TOOL_END before USING_TOOL")
			}
			sawToolEnd = true
		case models.AgentObserving:
			sawObserving = true
		case models.AgentThinkingEnd:
			sawThinkingEnd = true
		}
	}
	if !sawTool || !sawToolEnd || !sawObserving || !sawThinkingEnd {
		t.Errorf("statuses = %v", statuses)
	}

	// The tool result re-enters the loop as a user-role feedback message.
	secondCall := provider.calls[1]
	last := secondCall[len(secondCall)-1]
	if last.Role != llm.RoleUser || !strings.Contains(last.Content, "5") {
		t.Errorf("feedback message = %+v", last)
	}
}

func TestReactUnknownTool(t *testing.T) {
	rt, provider, emitter := newTestRuntime([]string{
		`{"thought": "search it", "action": "web_search", "actionInput": {"q":"go"}}`,
		`{"finalAnswer": "answered anyway"}`,
	}, tool.NewRegistry(tool.NewCalculator()))

	out := rt.ExecuteTask(context.Background(), ExecuteRequest{Task: task()})
	if out.Kind != OutcomeDone {
		t.Fatalf("outcome = %+v", out)
	}
	if !hasStatus(emitter.statuses(), models.AgentToolDoesNotExist) {
		t.Errorf("statuses = %v", emitter.statuses())
	}

	secondCall := provider.calls[1]
	last := secondCall[len(secondCall)-1]
	if !strings.Contains(last.Content, "web_search") || !strings.Contains(last.Content, "calculator") {
		t.Errorf("coaching = %q", last.Content)
	}
}

func TestReactInvalidToolInput(t *testing.T) {
	rt, _, emitter := newTestRuntime([]string{
		`{"thought": "add", "action": "calculator", "actionInput": {"operation":"add","a":2}}`,
		`{"finalAnswer": "ok"}`,
	}, tool.NewRegistry(tool.NewCalculator()))

	out := rt.ExecuteTask(context.Background(), ExecuteRequest{Task: task()})
	if out.Kind != OutcomeDone {
		t.Fatalf("outcome = %+v", out)
	}
	if !hasStatus(emitter.statuses(), models.AgentInvalidToolInput) {
		t.Errorf("statuses = %v", emitter.statuses())
	}
}

func TestReactToolError(t *testing.T) {
	rt, _, emitter := newTestRuntime([]string{
		`{"thought": "divide", "action": "calculator", "actionInput": {"operation":"divide","a":1,"b":0}}`,
		`{"finalAnswer": "cannot divide by zero"}`,
	}, tool.NewRegistry(tool.NewCalculator()))

	out := rt.ExecuteTask(context.Background(), ExecuteRequest{Task: task()})
	if out.Kind != OutcomeDone {
		t.Fatalf("outcome = %+v", out)
	}
	if !hasStatus(emitter.statuses(), models.AgentToolError) {
		t.Errorf("statuses = %v", emitter.statuses())
	}
}

func TestReactMalformedOutputCoaching(t *testing.T) {
	rt, provider, emitter := newTestRuntime([]string{
		`total nonsense, no JSON here`,
		`{"finalAnswer": "recovered"}`,
	}, nil)

	out := rt.ExecuteTask(context.Background(), ExecuteRequest{Task: task()})
	if out.Kind != OutcomeDone || out.Result != "recovered" {
		t.Fatalf("outcome = %+v", out)
	}
	if !hasStatus(emitter.statuses(), models.AgentWeirdLLMOutput) {
		t.Errorf("statuses = %v", emitter.statuses())
	}
	if out.Stats.LLMUsage.ParseErrors != 1 {
		t.Errorf("parse errors = %d", out.Stats.LLMUsage.ParseErrors)
	}

	secondCall := provider.calls[1]
	last := secondCall[len(secondCall)-1]
	if last.Role != llm.RoleUser || !strings.Contains(last.Content, "JSON") {
		t.Errorf("coaching = %+v", last)
	}
}

func TestReactSelfQuestion(t *testing.T) {
	rt, provider, emitter := newTestRuntime([]string{
		`{"thought": "am I sure?", "action": "self_question", "actionInput": {"question": "what is the base case?"}}`,
		`{"finalAnswer": "the base case is n=0"}`,
	}, nil)

	out := rt.ExecuteTask(context.Background(), ExecuteRequest{Task: task()})
	if out.Kind != OutcomeDone {
		t.Fatalf("outcome = %+v", out)
	}
	if !hasStatus(emitter.statuses(), models.AgentSelfQuestion) {
		t.Errorf("statuses = %v", emitter.statuses())
	}

	secondCall := provider.calls[1]
	last := secondCall[len(secondCall)-1]
	if !strings.Contains(last.Content, "answer yourself") {
		t.Errorf("coaching = %q", last.Content)
	}
}

func TestReactBlockTask(t *testing.T) {
	rt, _, emitter := newTestRuntime([]string{
		`{"thought": "this is unsafe", "action": "block_task", "actionInput": {"reason": "credentials requested"}}`,
	}, nil)

	out := rt.ExecuteTask(context.Background(), ExecuteRequest{Task: task()})
	if out.Kind != OutcomeBlocked {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Reason != "credentials requested" {
		t.Errorf("reason = %q", out.Reason)
	}
	if !hasStatus(emitter.statuses(), models.AgentTaskBlocked) {
		t.Errorf("statuses = %v", emitter.statuses())
	}
}

func TestReactMaxIterations(t *testing.T) {
	// The provider only ever observes; the budget runs out.
	rt, provider, emitter := newTestRuntime([]string{
		`{"observation": "still looking", "isFinalAnswerReady": false}`,
	}, nil)

	out := rt.ExecuteTask(context.Background(), ExecuteRequest{Task: task()})
	if out.Kind != OutcomeErrored {
		t.Fatalf("outcome = %+v", out)
	}
	if out.ErrKind != models.ErrKindIterationLimit {
		t.Errorf("err kind = %s", out.ErrKind)
	}
	if !hasStatus(emitter.statuses(), models.AgentMaxIterationsError) {
		t.Errorf("statuses = %v", emitter.statuses())
	}

	// The last-chance prompt was injected before the final iteration.
	lastCall := provider.calls[len(provider.calls)-1]
	found := false
	for _, m := range lastCall {
		if m.Role == llm.RoleUser && strings.Contains(m.Content, "out of reasoning budget") {
			found = true
		}
	}
	if !found {
		t.Error("force-final-answer feedback not injected")
	}
	if out.Stats.Iterations != 5 {
		t.Errorf("iterations = %d, want 5", out.Stats.Iterations)
	}
}

func TestReactProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	a := NewAgent(models.AgentSpec{
		Name: "tester",
		Kind: models.AgentKindReact,
		LLM:  models.LLMConfig{Provider: "openai", Model: "gpt-4o"},
	}, provider, tool.NewRegistry(), nil)
	rt := NewReactRuntime(a, &fakeEmitter{}, openGate{})

	out := rt.ExecuteTask(context.Background(), ExecuteRequest{Task: task()})
	if out.Kind != OutcomeErrored {
		t.Fatalf("outcome = %+v", out)
	}
	if out.ErrKind != models.ErrKindLLMProvider {
		t.Errorf("err kind = %s", out.ErrKind)
	}
	if out.Stats.LLMUsage.CallErrors != 1 {
		t.Errorf("call errors = %d", out.Stats.LLMUsage.CallErrors)
	}
}

func TestAgentSetEnvReachesProvider(t *testing.T) {
	provider := &fakeProvider{}
	a := NewAgent(models.AgentSpec{Name: "tester"}, provider, tool.NewRegistry(), map[string]string{"K": "1"})

	a.SetEnv(map[string]string{"K": "2"})

	if provider.env["K"] != "2" {
		t.Errorf("provider env = %v", provider.env)
	}
	if a.Env()["K"] != "2" {
		t.Errorf("agent env = %v", a.Env())
	}
}
