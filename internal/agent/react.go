package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/teamflow/internal/llm"
	"github.com/ShayCichocki/teamflow/internal/tool"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

// DefaultMaxIterations bounds the reasoning loop when the agent spec does
// not set a budget.
const DefaultMaxIterations = 10

// ReactRuntime drives one task through the bounded think/act/observe loop.
// A runtime instance is created per dispatch and is not reused.
type ReactRuntime struct {
	agent   *Agent
	emitter Emitter
	gate    Gate

	// LLMTimeout bounds each provider call. Zero means no per-call deadline.
	LLMTimeout time.Duration
	// ToolTimeout bounds each tool invocation. Zero means no deadline.
	ToolTimeout time.Duration
}

// NewReactRuntime creates a runtime for the agent.
func NewReactRuntime(a *Agent, emitter Emitter, gate Gate) *ReactRuntime {
	return &ReactRuntime{agent: a, emitter: emitter, gate: gate}
}

// ExecuteRequest carries the task and ambient context into a runtime.
type ExecuteRequest struct {
	Task            models.Task
	WorkflowContext string
}

// ExecuteTask runs the reasoning loop until a final answer, a block, an
// error, or cancellation. Agent status updates are emitted at every decision
// boundary.
func (rt *ReactRuntime) ExecuteTask(ctx context.Context, req ExecuteRequest) Outcome {
	spec := rt.agent.Spec
	maxIterations := spec.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	stats := models.TaskStats{StartedAt: time.Now()}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(spec, rt.agent.Tools())},
		{Role: llm.RoleUser, Content: initialUserMessage(req.Task, req.WorkflowContext)},
	}

	forceFinalInjected := false

	for i := 1; i <= maxIterations; i++ {
		// Suspension point: observe pause/stop before each iteration.
		if err := rt.gate.Wait(ctx); err != nil || ctx.Err() != nil {
			return Outcome{Kind: OutcomeCancelled, Stats: stats}
		}

		stats.Iterations = i
		meta := thinkingMetadata(i, messages)
		rt.emit(req.Task.ID, models.AgentThinking, fmt.Sprintf("iteration %d/%d", i, maxIterations), meta)

		interrupt := rt.gate.InterruptCh()
		raw, result, err := rt.chat(ctx, messages)

		// The interrupt channel captured before the call stays closed once a
		// pause has fired, even if Resume already replaced it on the gate.
		interrupted := false
		select {
		case <-interrupt:
			interrupted = true
		default:
		}

		if (interrupted || rt.gate.Paused()) && !rt.gate.Stopped() {
			// A pause interrupted the call. Hold at the boundary, then redo
			// this iteration so the post-resume THINKING carries metadata
			// identical to the pre-pause one.
			if werr := rt.gate.Wait(ctx); werr != nil {
				return Outcome{Kind: OutcomeCancelled, Stats: stats}
			}
			i--
			continue
		}
		if ctx.Err() != nil || rt.gate.Stopped() {
			return Outcome{Kind: OutcomeCancelled, Stats: stats}
		}
		if err != nil {
			stats.LLMUsage.CallErrors++
			stats.LLMUsage.Calls++
			return Outcome{
				Kind:    OutcomeErrored,
				ErrKind: models.ErrKindLLMProvider,
				Err:     fmt.Errorf("llm call failed on iteration %d: %w", i, err),
				Stats:   stats,
			}
		}

		stats.LLMUsage.Calls++
		in, out := result.InputTokens, result.OutputTokens
		if in == 0 && out == 0 {
			in = llm.EstimateTokens(spec.LLM.Model, joinContents(messages))
			out = llm.EstimateTokens(spec.LLM.Model, raw)
		}
		stats.LLMUsage.InputTokens += in
		stats.LLMUsage.OutputTokens += out

		parsed, perr := Parse(raw)
		if perr != nil {
			stats.LLMUsage.ParseErrors++
			rt.emit(req.Task.ID, models.AgentWeirdLLMOutput, "unparseable output", map[string]any{
				"iteration": i,
				"output":    raw,
			})
			messages = append(messages,
				llm.Message{Role: llm.RoleAssistant, Content: raw},
				llm.Message{Role: llm.RoleUser, Content: invalidJSONFeedback()},
			)
			messages = rt.maybeForceFinal(messages, i, maxIterations, &forceFinalInjected)
			continue
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: raw})

		switch parsed.Kind {
		case KindFinalAnswer:
			rt.emit(req.Task.ID, models.AgentFinalAnswer, "final answer produced", map[string]any{
				"iteration":   i,
				"finalAnswer": parsed.FinalAnswer,
			})
			rt.emit(req.Task.ID, models.AgentTaskCompleted, "task completed", map[string]any{
				"iteration": i,
				"usage":     stats.LLMUsage,
			})
			stats.CompletedAt = time.Now()
			stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
			return Outcome{Kind: OutcomeDone, Result: parsed.FinalAnswer, Stats: stats}

		case KindObservation:
			rt.emit(req.Task.ID, models.AgentObserving, "observation", map[string]any{
				"iteration":          i,
				"observation":        parsed.Observation,
				"isFinalAnswerReady": parsed.IsFinalAnswerReady,
			})
			if parsed.IsFinalAnswerReady {
				rt.emit(req.Task.ID, models.AgentThinkingEnd, "requesting final answer", map[string]any{"iteration": i})
				messages = append(messages, llm.Message{Role: llm.RoleUser, Content: finalAnswerRequest()})
			}

		case KindThought:
			switch parsed.Action {
			case ActionSelfQuestion:
				question := decodeSelfQuestion(parsed.ActionInput, parsed.Thought)
				rt.emit(req.Task.ID, models.AgentSelfQuestion, "self question", map[string]any{
					"iteration": i,
					"question":  question,
				})
				messages = append(messages, llm.Message{Role: llm.RoleUser, Content: selfQuestionFeedback(question)})

			case ActionBlockTask:
				reason := decodeBlockReason(parsed.ActionInput, parsed.Thought)
				rt.emit(req.Task.ID, models.AgentTaskBlocked, "task blocked by agent", map[string]any{
					"iteration": i,
					"reason":    reason,
				})
				stats.CompletedAt = time.Now()
				stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
				return Outcome{Kind: OutcomeBlocked, Reason: reason, Stats: stats}

			default:
				feedback, cancelled := rt.runTool(ctx, req.Task.ID, i, parsed)
				if cancelled {
					return Outcome{Kind: OutcomeCancelled, Stats: stats}
				}
				messages = append(messages, llm.Message{Role: llm.RoleUser, Content: feedback})
			}
		}

		messages = rt.maybeForceFinal(messages, i, maxIterations, &forceFinalInjected)
	}

	rt.emit(req.Task.ID, models.AgentMaxIterationsError, "iteration budget exhausted", map[string]any{
		"maxIterations": maxIterations,
	})
	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
	return Outcome{
		Kind:    OutcomeErrored,
		ErrKind: models.ErrKindIterationLimit,
		Err:     fmt.Errorf("no final answer after %d iterations", maxIterations),
		Stats:   stats,
	}
}

// maybeForceFinal injects the last-chance prompt when the next iteration is
// the final one.
func (rt *ReactRuntime) maybeForceFinal(messages []llm.Message, i, maxIterations int, injected *bool) []llm.Message {
	if i == maxIterations-1 && !*injected {
		*injected = true
		return append(messages, llm.Message{Role: llm.RoleUser, Content: forceFinalAnswerFeedback()})
	}
	return messages
}

// chat performs one provider call, aborting it if a pause or stop arrives
// while the call is in flight.
func (rt *ReactRuntime) chat(ctx context.Context, messages []llm.Message) (string, *llm.Result, error) {
	callCtx := ctx
	var cancel context.CancelFunc
	if rt.LLMTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, rt.LLMTimeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-rt.gate.InterruptCh():
			cancel()
		case <-done:
		}
	}()

	result, err := rt.agent.Provider().ChatCompletion(callCtx, messages, rt.agent.Spec.LLM)
	close(done)
	if err != nil {
		return "", nil, err
	}
	return result.Content, result, nil
}

// runTool executes one tool invocation, translating every failure mode into
// coaching feedback. Returns cancelled=true when a stop aborted the call.
func (rt *ReactRuntime) runTool(ctx context.Context, taskID string, iteration int, parsed *Parsed) (feedback string, cancelled bool) {
	// Suspension point: observe pause/stop before the tool call.
	if err := rt.gate.Wait(ctx); err != nil || ctx.Err() != nil {
		return "", true
	}

	name := parsed.Action
	input := parsed.ActionInput
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}

	rt.emit(taskID, models.AgentUsingTool, "invoking "+name, map[string]any{
		"iteration": iteration,
		"tool":      name,
		"input":     string(input),
	})

	t, ok := rt.agent.Tools().Get(name)
	if !ok {
		rt.emit(taskID, models.AgentToolDoesNotExist, name+" is not bound", map[string]any{
			"iteration": iteration,
			"tool":      name,
		})
		return toolNotExistFeedback(name, rt.agent.Tools().Names()), false
	}

	if err := tool.ValidateInput(t.Schema(), input); err != nil {
		rt.emit(taskID, models.AgentInvalidToolInput, "input rejected by schema", map[string]any{
			"iteration": iteration,
			"tool":      name,
			"error":     err.Error(),
		})
		return invalidToolInputFeedback(name, err), false
	}

	toolCtx := ctx
	var cancel context.CancelFunc
	if rt.ToolTimeout > 0 {
		toolCtx, cancel = context.WithTimeout(ctx, rt.ToolTimeout)
		defer cancel()
	}

	output, err := t.Invoke(toolCtx, input)
	if ctx.Err() != nil || rt.gate.Stopped() {
		return "", true
	}
	if err != nil {
		rt.emit(taskID, models.AgentToolError, name+" failed", map[string]any{
			"iteration": iteration,
			"tool":      name,
			"error":     err.Error(),
		})
		return toolErrorFeedback(name, err), false
	}

	rt.emit(taskID, models.AgentUsingToolEnd, name+" returned", map[string]any{
		"iteration": iteration,
		"tool":      name,
		"output":    output,
	})
	return toolResultFeedback(output), false
}

func (rt *ReactRuntime) emit(taskID string, status models.AgentStatus, description string, metadata map[string]any) {
	rt.emitter.AgentStatus(rt.agent.Spec.Name, taskID, status, description, metadata)
}

// thinkingMetadata snapshots the loop state carried on THINKING entries.
// The snapshot must compare deeply equal across a pause/resume of the same
// iteration.
func thinkingMetadata(iteration int, messages []llm.Message) map[string]any {
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	return map[string]any{
		"iteration": iteration,
		"messages":  snapshot,
	}
}

func joinContents(messages []llm.Message) string {
	var total string
	for _, m := range messages {
		total += m.Content
	}
	return total
}

func decodeSelfQuestion(input json.RawMessage, fallback string) string {
	var payload struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(input, &payload); err == nil && payload.Question != "" {
		return payload.Question
	}
	var s string
	if err := json.Unmarshal(input, &s); err == nil && s != "" {
		return s
	}
	return fallback
}

func decodeBlockReason(input json.RawMessage, fallback string) string {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(input, &payload); err == nil && payload.Reason != "" {
		return payload.Reason
	}
	if fallback != "" {
		return fallback
	}
	return "blocked by agent"
}
