// Package agent implements the runtimes that execute tasks on behalf of
// agents: the bounded ReAct reasoning loop and its collaborators.
package agent

import (
	"context"
	"sync"

	"github.com/ShayCichocki/teamflow/internal/llm"
	"github.com/ShayCichocki/teamflow/internal/tool"
	"github.com/ShayCichocki/teamflow/pkg/models"
)

// Emitter receives agent activity boundaries for the workflow log.
type Emitter interface {
	AgentStatus(agentName, taskID string, status models.AgentStatus, description string, metadata map[string]any)
}

// Gate exposes the team's pause/stop protocol to a runtime. Runtimes observe
// the gate at every suspension point.
type Gate interface {
	// Wait blocks while the team is paused. It returns an error when the
	// team is stopping or the context is cancelled.
	Wait(ctx context.Context) error
	// InterruptCh returns a channel closed when a pause or stop is
	// requested; used to abort in-flight provider calls.
	InterruptCh() <-chan struct{}
	// Paused reports whether a pause is currently in effect.
	Paused() bool
	// Stopped reports whether a stop has been requested.
	Stopped() bool
}

// Agent binds a spec to its provider, tools, and credential environment.
// The environment may be replaced atomically at any time; the replacement is
// visible to every subsequent provider call, including calls made during a
// task already in flight.
type Agent struct {
	Spec models.AgentSpec

	mu       sync.RWMutex
	env      map[string]string
	provider llm.Provider
	tools    *tool.Registry
}

// NewAgent constructs a runtime agent.
func NewAgent(spec models.AgentSpec, provider llm.Provider, tools *tool.Registry, env map[string]string) *Agent {
	a := &Agent{
		Spec:     spec,
		provider: provider,
		tools:    tools,
		env:      make(map[string]string, len(env)),
	}
	for k, v := range env {
		a.env[k] = v
	}
	provider.SetEnv(a.env)
	return a
}

// SetEnv atomically replaces the agent's environment and pushes the new
// credentials into the provider.
func (a *Agent) SetEnv(env map[string]string) {
	next := make(map[string]string, len(env))
	for k, v := range env {
		next[k] = v
	}
	a.mu.Lock()
	a.env = next
	provider := a.provider
	a.mu.Unlock()
	provider.SetEnv(next)
}

// Env returns a copy of the current environment.
func (a *Agent) Env() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]string, len(a.env))
	for k, v := range a.env {
		out[k] = v
	}
	return out
}

// Provider returns the chat-completion backend.
func (a *Agent) Provider() llm.Provider {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.provider
}

// Tools returns the agent's bound tool registry.
func (a *Agent) Tools() *tool.Registry {
	return a.tools
}
