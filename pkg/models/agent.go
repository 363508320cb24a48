package models

// AgentKind distinguishes the two agent runtimes.
type AgentKind string

const (
	// AgentKindReact drives a bounded think/act/observe reasoning loop.
	AgentKindReact AgentKind = "react"
	// AgentKindWorkflow drives a declarative sub-workflow to completion.
	AgentKindWorkflow AgentKind = "workflow"
)

// Valid returns true if the kind is a known value.
func (k AgentKind) Valid() bool {
	return k == AgentKindReact || k == AgentKindWorkflow
}

// LLMConfig holds the provider settings an agent uses for chat completions.
type LLMConfig struct {
	// Provider selects the backend ("anthropic", "openai", or a compatible endpoint).
	Provider string `json:"provider" yaml:"provider"`
	// Model is the provider model identifier.
	Model string `json:"model" yaml:"model"`
	// Temperature controls sampling temperature.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature"`
	// TopP controls nucleus sampling.
	TopP float64 `json:"top_p,omitempty" yaml:"top_p"`
	// FrequencyPenalty discourages token repetition (OpenAI-compatible only).
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty" yaml:"frequency_penalty"`
	// PresencePenalty discourages topic repetition (OpenAI-compatible only).
	PresencePenalty float64 `json:"presence_penalty,omitempty" yaml:"presence_penalty"`
	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens"`
	// BaseURL overrides the endpoint for OpenAI-compatible providers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url"`
	// UseBedrock routes Anthropic calls through AWS Bedrock.
	UseBedrock bool `json:"use_bedrock,omitempty" yaml:"use_bedrock"`
	// AWSRegion is the Bedrock region, when UseBedrock is set.
	AWSRegion string `json:"aws_region,omitempty" yaml:"aws_region"`
	// AWSProfile is the optional AWS profile name for Bedrock.
	AWSProfile string `json:"aws_profile,omitempty" yaml:"aws_profile"`
}

// AgentSpec is the declarative configuration of an agent.
type AgentSpec struct {
	// Name uniquely identifies the agent within a team.
	Name string `json:"name" yaml:"name"`
	// Role is the persona the agent plays.
	Role string `json:"role" yaml:"role"`
	// Goal states what the agent optimizes for.
	Goal string `json:"goal" yaml:"goal"`
	// Background supplies extra persona context for prompts.
	Background string `json:"background,omitempty" yaml:"background"`
	// Kind selects the runtime driving this agent.
	Kind AgentKind `json:"kind" yaml:"kind"`
	// MaxIterations bounds the ReAct reasoning loop. Zero means the default.
	MaxIterations int `json:"max_iterations,omitempty" yaml:"max_iterations"`
	// Tools lists the names of tools bound to this agent.
	Tools []string `json:"tools,omitempty" yaml:"tools"`
	// LLM configures the chat-completion backend.
	LLM LLMConfig `json:"llm" yaml:"llm"`
}

// AgentState is the observable snapshot of an agent surfaced to consumers.
type AgentState struct {
	AgentSpec
	// Status is the last observed agent status.
	Status AgentStatus `json:"status"`
}
