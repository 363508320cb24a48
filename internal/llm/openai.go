package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ShayCichocki/teamflow/pkg/models"
)

// EnvOpenAIAPIKey is the credential key read by the OpenAI-compatible provider.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// EnvOpenAIBaseURL overrides the endpoint base URL via the environment.
const EnvOpenAIBaseURL = "OPENAI_BASE_URL"

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider drives any OpenAI-compatible chat-completions endpoint over
// plain HTTP.
type OpenAIProvider struct {
	cfg        models.LLMConfig
	env        *envStore
	tracker    *TokenTracker
	httpClient *http.Client
}

// NewOpenAIProvider creates a provider for the given config and credential
// environment.
func NewOpenAIProvider(cfg models.LLMConfig, env map[string]string) *OpenAIProvider {
	return &OpenAIProvider{
		cfg:        cfg,
		env:        newEnvStore(env),
		tracker:    NewTokenTracker(),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// SetEnv atomically replaces the credential environment.
func (p *OpenAIProvider) SetEnv(env map[string]string) {
	p.env.replace(env)
}

// Tracker returns the provider's token tracker.
func (p *OpenAIProvider) Tracker() *TokenTracker {
	return p.tracker
}

// openaiRequest is the chat-completions request envelope.
type openaiRequest struct {
	Model            string          `json:"model"`
	Temperature      float64         `json:"temperature,omitempty"`
	TopP             float64         `json:"top_p,omitempty"`
	FrequencyPenalty float64         `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64         `json:"presence_penalty,omitempty"`
	N                int             `json:"n,omitempty"`
	Stream           bool            `json:"stream"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	Messages         []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openaiResponse is the chat-completions response envelope.
type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (p *OpenAIProvider) baseURL() string {
	if u := p.env.get(EnvOpenAIBaseURL); u != "" {
		return strings.TrimRight(u, "/")
	}
	if p.cfg.BaseURL != "" {
		return strings.TrimRight(p.cfg.BaseURL, "/")
	}
	return defaultOpenAIBaseURL
}

// ChatCompletion posts the message history to /chat/completions and returns
// the first choice.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, messages []Message, cfg models.LLMConfig) (*Result, error) {
	return callWithRetry(ctx, func() (*Result, error) {
		return p.call(ctx, messages, cfg)
	})
}

func (p *OpenAIProvider) call(ctx context.Context, messages []Message, cfg models.LLMConfig) (*Result, error) {
	reqBody := openaiRequest{
		Model:            cfg.Model,
		Temperature:      cfg.Temperature,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
		N:                1,
		Stream:           false,
		MaxTokens:        cfg.MaxTokens,
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, openaiMessage(m))
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL()+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if key := p.env.get(EnvOpenAIAPIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", StatusCode: resp.StatusCode, Err: err}
	}

	var parsed openaiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &ProviderError{
				Provider:   "openai",
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(body)),
				Err:        fmt.Errorf("http %d", resp.StatusCode),
			}
		}
		return nil, &ProviderError{Provider: "openai", Err: fmt.Errorf("malformed response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		msg := ""
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &ProviderError{
			Provider:   "openai",
			StatusCode: resp.StatusCode,
			Message:    msg,
			Err:        fmt.Errorf("http %d: %s", resp.StatusCode, msg),
		}
	}

	if len(parsed.Choices) == 0 {
		return nil, &ProviderError{Provider: "openai", Err: fmt.Errorf("response carried no choices")}
	}

	p.tracker.Add(parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens)

	return &Result{
		Content:      parsed.Choices[0].Message.Content,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		Model:        parsed.Model,
	}, nil
}
