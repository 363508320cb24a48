package llm

import (
	"context"
	"errors"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/ShayCichocki/teamflow/pkg/models"
)

// EnvAnthropicAPIKey is the credential key read by the Anthropic provider.
const EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"

// AnthropicProvider drives the Anthropic Messages API, either directly or
// through AWS Bedrock. The underlying client is rebuilt whenever the
// credential environment changes, so SetEnv is visible to the next call.
type AnthropicProvider struct {
	cfg     models.LLMConfig
	env     *envStore
	tracker *TokenTracker

	mu        sync.Mutex
	client    *anthropic.Client
	clientKey string
}

// NewAnthropicProvider creates a provider for the given config and
// credential environment.
func NewAnthropicProvider(cfg models.LLMConfig, env map[string]string) *AnthropicProvider {
	return &AnthropicProvider{
		cfg:     cfg,
		env:     newEnvStore(env),
		tracker: NewTokenTracker(),
	}
}

// SetEnv atomically replaces the credential environment. The next call reads
// the new key.
func (p *AnthropicProvider) SetEnv(env map[string]string) {
	p.env.replace(env)
}

// Tracker returns the provider's token tracker.
func (p *AnthropicProvider) Tracker() *TokenTracker {
	return p.tracker
}

// clientFor returns a client bound to the current API key, rebuilding it if
// the key changed since the last call.
func (p *AnthropicProvider) clientFor(ctx context.Context, apiKey string) (*anthropic.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := apiKey
	if p.cfg.UseBedrock {
		key = "bedrock:" + p.cfg.AWSRegion + ":" + p.cfg.AWSProfile
	}
	if p.client != nil && p.clientKey == key {
		return p.client, nil
	}

	var opts []option.RequestOption
	if p.cfg.UseBedrock {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if p.cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(p.cfg.AWSRegion))
		}
		if p.cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(p.cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		if apiKey == "" {
			return nil, &ProviderError{Provider: "anthropic", Err: errors.New("no API key configured")}
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	client := anthropic.NewClient(opts...)
	p.client = &client
	p.clientKey = key
	return p.client, nil
}

// ChatCompletion sends the message history and returns the first text block
// of the response.
func (p *AnthropicProvider) ChatCompletion(ctx context.Context, messages []Message, cfg models.LLMConfig) (*Result, error) {
	return callWithRetry(ctx, func() (*Result, error) {
		return p.call(ctx, messages, cfg)
	})
}

func (p *AnthropicProvider) call(ctx context.Context, messages []Message, cfg models.LLMConfig) (*Result, error) {
	client, err := p.clientFor(ctx, p.env.get(EnvAnthropicAPIKey))
	if err != nil {
		return nil, err
	}

	model := anthropic.Model(cfg.Model)
	if cfg.UseBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
	}
	if cfg.Temperature != 0 {
		params.Temperature = anthropic.Float(cfg.Temperature)
	}
	if cfg.TopP != 0 {
		params.TopP = anthropic.Float(cfg.TopP)
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			return nil, &ProviderError{
				Provider:   "anthropic",
				StatusCode: apierr.StatusCode,
				Message:    apierr.Error(),
				Err:        err,
			}
		}
		return nil, &ProviderError{Provider: "anthropic", Err: err}
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	p.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	return &Result{
		Content:      content,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Model:        string(resp.Model),
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// cross-region inference profile format: us.anthropic.{model}-v1:0.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if translated, ok := bedrockModels[model]; ok {
		return anthropic.Model(translated)
	}
	return model
}
