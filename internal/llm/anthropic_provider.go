package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"
)

// AnthropicConfig configures the Anthropic-backed provider, the second link
// in the default fallback chain (spec.md's DOMAIN STACK).
type AnthropicConfig struct {
	Model          string
	APIKey         string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// DefaultAnthropicConfig mirrors DefaultOpenAIConfig's tuning.
func DefaultAnthropicConfig() AnthropicConfig {
	return AnthropicConfig{
		Model:          "claude-3-5-haiku-latest",
		RequestTimeout: 120 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 1 * time.Second,
	}
}

// AnthropicProvider implements LLMProvider against the Anthropic Messages
// API. Structured output is obtained via forced tool use: the caller's
// JSON schema becomes a single tool's input_schema, tool_choice forces the
// model to call it, and the tool_use block's input is the structured
// response — Anthropic's Messages API has no native JSON-schema response
// format equivalent to OpenAI's.
type AnthropicProvider struct {
	client  anthropic.Client
	config  AnthropicConfig
	breaker *gobreaker.CircuitBreaker
	costs   *CostCalculator
}

const extractToolName = "emit_institution_record"

// NewAnthropicProvider builds a provider, falling back to
// ANTHROPIC_API_KEY when config.APIKey is empty.
func NewAnthropicProvider(config AnthropicConfig, costs *CostCalculator) (*AnthropicProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("llm: ANTHROPIC_API_KEY not set")
	}
	if config.Model == "" {
		config.Model = DefaultAnthropicConfig().Model
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultAnthropicConfig().RequestTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultAnthropicConfig().MaxRetries
	}
	if config.RetryBaseDelay == 0 {
		config.RetryBaseDelay = DefaultAnthropicConfig().RetryBaseDelay
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{
		client:  client,
		config:  config,
		breaker: NewBreaker("anthropic:" + config.Model),
		costs:   costs,
	}, nil
}

func (p *AnthropicProvider) Name() string    { return "anthropic" }
func (p *AnthropicProvider) ModelID() string { return p.config.Model }

func (p *AnthropicProvider) CallStructured(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	return callWithBreaker(p.breaker, func() (*LLMResponse, error) {
		return p.callWithRetry(ctx, req)
	})
}

func (p *AnthropicProvider) callWithRetry(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	tool := anthropic.ToolParam{
		Name:        extractToolName,
		Description: anthropic.String("Emit the extracted institution record matching the given schema."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: req.Schema["properties"],
		},
	}

	var lastErr error
	maxAttempts := p.config.MaxRetries + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(attempt, p.config.RetryBaseDelay)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
		msg, err := p.client.Messages.New(reqCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(req.MaxTokens),
			System: []anthropic.TextBlockParam{
				{Text: req.SystemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserContent)),
			},
			Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
			ToolChoice: anthropic.ToolChoiceUnionParam{
				OfTool: &anthropic.ToolChoiceToolParam{Name: extractToolName},
			},
		})
		cancel()

		if err != nil {
			classified := ClassifyError(anthropicStatusCode(err), err)
			lastErr = classified
			if !classified.ShouldRetry {
				return nil, classified
			}
			continue
		}

		content, ferr := extractToolInput(msg)
		if ferr != nil {
			lastErr = ferr
			continue
		}

		out := &LLMResponse{
			Content:      content,
			Model:        model,
			FinishReason: string(msg.StopReason),
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		}
		if p.costs != nil {
			out.CostUSD = p.costs.CalculateCost(model, int64(out.InputTokens), int64(out.OutputTokens)).TotalCost
		}
		return out, nil
	}
	return nil, lastErr
}

func extractToolInput(msg *anthropic.Message) (string, error) {
	for _, block := range msg.Content {
		if block.Type == "tool_use" && block.Name == extractToolName {
			raw, err := json.Marshal(block.Input)
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrAIInvalidOutput, err)
			}
			return string(raw), nil
		}
	}
	return "", fmt.Errorf("%w: no tool_use block in response", ErrAIInvalidOutput)
}

func anthropicStatusCode(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
