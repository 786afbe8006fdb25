package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sony/gobreaker"
)

// OpenAIConfig configures the OpenAI-backed provider.
type OpenAIConfig struct {
	Model          string
	APIKey         string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// DefaultOpenAIConfig mirrors the teacher's DefaultConfig tuning.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:          "gpt-4o-mini",
		RequestTimeout: 120 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 1 * time.Second,
	}
}

// OpenAIProvider implements LLMProvider against the OpenAI chat completions
// API with strict JSON-schema structured output, adapted from the
// teacher's internal/ai/client.go callStructured engine: the same
// exponential-backoff retry loop and circuit breaker, narrowed from five
// conversion operations down to this package's single complete() call.
type OpenAIProvider struct {
	client  openai.Client
	config  OpenAIConfig
	breaker *gobreaker.CircuitBreaker
	costs   *CostCalculator
}

// NewOpenAIProvider builds a provider, falling back to OPENAI_API_KEY when
// config.APIKey is empty, exactly as the teacher's NewClient does.
func NewOpenAIProvider(config OpenAIConfig, costs *CostCalculator) (*OpenAIProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("llm: OPENAI_API_KEY not set")
	}
	if config.Model == "" {
		config.Model = DefaultOpenAIConfig().Model
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultOpenAIConfig().RequestTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultOpenAIConfig().MaxRetries
	}
	if config.RetryBaseDelay == 0 {
		config.RetryBaseDelay = DefaultOpenAIConfig().RetryBaseDelay
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{
		client:  client,
		config:  config,
		breaker: NewBreaker("openai:" + config.Model),
		costs:   costs,
	}, nil
}

func (p *OpenAIProvider) Name() string    { return "openai" }
func (p *OpenAIProvider) ModelID() string { return p.config.Model }

// CallStructured issues one schema-constrained completion, retrying
// transient failures with exponential backoff + jitter, through the
// circuit breaker.
func (p *OpenAIProvider) CallStructured(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	return callWithBreaker(p.breaker, func() (*LLMResponse, error) {
		return p.callWithRetry(ctx, req)
	})
}

func (p *OpenAIProvider) callWithRetry(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
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
		resp, err := p.client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(req.SystemPrompt),
				openai.UserMessage(req.UserContent),
			},
			MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
					JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   "institution_record",
						Schema: req.Schema,
						Strict: openai.Bool(true),
					},
				},
			},
		})
		cancel()

		if err != nil {
			classified := classifyOpenAIError(err)
			lastErr = classified
			if !classified.ShouldRetry {
				return nil, classified
			}
			slog.Warn("llm.openai_retry", "attempt", attempt+1, "error", err)
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = ErrAIInvalidOutput
			continue
		}
		choice := resp.Choices[0]
		msg := choice.Message

		if msg.Refusal != "" {
			return nil, fmt.Errorf("%w: %s", ErrAIRefused, msg.Refusal)
		}
		if choice.FinishReason == "content_filter" {
			return nil, ErrAIContentFiltered
		}

		out := &LLMResponse{
			Content:      msg.Content,
			Model:        model,
			FinishReason: choice.FinishReason,
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		}
		if p.costs != nil {
			out.CostUSD = p.costs.CalculateCost(model, int64(out.InputTokens), int64(out.OutputTokens)).TotalCost
		}
		if choice.FinishReason == "length" {
			lastErr = ErrAITruncated
			continue
		}
		return out, nil
	}
	return nil, lastErr
}

// retryDelay is exponential backoff with jitter, capped at 30s — the same
// shape as the teacher's retryDelayFor/jitterDuration.
func retryDelay(attempt int, base time.Duration) time.Duration {
	d := base << uint(attempt-1)
	cap := 30 * time.Second
	if d > cap {
		d = cap
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d/2 + jitter
}

func classifyOpenAIError(err error) *ClassifiedError {
	var apiErr *openai.Error
	statusCode := 0
	if errors.As(err, &apiErr) {
		statusCode = apiErr.StatusCode
	}
	return ClassifyError(statusCode, err)
}
