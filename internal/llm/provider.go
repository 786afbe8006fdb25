// Package llm implements the LLM capability boundary of spec.md §6.3 and
// everything a caller needs on its own side of that boundary: retries with
// backoff, a circuit breaker, cost accounting, a daily budget manager,
// provider fallback, and pre-prompt sanitization of untrusted crawled
// content (prompt-injection and PII scrubbing). It is grounded on the
// teacher's internal/ai package, refocused from spreadsheet-conversion
// operations onto a single structured-extraction call.
package llm

import "context"

// LLMRequest is the input to the capability operation:
// complete(system_prompt, user_prompt, model_id, max_tokens, temperature).
type LLMRequest struct {
	SystemPrompt string
	UserContent  string
	Schema       map[string]interface{} // JSON schema the response must satisfy
	Model        string
	MaxTokens    int
	Temperature  float64
}

// LLMResponse is the capability's output, extended with call-accounting
// fields. internal/extract does not copy a response into its Outcome, so
// these fields are not recorded on any benchmark span.
type LLMResponse struct {
	Content          string
	Model            string
	FinishReason     string
	Refusal          string
	InputTokens      int
	OutputTokens     int
	CostUSD          float64
	Attempts         int
	FallbackUsed     bool
}

// LLMProvider is the narrow capability interface of spec.md §6.3.
type LLMProvider interface {
	CallStructured(ctx context.Context, req LLMRequest) (*LLMResponse, error)
	Name() string
	ModelID() string
}
