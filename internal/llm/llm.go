package llm

import (
	"context"
	"strings"
)

// Supported provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
)

// Default model per provider.
const (
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
	DefaultGoogleModel    = "gemini-pro"
	DefaultOpenAIModel    = "gpt-4-turbo-preview"
)

// Response token ceilings per provider.
const (
	AnthropicMaxTokens = 4096
	GoogleMaxTokens    = 2048
	OpenAIMaxTokens    = 4096
)

// Total context limits (prompt + response) per provider.
const (
	AnthropicContextLimit = 200000
	GoogleContextLimit    = 32768
	OpenAIContextLimit    = 128000
)

// Request captures one completion call against a provider.
type Request struct {
	// Operation names the pipeline step issuing the call, for usage
	// attribution (e.g. "nsf_check", "statement_periods").
	Operation string
	System    string
	Prompt    string
	MaxTokens int
}

// Usage reports token consumption for a single call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns combined input and output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Completion is a provider response.
type Completion struct {
	Text  string
	Usage Usage
}

// Client abstracts LLM providers for statement analysis.
type Client interface {
	Provider() string
	Model() string
	Complete(ctx context.Context, req Request) (Completion, error)
}

// DefaultModel returns the default model for a provider name.
func DefaultModel(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderGoogle:
		return DefaultGoogleModel
	default:
		return DefaultAnthropicModel
	}
}

// MaxTokens returns the response token ceiling for a provider name.
func MaxTokens(provider string) int {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return OpenAIMaxTokens
	case ProviderGoogle:
		return GoogleMaxTokens
	default:
		return AnthropicMaxTokens
	}
}

// ContextLimit returns the total context limit for a provider name.
func ContextLimit(provider string) int {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return OpenAIContextLimit
	case ProviderGoogle:
		return GoogleContextLimit
	default:
		return AnthropicContextLimit
	}
}
