package llm

import (
	"sync"
	"time"

	"underwriter-backend/internal/shared/telemetry"
)

// TokenUsage records token consumption for one API call.
type TokenUsage struct {
	Timestamp    time.Time
	InputTokens  int
	OutputTokens int
	Provider     string
	Model        string
	Operation    string
}

// TokenTracker accumulates per-call token usage and running totals.
// Safe for concurrent use.
type TokenTracker struct {
	mu          sync.Mutex
	history     []TokenUsage
	totalInput  int
	totalOutput int
}

// NewTokenTracker constructs an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// EstimateTokens approximates the token count of a text. Providers report
// exact usage in responses; the estimate feeds the rate limiter up front.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Track records usage for one call and logs the running total.
func (t *TokenTracker) Track(usage Usage, provider, model, operation string) {
	t.mu.Lock()
	t.history = append(t.history, TokenUsage{
		Timestamp:    time.Now().UTC(),
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		Provider:     provider,
		Model:        model,
		Operation:    operation,
	})
	t.totalInput += usage.InputTokens
	t.totalOutput += usage.OutputTokens
	runningTotal := t.totalInput + t.totalOutput
	t.mu.Unlock()

	telemetry.Info("llm.usage", map[string]any{
		"provider":      provider,
		"model":         model,
		"operation":     operation,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
		"call_tokens":   usage.Total(),
		"running_total": runningTotal,
	})
}

// RunningTotal returns combined input and output tokens so far.
func (t *TokenTracker) RunningTotal() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalInput + t.totalOutput
}

// TotalUsage returns totals, optionally filtered by model ("" for all).
func (t *TokenTracker) TotalUsage(model string) Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	if model == "" {
		return Usage{InputTokens: t.totalInput, OutputTokens: t.totalOutput}
	}
	var out Usage
	for _, u := range t.history {
		if u.Model == model {
			out.InputTokens += u.InputTokens
			out.OutputTokens += u.OutputTokens
		}
	}
	return out
}

// History returns a copy of recorded usage entries.
func (t *TokenTracker) History() []TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TokenUsage, len(t.history))
	copy(out, t.history)
	return out
}
