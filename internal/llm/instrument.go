package llm

import (
	"context"

	"underwriter-backend/internal/shared/metrics"
)

type instrumentedClient struct {
	base    Client
	limiter *RateLimiter
	tracker *TokenTracker
}

// Instrument wraps a client with provider rate limiting, token tracking, and
// request metrics. A nil limiter or tracker disables that concern.
func Instrument(base Client, limiter *RateLimiter, tracker *TokenTracker) Client {
	if base == nil {
		return nil
	}
	return &instrumentedClient{base: base, limiter: limiter, tracker: tracker}
}

func (c *instrumentedClient) Provider() string { return c.base.Provider() }

func (c *instrumentedClient) Model() string { return c.base.Model() }

func (c *instrumentedClient) Complete(ctx context.Context, req Request) (Completion, error) {
	estimated := EstimateTokens(req.System) + EstimateTokens(req.Prompt) + req.MaxTokens
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, estimated); err != nil {
			return Completion{}, err
		}
	}

	metrics.IncLLMRequest()
	resp, err := c.base.Complete(ctx, req)
	if err != nil {
		return Completion{}, err
	}

	usage := resp.Usage
	if usage.Total() == 0 {
		// Providers that omit usage get the character-based estimate.
		usage = Usage{
			InputTokens:  EstimateTokens(req.System) + EstimateTokens(req.Prompt),
			OutputTokens: EstimateTokens(resp.Text),
		}
	}
	if c.tracker != nil {
		c.tracker.Track(usage, c.base.Provider(), c.base.Model(), req.Operation)
	}
	metrics.AddLLMTokens(usage.Total())

	return resp, nil
}

var _ Client = (*instrumentedClient)(nil)
