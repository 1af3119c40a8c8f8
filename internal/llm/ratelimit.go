package llm

import (
	"context"
	"strings"
	"sync"
	"time"

	"underwriter-backend/internal/shared/telemetry"
)

// RateLimitConfig bounds request and token throughput against one provider.
type RateLimitConfig struct {
	RequestsPerMinute  int
	TokensPerMinute    int
	MinRequestInterval time.Duration
}

// RateLimitConfigFor returns the published limits for a provider name.
func RateLimitConfigFor(provider string) RateLimitConfig {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return RateLimitConfig{
			RequestsPerMinute:  200,
			TokensPerMinute:    100000,
			MinRequestInterval: 50 * time.Millisecond,
		}
	case ProviderGoogle:
		return RateLimitConfig{
			RequestsPerMinute:  60,
			TokensPerMinute:    60000,
			MinRequestInterval: 100 * time.Millisecond,
		}
	default:
		return RateLimitConfig{
			RequestsPerMinute:  50,
			TokensPerMinute:    80000,
			MinRequestInterval: 100 * time.Millisecond,
		}
	}
}

// RateLimiter enforces per-minute request and token budgets with a minimum
// inter-request gap. Wait blocks until the call may proceed or ctx ends.
type RateLimiter struct {
	cfg RateLimitConfig

	mu           sync.Mutex
	lastRequest  time.Time
	requestCount int
	tokenCount   int
	windowStart  time.Time
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter constructs a limiter for the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:         cfg,
		windowStart: time.Now(),
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Wait blocks until the limiter admits a request with the given token estimate.
func (l *RateLimiter) Wait(ctx context.Context, estimatedTokens int) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.resetIfNeeded()

	if gap := l.cfg.MinRequestInterval - l.now().Sub(l.lastRequest); gap > 0 {
		if err := l.sleepLocked(ctx, gap); err != nil {
			return err
		}
	}

	if l.cfg.RequestsPerMinute > 0 && l.requestCount >= l.cfg.RequestsPerMinute {
		if err := l.waitForWindow(ctx, "request limit reached"); err != nil {
			return err
		}
	}

	if l.cfg.TokensPerMinute > 0 && estimatedTokens > 0 && l.tokenCount+estimatedTokens > l.cfg.TokensPerMinute {
		if err := l.waitForWindow(ctx, "token limit reached"); err != nil {
			return err
		}
	}

	l.requestCount++
	l.tokenCount += estimatedTokens
	l.lastRequest = l.now()
	return nil
}

func (l *RateLimiter) waitForWindow(ctx context.Context, reason string) error {
	remaining := time.Minute - l.now().Sub(l.windowStart)
	if remaining > 0 {
		telemetry.Info("llm.rate_limit", map[string]any{
			"reason":   reason,
			"sleep_ms": remaining.Milliseconds(),
		})
		if err := l.sleepLocked(ctx, remaining); err != nil {
			return err
		}
	}
	l.resetIfNeeded()
	return nil
}

func (l *RateLimiter) resetIfNeeded() {
	if l.now().Sub(l.windowStart) >= time.Minute {
		l.requestCount = 0
		l.tokenCount = 0
		l.windowStart = l.now()
	}
}

// sleepLocked releases the mutex while sleeping so other callers can queue.
func (l *RateLimiter) sleepLocked(ctx context.Context, d time.Duration) error {
	l.mu.Unlock()
	err := l.sleep(ctx, d)
	l.mu.Lock()
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
