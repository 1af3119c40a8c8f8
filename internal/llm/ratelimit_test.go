package llm

import (
	"context"
	"testing"
	"time"
)

func newTestLimiter(cfg RateLimitConfig) (*RateLimiter, *[]time.Duration, *time.Time) {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	current := &now
	var slept []time.Duration
	l := NewRateLimiter(cfg)
	l.windowStart = now
	l.now = func() time.Time { return *current }
	l.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		*current = current.Add(d)
		return nil
	}
	return l, &slept, current
}

func TestRateLimiterMinInterval(t *testing.T) {
	l, slept, _ := newTestLimiter(RateLimitConfig{
		RequestsPerMinute:  100,
		TokensPerMinute:    100000,
		MinRequestInterval: 100 * time.Millisecond,
	})

	if err := l.Wait(context.Background(), 10); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := l.Wait(context.Background(), 10); err != nil {
		t.Fatalf("second wait: %v", err)
	}

	if len(*slept) != 1 {
		t.Fatalf("expected one sleep for min interval, got %d", len(*slept))
	}
	if (*slept)[0] > 100*time.Millisecond || (*slept)[0] <= 0 {
		t.Fatalf("unexpected sleep duration %v", (*slept)[0])
	}
}

func TestRateLimiterRequestBudget(t *testing.T) {
	l, slept, _ := newTestLimiter(RateLimitConfig{
		RequestsPerMinute: 2,
		TokensPerMinute:   100000,
	})

	for i := 0; i < 2; i++ {
		if err := l.Wait(context.Background(), 0); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if err := l.Wait(context.Background(), 0); err != nil {
		t.Fatalf("third wait: %v", err)
	}

	var total time.Duration
	for _, d := range *slept {
		total += d
	}
	if total < 50*time.Second {
		t.Fatalf("expected window-length sleep after request budget exhausted, slept %v", total)
	}
	if l.requestCount != 1 {
		t.Fatalf("expected counter reset after window, got %d", l.requestCount)
	}
}

func TestRateLimiterTokenBudget(t *testing.T) {
	l, slept, _ := newTestLimiter(RateLimitConfig{
		RequestsPerMinute: 100,
		TokensPerMinute:   1000,
	})

	if err := l.Wait(context.Background(), 900); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := l.Wait(context.Background(), 500); err != nil {
		t.Fatalf("second wait: %v", err)
	}

	if len(*slept) == 0 {
		t.Fatalf("expected sleep when token budget exceeded")
	}
	if l.tokenCount != 500 {
		t.Fatalf("expected token counter 500 after reset, got %d", l.tokenCount)
	}
}

func TestRateLimiterCancelledContext(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute:  1,
		TokensPerMinute:    1000,
		MinRequestInterval: time.Millisecond,
	})

	if err := l.Wait(context.Background(), 0); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, 0); err == nil {
		t.Fatalf("expected context error when budget exhausted and ctx cancelled")
	}
}
