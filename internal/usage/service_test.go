package usage

import (
	"context"
	"errors"
	"testing"
)

func TestQuotaEnforcement(t *testing.T) {
	svc := NewService(2)
	ctx := context.Background()

	ok, u, err := svc.CanConsume(ctx, "session-1", 1)
	if err != nil || !ok {
		t.Fatalf("expected fresh session to have quota, ok=%v err=%v", ok, err)
	}
	if u.Limit != 2 || u.Used != 0 {
		t.Fatalf("unexpected initial usage %+v", u)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.Consume(ctx, "session-1", 1); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}

	ok, _, err = svc.CanConsume(ctx, "session-1", 1)
	if err != nil {
		t.Fatalf("CanConsume: %v", err)
	}
	if ok {
		t.Fatalf("expected quota exhausted")
	}

	if _, err := svc.Consume(ctx, "session-1", 1); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
}

func TestQuotaIsPerSession(t *testing.T) {
	svc := NewService(1)
	ctx := context.Background()

	if _, err := svc.Consume(ctx, "session-1", 1); err != nil {
		t.Fatalf("consume: %v", err)
	}

	ok, _, err := svc.CanConsume(ctx, "session-2", 1)
	if err != nil || !ok {
		t.Fatalf("other session should have quota, ok=%v err=%v", ok, err)
	}
}

func TestReset(t *testing.T) {
	svc := NewService(1)
	ctx := context.Background()

	if _, err := svc.Consume(ctx, "session-1", 1); err != nil {
		t.Fatalf("consume: %v", err)
	}
	u, err := svc.Reset(ctx, "session-1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if u.Used != 0 {
		t.Fatalf("expected used 0 after reset, got %d", u.Used)
	}
	if _, err := svc.Consume(ctx, "session-1", 1); err != nil {
		t.Fatalf("consume after reset: %v", err)
	}
}
