package underwriting

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"underwriter-backend/internal/llm"
	"underwriter-backend/internal/shared/telemetry"
)

const llmRetryBaseDelay = 300 * time.Millisecond

// retryingLLM retries a completion once on transient failures.
type retryingLLM struct {
	base  llm.Client
	runID string
}

func newRetryingLLM(base llm.Client, runID string) llm.Client {
	if base == nil {
		return nil
	}
	return retryingLLM{base: base, runID: runID}
}

func (r retryingLLM) Provider() string { return r.base.Provider() }

func (r retryingLLM) Model() string { return r.base.Model() }

func (r retryingLLM) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	resp, err := r.base.Complete(ctx, req)
	if err == nil || !shouldRetryLLM(err) {
		return resp, err
	}

	telemetry.Info("llm.retry", map[string]any{
		"run_id":    r.runID,
		"operation": req.Operation,
		"error":     err.Error(),
	})
	select {
	case <-time.After(llmRetryBaseDelay):
	case <-ctx.Done():
		return llm.Completion{}, ctx.Err()
	}

	return r.base.Complete(ctx, req)
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "http status 5") || strings.Contains(msg, "server_error") || strings.Contains(msg, "overloaded") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
