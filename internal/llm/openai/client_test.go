package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"underwriter-backend/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	client, err := NewClient("test-key", "gpt-4-turbo-preview")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.apiURL = server.URL
	return client, server.Close
}

func TestCompleteParsesContentAndUsage(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Temperature == nil || *req.Temperature != 0 {
			t.Errorf("expected temperature 0")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "NSF_COUNT:2\nNSF_FEES:70.00"}},
			},
			"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 15, "total_tokens": 135},
		})
	})
	defer done()

	resp, err := client.Complete(context.Background(), llm.Request{
		Operation: "nsf_check",
		Prompt:    "analyze",
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Text != "NSF_COUNT:2\nNSF_FEES:70.00" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.InputTokens != 120 || resp.Usage.OutputTokens != 15 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit_error"},
		})
	})
	defer done()

	if _, err := client.Complete(context.Background(), llm.Request{Prompt: "x"}); err == nil {
		t.Fatalf("expected API error")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	defer done()

	if _, err := client.Complete(context.Background(), llm.Request{Prompt: "x"}); err == nil {
		t.Fatalf("expected error for missing choices")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", "gpt-4-turbo-preview"); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestNewClientDefaultsModel(t *testing.T) {
	client, err := NewClient("key", "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Model() != llm.DefaultOpenAIModel {
		t.Fatalf("expected default model, got %s", client.Model())
	}
}
