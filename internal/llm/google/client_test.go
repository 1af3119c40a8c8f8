package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"underwriter-backend/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.SetBaseURL(server.URL)
	return client
}

func TestCompleteParsesCandidatesAndUsage(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"text": "FINAL_AMOUNT:"},
					{"text": "1234.56"},
				}}},
			},
			"usageMetadata": map[string]any{
				"promptTokenCount":     700,
				"candidatesTokenCount": 140,
			},
		})
	})

	got, err := client.Complete(context.Background(), llm.Request{
		Operation: "average_daily_balance",
		System:    "You are an underwriter.",
		Prompt:    "Compute the balance.",
		MaxTokens: 1024,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if got.Text != "FINAL_AMOUNT:1234.56" {
		t.Fatalf("expected joined parts, got %q", got.Text)
	}
	if got.Usage.Total() != 840 {
		t.Fatalf("expected 840 total tokens, got %d", got.Usage.Total())
	}
	if !strings.Contains(gotPath, llm.DefaultGoogleModel) {
		t.Fatalf("expected default model in path, got %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected API key query param, got %q", gotKey)
	}
	if gotBody.GenerationConfig.Temperature != 0 {
		t.Fatalf("expected temperature 0, got %v", gotBody.GenerationConfig.Temperature)
	}
	if gotBody.SystemInstruction == nil {
		t.Fatalf("expected system instruction in request body")
	}
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    400,
				"message": "API key not valid",
				"status":  "INVALID_ARGUMENT",
			},
		})
	})

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "hi"})
	if err == nil || !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("expected API error surfaced, got %v", err)
	}
}

func TestCompleteRejectsEmptyCandidates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	})

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "hi"})
	if err == nil || !strings.Contains(err.Error(), "candidates") {
		t.Fatalf("expected missing-candidates error, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", ""); err == nil {
		t.Fatalf("expected error for missing API key")
	}
}

func TestNewClientDefaultsModel(t *testing.T) {
	client, err := NewClient("test-key", "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.Model() != llm.DefaultGoogleModel {
		t.Fatalf("expected default model, got %q", client.Model())
	}
}
