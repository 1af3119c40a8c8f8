package anthropic

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"underwriter-backend/internal/llm"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// Client implements llm.Client using the Anthropic Messages API.
type Client struct {
	apiKey string
	model  string
	client *resty.Client
}

// NewClient constructs a new Anthropic client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = llm.DefaultAnthropicModel
	}

	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("LLM_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}

	client := resty.New()
	client.SetBaseURL(defaultBaseURL)
	client.SetTimeout(timeout)
	client.SetHeader("x-api-key", apiKey)
	client.SetHeader("anthropic-version", apiVersion)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		apiKey: apiKey,
		model:  model,
		client: client,
	}, nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(url string) {
	c.client.SetBaseURL(url)
}

// Provider returns the provider name.
func (c *Client) Provider() string { return llm.ProviderAnthropic }

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a messages request at temperature zero.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.AnthropicMaxTokens
	}

	body := messagesRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: 0,
		System:      req.System,
		Messages: []chatMessage{
			{Role: "user", Content: req.Prompt},
		},
	}

	var parsed messagesResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&parsed).
		SetError(&parsed).
		Post("/v1/messages")
	if err != nil {
		return llm.Completion{}, fmt.Errorf("anthropic request: %w", err)
	}
	if parsed.Error != nil {
		return llm.Completion{}, fmt.Errorf("anthropic error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if resp.IsError() {
		return llm.Completion{}, fmt.Errorf("anthropic http status %d", resp.StatusCode())
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(text.String())
	if content == "" {
		return llm.Completion{}, fmt.Errorf("anthropic response empty content")
	}

	out := llm.Completion{Text: content}
	if parsed.Usage != nil {
		out.Usage = llm.Usage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
		}
	}
	return out, nil
}

var _ llm.Client = (*Client)(nil)
