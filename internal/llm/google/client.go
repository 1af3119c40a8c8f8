package google

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

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client implements llm.Client using the Gemini generateContent API.
type Client struct {
	apiKey string
	model  string
	client *resty.Client
}

// NewClient constructs a new Gemini client.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = llm.DefaultGoogleModel
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
func (c *Client) Provider() string { return llm.ProviderGoogle }

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Complete sends a generateContent request at temperature zero.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = llm.GoogleMaxTokens
	}

	body := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: req.Prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     0,
			MaxOutputTokens: maxTokens,
		},
	}
	if strings.TrimSpace(req.System) != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}

	var parsed generateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(body).
		SetResult(&parsed).
		SetError(&parsed).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		return llm.Completion{}, fmt.Errorf("google request: %w", err)
	}
	if parsed.Error != nil {
		return llm.Completion{}, fmt.Errorf("google error: %s (%s)", parsed.Error.Message, parsed.Error.Status)
	}
	if resp.IsError() {
		return llm.Completion{}, fmt.Errorf("google http status %d", resp.StatusCode())
	}
	if len(parsed.Candidates) == 0 {
		return llm.Completion{}, fmt.Errorf("google response missing candidates")
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	trimmed := strings.TrimSpace(text.String())
	if trimmed == "" {
		return llm.Completion{}, fmt.Errorf("google response empty content")
	}

	out := llm.Completion{Text: trimmed}
	if parsed.UsageMetadata != nil {
		out.Usage = llm.Usage{
			InputTokens:  parsed.UsageMetadata.PromptTokenCount,
			OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
		}
	}
	return out, nil
}

var _ llm.Client = (*Client)(nil)
