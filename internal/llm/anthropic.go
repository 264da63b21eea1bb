package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

const (
	defaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion         = "2023-06-01"
)

// AnthropicClient speaks the messages API.
type AnthropicClient struct {
	apiCaller
	cfg      config.AIConfig
	endpoint string
}

type antImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type antContentBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *antImageSource `json:"source,omitempty"`
}

type antMessage struct {
	Role    string            `json:"role"`
	Content []antContentBlock `json:"content"`
}

type antRequest struct {
	Model       string       `json:"model"`
	System      string       `json:"system,omitempty"`
	Messages    []antMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float64      `json:"temperature"`
}

type antResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewAnthropicClient creates a messages API client.
func NewAnthropicClient(cfg config.AIConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultAnthropicEndpoint
	}
	return &AnthropicClient{
		apiCaller: newAPICaller(cfg.APITimeout, logger.Named("llm.anthropic")),
		cfg:       cfg,
		endpoint:  endpoint,
	}, nil
}

// Generate sends the prompts with the screenshot as a base64 image block.
// The messages API has no JSON response mode, so ForceJSON relies on the
// system prompt and downstream fence stripping.
func (c *AnthropicClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	body, err := json.Marshal(c.buildPayload(req))
	if err != nil {
		return "", fmt.Errorf("marshaling request payload: %w", err)
	}

	return c.call(ctx,
		func(ctx context.Context) (*http.Request, error) {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("x-api-key", c.cfg.APIKey)
			httpReq.Header.Set("anthropic-version", anthropicVersion)
			return httpReq, nil
		},
		func(body []byte) (string, error) {
			var payload antResponse
			if err := json.Unmarshal(body, &payload); err != nil {
				return "", fmt.Errorf("decoding response payload: %w", err)
			}
			for _, block := range payload.Content {
				if block.Type == "text" {
					return block.Text, nil
				}
			}
			return "", fmt.Errorf("API returned no text content (stop reason: %s)", payload.StopReason)
		})
}

func (c *AnthropicClient) buildPayload(req schemas.GenerationRequest) antRequest {
	content := make([]antContentBlock, 0, 2)
	if len(req.Screenshot) > 0 {
		content = append(content, antContentBlock{
			Type: "image",
			Source: &antImageSource{
				Type:      "base64",
				MediaType: "image/png",
				Data:      base64.StdEncoding.EncodeToString(req.Screenshot),
			},
		})
	}
	content = append(content, antContentBlock{Type: "text", Text: req.UserPrompt})

	return antRequest{
		Model:       c.cfg.Model,
		System:      req.SystemPrompt,
		Messages:    []antMessage{{Role: "user", Content: content}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: req.Temperature,
	}
}

// Close releases pooled connections.
func (c *AnthropicClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
