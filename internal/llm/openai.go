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

const defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIClient speaks the chat completions API. It also serves custom
// OpenAI-compatible endpoints such as local inference servers.
type OpenAIClient struct {
	apiCaller
	cfg      config.AIConfig
	endpoint string
}

type oaContentPart struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	ImageURL *oaImageURL `json:"image_url,omitempty"`
}

type oaImageURL struct {
	URL string `json:"url"`
}

type oaMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type oaRequest struct {
	Model          string            `json:"model"`
	Messages       []oaMessage       `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat *oaResponseFormat `json:"response_format,omitempty"`
}

type oaResponseFormat struct {
	Type string `json:"type"`
}

type oaResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewOpenAIClient creates a chat completions client.
func NewOpenAIClient(cfg config.AIConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" && cfg.Endpoint == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	return &OpenAIClient{
		apiCaller: newAPICaller(cfg.APITimeout, logger.Named("llm.openai")),
		cfg:       cfg,
		endpoint:  endpoint,
	}, nil
}

// Generate sends the prompts, attaching the screenshot as an inline image.
func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
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
			if c.cfg.APIKey != "" {
				httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
			}
			return httpReq, nil
		},
		func(body []byte) (string, error) {
			var payload oaResponse
			if err := json.Unmarshal(body, &payload); err != nil {
				return "", fmt.Errorf("decoding response payload: %w", err)
			}
			if len(payload.Choices) == 0 {
				return "", fmt.Errorf("API returned no choices")
			}
			return payload.Choices[0].Message.Content, nil
		})
}

func (c *OpenAIClient) buildPayload(req schemas.GenerationRequest) oaRequest {
	userContent := []oaContentPart{
		{Type: "text", Text: req.UserPrompt},
	}
	if len(req.Screenshot) > 0 {
		userContent = append(userContent, oaContentPart{
			Type: "image_url",
			ImageURL: &oaImageURL{
				URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.Screenshot),
			},
		})
	}

	payload := oaRequest{
		Model: c.cfg.Model,
		Messages: []oaMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: req.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if req.ForceJSON {
		payload.ResponseFormat = &oaResponseFormat{Type: "json_object"}
	}
	return payload
}

// Close releases pooled connections.
func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
