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

const geminiEndpointTemplate = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// GeminiClient speaks the generateContent API.
type GeminiClient struct {
	apiCaller
	cfg      config.AIConfig
	endpoint string
}

type gemInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type gemPart struct {
	Text       string         `json:"text,omitempty"`
	InlineData *gemInlineData `json:"inline_data,omitempty"`
}

type gemContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []gemPart `json:"parts"`
}

type gemGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
}

type gemRequest struct {
	Contents          []gemContent        `json:"contents"`
	SystemInstruction *gemContent         `json:"system_instruction,omitempty"`
	GenerationConfig  gemGenerationConfig `json:"generationConfig"`
}

type gemResponse struct {
	Candidates []struct {
		Content      gemContent `json:"content"`
		FinishReason string     `json:"finishReason"`
	} `json:"candidates"`
}

// NewGeminiClient creates a generateContent client.
func NewGeminiClient(cfg config.AIConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf(geminiEndpointTemplate, cfg.Model)
	}
	return &GeminiClient{
		apiCaller: newAPICaller(cfg.APITimeout, logger.Named("llm.gemini")),
		cfg:       cfg,
		endpoint:  endpoint,
	}, nil
}

// Generate sends the prompts with the screenshot as inline image data.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
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
			httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)
			return httpReq, nil
		},
		func(body []byte) (string, error) {
			var payload gemResponse
			if err := json.Unmarshal(body, &payload); err != nil {
				return "", fmt.Errorf("decoding response payload: %w", err)
			}
			if len(payload.Candidates) == 0 {
				return "", fmt.Errorf("API returned no candidates")
			}
			candidate := payload.Candidates[0]
			if len(candidate.Content.Parts) == 0 {
				return "", fmt.Errorf("API returned empty content (finish reason: %s)", candidate.FinishReason)
			}
			return candidate.Content.Parts[0].Text, nil
		})
}

func (c *GeminiClient) buildPayload(req schemas.GenerationRequest) gemRequest {
	parts := []gemPart{{Text: req.UserPrompt}}
	if len(req.Screenshot) > 0 {
		parts = append(parts, gemPart{
			InlineData: &gemInlineData{
				MimeType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(req.Screenshot),
			},
		})
	}

	genConfig := gemGenerationConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: c.cfg.MaxTokens,
	}
	if req.ForceJSON {
		genConfig.ResponseMimeType = "application/json"
	}

	return gemRequest{
		Contents: []gemContent{{Role: "user", Parts: parts}},
		SystemInstruction: &gemContent{
			Parts: []gemPart{{Text: req.SystemPrompt}},
		},
		GenerationConfig: genConfig,
	}
}

// Close releases pooled connections.
func (c *GeminiClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
