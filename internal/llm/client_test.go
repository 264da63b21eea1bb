package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

// -- Status Classification --

func TestClassifyStatus(t *testing.T) {
	transient := []int{429, 500, 502, 503, 504}
	for _, status := range transient {
		err := classifyStatus(status, []byte("busy"))
		var perm *backoff.PermanentError
		assert.False(t, errors.As(err, &perm), "status %d should be retryable", status)
	}

	permanentStatuses := []int{400, 401, 403, 404, 422}
	for _, status := range permanentStatuses {
		err := classifyStatus(status, []byte("bad request"))
		var perm *backoff.PermanentError
		assert.True(t, errors.As(err, &perm), "status %d should be permanent", status)
	}
}

// -- OpenAI Client --

func openAITestConfig(endpoint string) config.AIConfig {
	cfg := config.NewDefaultConfig().AI
	cfg.APIKey = "test-key"
	cfg.Endpoint = endpoint
	return cfg
}

func TestOpenAIClient_Generate(t *testing.T) {
	var captured oaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"passed\":true}"}}]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(openAITestConfig(server.URL), zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	content, err := client.Generate(context.Background(), schemas.GenerationRequest{
		SystemPrompt: "you are a QA engineer",
		UserPrompt:   "is the page correct?",
		Screenshot:   []byte{0x89, 0x50},
		ForceJSON:    true,
		Temperature:  0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"passed":true}`, content)

	assert.Equal(t, "gpt-4o", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)

	// The user message carries both the text and the screenshot.
	parts, ok := captured.Messages[1].Content.([]any)
	require.True(t, ok)
	assert.Len(t, parts, 2)
}

func TestOpenAIClient_RetriesTransientFailure(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(openAITestConfig(server.URL), zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	content, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.EqualValues(t, 2, attempts.Load())
}

func TestOpenAIClient_PermanentFailureDoesNotRetry(t *testing.T) {
	var attempts atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(openAITestConfig(server.URL), zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.EqualValues(t, 1, attempts.Load())
}

func TestNewOpenAIClient_RequiresKeyOrEndpoint(t *testing.T) {
	cfg := config.NewDefaultConfig().AI
	cfg.APIKey = ""
	cfg.Endpoint = ""
	_, err := NewOpenAIClient(cfg, zap.NewNop())
	assert.Error(t, err)
}

// -- Factory --

func TestNewClient_ProviderSelection(t *testing.T) {
	base := config.NewDefaultConfig().AI
	base.APIKey = "test-key"

	for _, provider := range []config.AIProvider{config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderGemini} {
		cfg := base
		cfg.Provider = provider
		client, err := NewClient(cfg, zap.NewNop())
		require.NoError(t, err, string(provider))
		require.NotNil(t, client)
		_ = client.Close()
	}

	custom := base
	custom.Provider = config.ProviderCustom
	_, err := NewClient(custom, zap.NewNop())
	assert.Error(t, err, "custom provider without endpoint must be rejected")

	custom.Endpoint = "http://localhost:8080/v1/chat/completions"
	client, err := NewClient(custom, zap.NewNop())
	require.NoError(t, err)
	_ = client.Close()

	unknown := base
	unknown.Provider = "watson"
	_, err = NewClient(unknown, zap.NewNop())
	assert.Error(t, err)
}
