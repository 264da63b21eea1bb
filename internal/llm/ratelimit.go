package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
)

// rateLimitedClient throttles outgoing generation calls to a configured
// request rate, smoothing bursts from concurrent verifications.
type rateLimitedClient struct {
	inner   schemas.LLMClient
	limiter *rate.Limiter
}

func withRateLimit(inner schemas.LLMClient, requestsPerSecond float64) schemas.LLMClient {
	return &rateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (c *rateLimitedClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return c.inner.Generate(ctx, req)
}

func (c *rateLimitedClient) Close() error {
	return c.inner.Close()
}
