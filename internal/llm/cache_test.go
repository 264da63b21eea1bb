package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

// countingClient returns a unique response per call so cache hits are
// distinguishable from fresh generations.
type countingClient struct {
	calls atomic.Int64
}

func (c *countingClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	n := c.calls.Add(1)
	return fmt.Sprintf("response-%d", n), nil
}

func (c *countingClient) Close() error { return nil }

func cacheUnderTest(inner schemas.LLMClient, ttl time.Duration, maxSize int) *cachedClient {
	return newCachedClient(inner, config.CacheConfig{Enabled: true, TTL: ttl, MaxSize: maxSize}, zap.NewNop())
}

func reqFor(prompt string) schemas.GenerationRequest {
	return schemas.GenerationRequest{SystemPrompt: "sys", UserPrompt: prompt}
}

func TestCachedClient_HitAndMiss(t *testing.T) {
	inner := &countingClient{}
	cache := cacheUnderTest(inner, time.Hour, 10)

	first, err := cache.Generate(context.Background(), reqFor("a"))
	require.NoError(t, err)
	second, err := cache.Generate(context.Background(), reqFor("a"))
	require.NoError(t, err)
	other, err := cache.Generate(context.Background(), reqFor("b"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.EqualValues(t, 2, inner.calls.Load())

	hits, misses := cache.stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 2, misses)
}

func TestCachedClient_KeyCoversScreenshot(t *testing.T) {
	inner := &countingClient{}
	cache := cacheUnderTest(inner, time.Hour, 10)

	withShot := reqFor("a")
	withShot.Screenshot = []byte{1, 2, 3}

	_, err := cache.Generate(context.Background(), reqFor("a"))
	require.NoError(t, err)
	_, err = cache.Generate(context.Background(), withShot)
	require.NoError(t, err)

	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestCachedClient_TTLExpiry(t *testing.T) {
	inner := &countingClient{}
	cache := cacheUnderTest(inner, 10*time.Millisecond, 10)

	_, err := cache.Generate(context.Background(), reqFor("a"))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = cache.Generate(context.Background(), reqFor("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestCachedClient_EvictsOldestAtCapacity(t *testing.T) {
	inner := &countingClient{}
	cache := cacheUnderTest(inner, time.Hour, 2)

	_, _ = cache.Generate(context.Background(), reqFor("a"))
	_, _ = cache.Generate(context.Background(), reqFor("b"))
	_, _ = cache.Generate(context.Background(), reqFor("c"))

	// "a" was evicted, so this is a fresh generation.
	_, err := cache.Generate(context.Background(), reqFor("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 4, inner.calls.Load())

	// "c" is still cached.
	_, err = cache.Generate(context.Background(), reqFor("c"))
	require.NoError(t, err)
	assert.EqualValues(t, 4, inner.calls.Load())
}
