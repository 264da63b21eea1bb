package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

// cachedClient memoizes generation responses keyed by the full request
// content. Identical verifications of identical page states are common
// when suites share global requirements across steps.
type cachedClient struct {
	inner   schemas.LLMClient
	ttl     time.Duration
	maxSize int
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]cacheEntry
	order   []string

	hits   int64
	misses int64
}

type cacheEntry struct {
	response string
	storedAt time.Time
}

func newCachedClient(inner schemas.LLMClient, cfg config.CacheConfig, logger *zap.Logger) *cachedClient {
	return &cachedClient{
		inner:   inner,
		ttl:     cfg.TTL,
		maxSize: cfg.MaxSize,
		logger:  logger.Named("llm.cache"),
		entries: make(map[string]cacheEntry),
	}
}

func (c *cachedClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	key := cacheKey(req)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && time.Since(entry.storedAt) < c.ttl {
		c.hits++
		hits, misses := c.hits, c.misses
		c.mu.Unlock()
		c.logger.Debug("Cache hit",
			zap.Int64("hits", hits),
			zap.Int64("misses", misses))
		return entry.response, nil
	}
	c.misses++
	c.mu.Unlock()

	response, err := c.inner.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	c.store(key, response)
	return response, nil
}

func (c *cachedClient) store(key, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry{response: response, storedAt: time.Now()}

	// Evict oldest entries beyond the size cap.
	for c.maxSize > 0 && len(c.entries) > c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// stats reports hit and miss counts for diagnostics.
func (c *cachedClient) stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *cachedClient) Close() error {
	return c.inner.Close()
}

// cacheKey hashes everything that influences the model's answer.
func cacheKey(req schemas.GenerationRequest) string {
	h := sha256.New()
	h.Write([]byte(req.SystemPrompt))
	h.Write([]byte{0})
	h.Write([]byte(req.UserPrompt))
	h.Write([]byte{0})
	h.Write(req.Screenshot)
	if req.ForceJSON {
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}
