// Package llm talks to vision-capable model APIs and turns page evidence
// into verification verdicts.
package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	retryMaxElapsed  = 2 * time.Minute
	retryMaxInterval = 30 * time.Second
)

// apiCaller wraps the HTTP plumbing shared by every provider: request
// execution, retry with exponential backoff, and transient error
// classification.
type apiCaller struct {
	httpClient *http.Client
	logger     *zap.Logger
}

func newAPICaller(timeout time.Duration, logger *zap.Logger) apiCaller {
	return apiCaller{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// call builds, sends, and parses a request under retry. The build function
// runs once per attempt so the request body reader is always fresh.
func (c apiCaller) call(ctx context.Context, build func(context.Context) (*http.Request, error), parse func([]byte) (string, error)) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = retryMaxElapsed
	b.MaxInterval = retryMaxInterval

	var content string
	operation := func() error {
		req, err := build(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building API request: %w", err))
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("Model API request failed, retrying", zap.Error(err))
			return fmt.Errorf("executing API request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading API response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return classifyStatus(resp.StatusCode, body)
		}

		text, err := parse(body)
		if err != nil {
			return backoff.Permanent(err)
		}

		c.logger.Debug("Model API call complete",
			zap.Duration("duration", time.Since(start)),
			zap.Int("response_bytes", len(body)))
		content = text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// classifyStatus splits API errors into retryable and permanent. Rate
// limiting and server-side failures are worth retrying; everything else is
// a caller bug or auth problem.
func classifyStatus(status int, body []byte) error {
	msg := string(body)
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	err := fmt.Errorf("model API error: status %d, body: %s", status, msg)

	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return err
	default:
		return backoff.Permanent(err)
	}
}
