package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
)

// RetryConfig configures retry behavior for embedding API calls.
type RetryConfig struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialInterval time.Duration // Initial backoff interval
	MaxInterval     time.Duration // Maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for embedding API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category.
// Matched case-insensitively against err.Error().
//
// NOTE: This uses string matching because Genkit and provider SDKs do not
// expose typed errors for transient failures. Re-evaluate if Genkit adds
// structured error types in a future version.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},      // rate limiting
	{"500", "502", "503", "504", "unavailable"},  // transient server errors
	{"connection reset", "timeout", "temporary"}, // network errors
}

// retryableError reports whether err is transient and should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	for _, group := range retryablePatterns {
		if containsAny(errStr, group...) {
			return true
		}
	}
	return false
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// executeWithRetry calls the embedder with exponential backoff on
// transient failures. Non-retryable errors fail immediately.
func (c *Client) executeWithRetry(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	var lastErr error
	delay := c.cfg.Retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.cfg.Retry.MaxRetries; attempt++ {
		resp, err := c.embedder.Embed(ctx, req)
		if err == nil {
			if attempt > 0 {
				c.logger.Debug("embedding succeeded after retry",
					"attempts", attempt+1,
					"elapsed", time.Since(start),
				)
			}
			return resp, nil
		}

		lastErr = err

		if !retryableError(err) {
			return nil, &Error{Attempts: attempt + 1, Err: err}
		}

		if attempt == c.cfg.Retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying embedding after error",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.cfg.Retry.MaxInterval)
		}
	}

	return nil, &Error{Attempts: c.cfg.Retry.MaxRetries + 1, Err: lastErr}
}
