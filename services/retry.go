package services

import (
	"context"
	"fmt"
	"time"

	"sentinel/observability"
)

// RetryConfig controls exponential backoff for transient upstream failures.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// WithRetry runs fn up to MaxRetries+1 times, doubling the backoff between
// attempts. The final error wraps the last failure so callers can match it
// with errors.Is.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	backoff := config.InitialBackoff
	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		observability.Warn("retrying after failure",
			"attempt", attempt,
			"max_retries", config.MaxRetries,
			"backoff", backoff.String(),
			"error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}

		if err = fn(); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed after %d retries: %w", config.MaxRetries, err)
}
