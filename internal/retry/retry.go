// Package retry runs operations with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Config holds configuration for retry logic
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// Retryable decides whether a failed attempt may be retried.
	// When nil, every error except context cancellation is retried.
	Retryable func(err error) bool

	// Sleep waits between attempts. When nil, a context-aware timer is used.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns a sensible default retry configuration for HTTP calls
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay returns the wait that follows the given failed attempt (1-based).
// It does not sleep and is safe to call from tests.
func (c Config) Delay(attempt int) time.Duration {
	multiplier := c.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	delay := c.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if c.MaxDelay > 0 && delay > c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// Do executes fn with exponential backoff retry logic.
// Attempts are strictly sequential and never exceed MaxAttempts.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		// Don't retry once the caller's context is done
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return err
		}

		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}

		// Last attempt, don't wait
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.Delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, err)
		}

		if err := sleep(ctx, delay); err != nil {
			return errors.Join(lastErr, err)
		}
	}

	return lastErr
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryableHTTPStatus returns true if the HTTP status code is retryable
func IsRetryableHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusGatewayTimeout ||
		statusCode >= 500
}
