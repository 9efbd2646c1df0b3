package gateway

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryConfig configures retry behavior for idempotent requests.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}
}

// retryable reports whether a failure is worth repeating: network faults
// and server-side errors. Auth, role and schema failures never are.
func retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindNetwork:
		return true
	case KindServer:
		return apiErr.Status >= 500
	default:
		return false
	}
}

// withRetry executes fn with exponential backoff, retrying only failures
// retryable reports as transient. A cancelled context stops the loop: no
// further attempts, no backoff sleeps.
func withRetry(ctx context.Context, config *RetryConfig, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(config.BaseDelay) *
				math.Pow(config.Multiplier, float64(attempt-1)))
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return lastErr
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		// A failure caused by the caller going away looks like a network
		// fault; the context tells them apart.
		if ctx.Err() != nil || !retryable(err) {
			return err
		}
	}

	return lastErr
}
