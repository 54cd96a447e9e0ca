// Package retry provides generic backoff for the transient transport
// failures the unlock flow hits when fetching payment terms. Wallet prompts
// are never retried here; only errors the caller marks retryable are.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts  int           // Maximum number of attempts (including initial attempt)
	InitialDelay time.Duration // Initial delay between retries
	MaxDelay     time.Duration // Maximum delay between retries
	Multiplier   float64       // Multiplier for exponential backoff
}

// TermsConfig is the policy for payment-terms fetches: a single quick retry,
// so a flaky connection does not bounce the dialog back to network selection.
var TermsConfig = Config{
	MaxAttempts:  2,
	InitialDelay: 250 * time.Millisecond,
	MaxDelay:     1 * time.Second,
	Multiplier:   2.0,
}

// IsRetryable decides whether an error should trigger another attempt.
type IsRetryable func(error) bool

// Transient reports whether an error looks like a transport-level failure
// (timeouts, refused connections) rather than a protocol answer.
func Transient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// Do executes fn with exponential backoff, honoring context cancellation.
// Non-retryable errors return immediately.
func Do[T any](ctx context.Context, config Config, isRetryable IsRetryable, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := config.InitialDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("context cancelled: %w", err)
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}

		if attempt < config.MaxAttempts-1 {
			select {
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * config.Multiplier)
				if delay > config.MaxDelay {
					delay = config.MaxDelay
				}
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}
