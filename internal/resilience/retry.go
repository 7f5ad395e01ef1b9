package resilience

import (
	"context"
	"log"
	"time"
)

// RetryConfig controls retry behavior for a wrapped call.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// InitialDelay is the sleep before the second attempt.
	InitialDelay time.Duration
	// BackoffFactor multiplies the delay after each failed attempt.
	BackoffFactor float64

	// Sleep is injectable for tests; nil uses a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns the standard retry policy for AI dependencies.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialDelay: time.Second, BackoffFactor: 2.0}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry invokes fn up to cfg.MaxRetries+1 times, sleeping with exponential
// backoff between attempts but never before the first. When every attempt
// fails, the last error is returned unchanged.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	maxAttempts := cfg.MaxRetries + 1
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt < maxAttempts {
			log.Printf("attempt %d/%d failed: %v, retrying in %s", attempt, maxAttempts, lastErr, delay)
			if err := sleep(ctx, delay); err != nil {
				return lastErr
			}
			delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		} else {
			log.Printf("all %d attempts failed: %v", maxAttempts, lastErr)
		}
	}
	return lastErr
}
