package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// BackoffFunc returns the delay to wait after the given (1-based) failed attempt.
type BackoffFunc func(attempt int) time.Duration

// Config holds retry configuration
type Config struct {
	MaxAttempts int         // Total number of attempts, including the first one
	Backoff     BackoffFunc // Delay between attempts (nil = no delay)

	// ShouldRetry decides whether an error is transient. nil retries every error.
	ShouldRetry func(err error) bool

	// OnRetry is called before sleeping for the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns the configuration used by the HTTP session wrapper:
// three attempts with 100ms, 200ms linear backoff.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Backoff:     LinearBackoff(100 * time.Millisecond),
	}
}

// LinearBackoff waits step*attempt after each failure.
func LinearBackoff(step time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt)
	}
}

// ExponentialBackoff waits initial*multiplier^(attempt-1), capped at max.
func ExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		delay := float64(initial) * math.Pow(multiplier, float64(attempt-1))
		if max > 0 && delay > float64(max) {
			delay = float64(max)
		}
		return time.Duration(delay)
	}
}

// Retry executes fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. fn receives the 1-based attempt number.
func Retry(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	_, err := RetryWithResult(ctx, cfg, func(attempt int) (struct{}, error) {
		return struct{}{}, fn(attempt)
	})
	return err
}

// RetryWithResult executes a function that returns a result with retry logic.
// Non-retryable errors are returned unchanged; after the last attempt the final
// error is returned wrapped, so errors.Is/As still see it.
func RetryWithResult[T any](ctx context.Context, cfg Config, fn func(attempt int) (T, error)) (T, error) {
	var zero T

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			return zero, err
		}

		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff(attempt)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("retry cancelled during wait: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}

	return zero, fmt.Errorf("max attempts (%d) exceeded: %w", maxAttempts, lastErr)
}
