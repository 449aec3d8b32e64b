package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // Exponential backoff
}

// Permanent wraps an error that must not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	_, err := Do(ctx, config, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Do calls fn until it succeeds, returns a Permanent error, the attempts run
// out or ctx is done. With Backoff the delay doubles after every attempt.
func Do[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := config.Delay
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		if attempt == attempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", attempts, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		if config.Backoff {
			delay *= 2
		}
	}
	return zero, nil
}
