// Package retry provides a bounded retry loop for transient failures.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config defines the shape of a retry loop.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Must be at least 1.
	MaxAttempts int

	// Delay is the pause between attempts. Zero means retry immediately.
	Delay time.Duration

	// OnRetry runs between a failed attempt and the next one, typically to
	// tear down cached state so the next attempt starts from scratch. An
	// OnRetry error aborts the loop and is returned wrapped.
	OnRetry func(ctx context.Context) error
}

// DefaultConfig returns the loop shape used for database connectivity checks:
// three attempts, no delay, no teardown.
func DefaultConfig() Config {
	return Config{MaxAttempts: 3}
}

// Do runs fn up to cfg.MaxAttempts times, invoking cfg.OnRetry between
// attempts. It returns nil on the first success, the last error after the
// attempts are exhausted, and ctx.Err() if the context is cancelled while
// waiting to retry.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("retry: MaxAttempts must be at least 1, got %d", cfg.MaxAttempts)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			if err := cfg.OnRetry(ctx); err != nil {
				return fmt.Errorf("retry teardown failed: %w", err)
			}
		}

		if cfg.Delay > 0 {
			select {
			case <-time.After(cfg.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
	return lastErr
}
