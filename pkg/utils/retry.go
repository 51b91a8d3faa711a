// Package utils provides shared utility functions.
package utils

import (
	"context"
	"time"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Retry executes a function with exponential backoff retry.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if attempt < cfg.MaxAttempts-1 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
				delay = time.Duration(float64(delay) * cfg.BackoffFactor)
				if delay > cfg.MaxDelay {
					delay = cfg.MaxDelay
				}
			}
		} else {
			return nil
		}
	}

	return lastErr
}

// PollConfig holds configuration for a bounded condition poll.
type PollConfig struct {
	Timeout       time.Duration
	Interval      time.Duration
	MaxInterval   time.Duration
	BackoffFactor float64
}

// DefaultPollConfig returns the default poll configuration used for order
// fill detection.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Timeout:       10 * time.Second,
		Interval:      500 * time.Millisecond,
		MaxInterval:   2 * time.Second,
		BackoffFactor: 1.5,
	}
}

// Poll repeatedly evaluates fn with exponential backoff until it reports
// done, the timeout elapses, or the context is cancelled. A non-nil error
// from fn aborts the poll immediately; exhausting the timeout returns
// context.DeadlineExceeded.
func Poll(ctx context.Context, cfg PollConfig, fn func() (done bool, err error)) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	interval := cfg.Interval
	for {
		done, err := fn()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * cfg.BackoffFactor)
		if cfg.MaxInterval > 0 && interval > cfg.MaxInterval {
			interval = cfg.MaxInterval
		}
	}
}
