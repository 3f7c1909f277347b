package runner

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// FailureLogger logs failed units.
type FailureLogger interface {
	LogFailure(err error)
}

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	MaxAttempts int                                        // total attempts including initial try
	Delay       time.Duration                              // fixed delay between retries (used if DelayFunc and NewBackOff are nil)
	ShouldRetry func(error) bool                           // predicate; if nil, all errors retried
	DelayFunc   func(attempt int, err error) time.Duration // dynamic delay; attempt is 1-based
	NewBackOff  func() backoff.BackOff                     // stateful schedule, one per unit invocation
}

// ExponentialPolicy retries up to retries extra times with jittered
// exponential delays starting at initial.
func ExponentialPolicy(retries int, initial time.Duration, shouldRetry func(error) bool) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: retries + 1,
		ShouldRetry: shouldRetry,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			if initial > 0 {
				b.InitialInterval = initial
			}
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

// WithRetry wraps a unit with retry capability. The outcome's elapsed time
// covers every attempt.
func WithRetry[T any](unit Unit[T], policy RetryPolicy) Unit[T] {
	if policy.MaxAttempts <= 1 {
		return unit
	}
	return func(ctx context.Context) (T, error) {
		var schedule backoff.BackOff
		if policy.NewBackOff != nil {
			schedule = policy.NewBackOff()
		}

		var (
			value   T
			lastErr error
		)
		for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return value, err
			}

			value, lastErr = unit(ctx)
			if lastErr == nil {
				return value, nil
			}

			// Don't delay after the last attempt.
			if attempt == policy.MaxAttempts {
				break
			}
			if policy.ShouldRetry != nil && !policy.ShouldRetry(lastErr) {
				return value, lastErr
			}
			delay := policy.delay(schedule, attempt, lastErr)
			if delay == backoff.Stop {
				return value, lastErr
			}
			if delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return value, ctx.Err()
				}
			}
		}
		return value, lastErr
	}
}

func (p RetryPolicy) delay(schedule backoff.BackOff, attempt int, err error) time.Duration {
	switch {
	case p.DelayFunc != nil:
		return p.DelayFunc(attempt, err)
	case schedule != nil:
		return schedule.NextBackOff()
	default:
		return p.Delay
	}
}

// WithLogging wraps a unit to log failures.
func WithLogging[T any](unit Unit[T], logger FailureLogger) Unit[T] {
	if logger == nil {
		return unit
	}
	return func(ctx context.Context) (T, error) {
		value, err := unit(ctx)
		if err != nil {
			logger.LogFailure(err)
		}
		return value, err
	}
}
