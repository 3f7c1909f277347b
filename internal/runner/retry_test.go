package runner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/torosent/issuecrank/internal/runner"
)

// flakyUnit fails until it has been called failUntil times.
func flakyUnit(attempts *int64, failUntil int64) runner.Unit[string] {
	return func(ctx context.Context) (string, error) {
		n := atomic.AddInt64(attempts, 1)
		if n <= failUntil {
			return "", errBoom
		}
		return "ok", nil
	}
}

func TestRetryRespectsMaxAttempts(t *testing.T) {
	var attempts int64
	policy := runner.RetryPolicy{
		MaxAttempts: 5,
		DelayFunc: func(attempt int, err error) time.Duration {
			return time.Duration(attempt) * time.Millisecond
		},
	}

	value, err := runner.WithRetry(flakyUnit(&attempts, 3), policy)(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if value != "ok" {
		t.Fatalf("unexpected value %q", value)
	}
	if attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", attempts)
	}
}

func TestRetryExceedsMaxAttempts(t *testing.T) {
	var attempts int64
	policy := runner.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}

	_, err := runner.WithRetry(flakyUnit(&attempts, 100), policy)(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected last error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts (max), got %d", attempts)
	}
}

func TestRetryShouldRetryPredicate(t *testing.T) {
	var attempts int64
	policy := runner.RetryPolicy{
		MaxAttempts: 5,
		ShouldRetry: func(err error) bool { return false },
	}

	_, _ = runner.WithRetry(flakyUnit(&attempts, 100), policy)(context.Background())
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestRetrySingleAttemptReturnsUnit(t *testing.T) {
	var attempts int64
	_, err := runner.WithRetry(flakyUnit(&attempts, 100), runner.RetryPolicy{MaxAttempts: 1})(context.Background())
	if err == nil || attempts != 1 {
		t.Fatalf("expected one failed attempt, got %d attempts err=%v", attempts, err)
	}
}

type stopAfter struct{ left int }

func (s *stopAfter) NextBackOff() time.Duration {
	if s.left == 0 {
		return backoff.Stop
	}
	s.left--
	return time.Millisecond
}

func (s *stopAfter) Reset() {}

func TestRetryBackOffStop(t *testing.T) {
	var attempts int64
	policy := runner.RetryPolicy{
		MaxAttempts: 10,
		NewBackOff:  func() backoff.BackOff { return &stopAfter{left: 2} },
	}

	_, err := runner.WithRetry(flakyUnit(&attempts, 100), policy)(context.Background())
	if err == nil {
		t.Fatal("expected failure")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts before the schedule stopped, got %d", attempts)
	}
}

func TestExponentialPolicy(t *testing.T) {
	var attempts int64
	policy := runner.ExponentialPolicy(2, time.Millisecond, nil)
	if policy.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", policy.MaxAttempts)
	}

	value, err := runner.WithRetry(flakyUnit(&attempts, 2), policy)(context.Background())
	if err != nil || value != "ok" {
		t.Fatalf("expected success on third attempt, got %q %v", value, err)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	var attempts int64
	ctx, cancel := context.WithCancel(context.Background())
	policy := runner.RetryPolicy{
		MaxAttempts: 5,
		DelayFunc: func(attempt int, err error) time.Duration {
			cancel()
			return time.Second
		},
	}

	_, err := runner.WithRetry(flakyUnit(&attempts, 100), policy)(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

type testLogger struct {
	failures int64
}

func (l *testLogger) LogFailure(err error) {
	atomic.AddInt64(&l.failures, 1)
}

func TestWithLoggingReportsFailures(t *testing.T) {
	logger := &testLogger{}
	var attempts int64
	unit := runner.WithLogging(flakyUnit(&attempts, 1), logger)

	_, _ = unit(context.Background())
	_, _ = unit(context.Background())
	if logger.failures != 1 {
		t.Fatalf("expected 1 logged failure, got %d", logger.failures)
	}
}
