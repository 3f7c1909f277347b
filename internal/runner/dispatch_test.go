package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/issuecrank/internal/runner"
)

var errBoom = errors.New("boom")

func constUnit(v int) runner.Unit[int] {
	return func(ctx context.Context) (int, error) { return v, nil }
}

func TestDispatchYieldsOneOutcomePerUnit(t *testing.T) {
	units := make([]runner.Unit[int], 25)
	for i := range units {
		units[i] = constUnit(i)
	}

	outcomes := runner.Dispatch(context.Background(), runner.Options{Concurrency: 4}, units)
	if len(outcomes) != len(units) {
		t.Fatalf("expected %d outcomes, got %d", len(units), len(outcomes))
	}
	for i, o := range outcomes {
		if !o.Succeeded() {
			t.Fatalf("outcome %d failed: %v", i, o.Err)
		}
		if o.Value != i {
			t.Fatalf("outcome %d carries value %d", i, o.Value)
		}
	}
}

func TestDispatchEmptyBatch(t *testing.T) {
	outcomes := runner.Dispatch[int](context.Background(), runner.Options{}, nil)
	if len(outcomes) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestDispatchCapturesFailures(t *testing.T) {
	units := make([]runner.Unit[int], 10)
	for i := range units {
		if i%3 == 0 && i > 0 {
			units[i] = func(ctx context.Context) (int, error) {
				time.Sleep(5 * time.Millisecond)
				return 0, errBoom
			}
			continue
		}
		units[i] = constUnit(i)
	}

	outcomes := runner.Dispatch(context.Background(), runner.Options{}, units)
	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
			if !errors.Is(o.Err, errBoom) {
				t.Fatalf("unexpected error %v", o.Err)
			}
			if o.Latency() < 5*time.Millisecond {
				t.Fatalf("failed outcome lost its latency: %s", o.Latency())
			}
		}
	}
	if failed != 3 {
		t.Fatalf("expected 3 failures, got %d", failed)
	}
}

func TestDispatchRecoversPanics(t *testing.T) {
	units := []runner.Unit[int]{
		constUnit(1),
		func(ctx context.Context) (int, error) { panic("unit exploded") },
		constUnit(3),
		nil,
	}

	outcomes := runner.Dispatch(context.Background(), runner.Options{Concurrency: 1}, units)

	var pe *runner.PanicError
	if !errors.As(outcomes[1].Err, &pe) {
		t.Fatalf("expected PanicError, got %v", outcomes[1].Err)
	}
	if pe.Value != "unit exploded" {
		t.Fatalf("unexpected panic value %v", pe.Value)
	}
	if !errors.Is(outcomes[3].Err, runner.ErrNilUnit) {
		t.Fatalf("expected ErrNilUnit, got %v", outcomes[3].Err)
	}
	if !outcomes[0].Succeeded() || !outcomes[2].Succeeded() {
		t.Fatalf("siblings of a panicking unit must succeed")
	}
}

func TestDispatchHonorsConcurrencyCeiling(t *testing.T) {
	var inFlight, peak int64
	units := make([]runner.Unit[int], 12)
	for i := range units {
		units[i] = func(ctx context.Context) (int, error) {
			n := atomic.AddInt64(&inFlight, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&inFlight, -1)
			return 0, nil
		}
	}

	runner.Dispatch(context.Background(), runner.Options{Concurrency: 3}, units)
	if peak > 3 {
		t.Fatalf("expected at most 3 units in flight, saw %d", peak)
	}
}

// TestDispatchZeroConcurrencyRunsAllAtOnce needs every unit to be in flight
// at the same time; a bounded pool would time out.
func TestDispatchZeroConcurrencyRunsAllAtOnce(t *testing.T) {
	const n = 20
	var started sync.WaitGroup
	started.Add(n)
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()

	units := make([]runner.Unit[int], n)
	for i := range units {
		units[i] = func(ctx context.Context) (int, error) {
			started.Done()
			select {
			case <-allStarted:
				return 1, nil
			case <-time.After(2 * time.Second):
				return 0, errors.New("siblings never started")
			}
		}
	}

	for _, o := range runner.Dispatch(context.Background(), runner.Options{}, units) {
		if o.Failed() {
			t.Fatalf("unit failed: %v", o.Err)
		}
	}
}

func TestDispatchNotifiesObserver(t *testing.T) {
	var calls, failures int64
	units := []runner.Unit[int]{
		constUnit(1),
		func(ctx context.Context) (int, error) { return 0, errBoom },
		constUnit(2),
	}
	opts := runner.Options{
		Concurrency: 2,
		Observer: func(latency time.Duration, err error) {
			atomic.AddInt64(&calls, 1)
			if err != nil {
				atomic.AddInt64(&failures, 1)
			}
		},
	}

	runner.Dispatch(context.Background(), opts, units)
	if calls != 3 || failures != 1 {
		t.Fatalf("observer saw %d calls and %d failures, want 3 and 1", calls, failures)
	}
}

func TestDispatchRateLimitPacesStarts(t *testing.T) {
	units := make([]runner.Unit[int], 5)
	for i := range units {
		units[i] = constUnit(i)
	}
	opts := runner.Options{
		Concurrency:   5,
		RatePerSecond: 50,
		LimiterFactory: func(rps int) *rate.Limiter {
			return rate.NewLimiter(rate.Limit(rps), 1)
		},
	}

	start := time.Now()
	runner.Dispatch(context.Background(), opts, units)
	elapsed := time.Since(start)
	// 4 paced starts at 20ms each after the first burst token.
	if elapsed < 60*time.Millisecond {
		t.Fatalf("expected pacing to take at least 60ms, took %s", elapsed)
	}
}

func TestDispatchRateLimitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	units := []runner.Unit[int]{constUnit(1), constUnit(2)}
	outcomes := runner.Dispatch(ctx, runner.Options{RatePerSecond: 1}, units)
	for _, o := range outcomes {
		if o.Succeeded() {
			t.Fatalf("expected cancelled limiter wait to fail the unit")
		}
	}
}

func TestDispatchCancelledWaitRecordsWaitTime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	opts := runner.Options{
		Concurrency:   1,
		RatePerSecond: 1,
		LimiterFactory: func(rps int) *rate.Limiter {
			return rate.NewLimiter(rate.Limit(rps), 1)
		},
	}
	outcomes := runner.Dispatch(ctx, opts, []runner.Unit[int]{constUnit(1), constUnit(2)})
	if !outcomes[0].Succeeded() {
		t.Fatalf("first unit should use the burst token, got %v", outcomes[0].Err)
	}
	if outcomes[1].Succeeded() {
		t.Fatal("expected the second unit to fail on cancellation")
	}
	if outcomes[1].Elapsed < 40*time.Millisecond {
		t.Fatalf("expected the wait time to be recorded, got %s", outcomes[1].Elapsed)
	}
}

func TestSharedOptionsPaceAcrossDispatches(t *testing.T) {
	opts := runner.Options{
		Concurrency:   2,
		RatePerSecond: 50,
		LimiterFactory: func(rps int) *rate.Limiter {
			return rate.NewLimiter(rate.Limit(rps), 1)
		},
	}.Shared()

	start := time.Now()
	for i := 0; i < 3; i++ {
		runner.Dispatch(context.Background(), opts, []runner.Unit[int]{constUnit(1), constUnit(2)})
	}
	// 6 starts share one limiter: 5 paced starts at 20ms each.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Fatalf("expected pacing across calls to take at least 80ms, took %s", elapsed)
	}
}
