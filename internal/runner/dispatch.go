package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNilUnit is recorded as the outcome of a nil unit.
var ErrNilUnit = errors.New("nil unit")

// PanicError captures a panic raised inside a unit.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unit panicked: %v", e.Value)
}

// Outcome is the recorded result of one unit: elapsed time plus either a
// value or the error that made the value absent.
type Outcome[T any] struct {
	Elapsed time.Duration
	Value   T
	Err     error
}

// Succeeded reports whether the unit produced a value.
func (o Outcome[T]) Succeeded() bool { return o.Err == nil }

// Failed reports whether the value is absent.
func (o Outcome[T]) Failed() bool { return o.Err != nil }

// Latency returns the elapsed wall-clock time of the unit.
func (o Outcome[T]) Latency() time.Duration { return o.Elapsed }

// Dispatch runs every unit on a fixed pool of workers and returns once all
// of them have finished. outcomes[i] always belongs to units[i]. Unit
// failures and panics are captured in their outcome and never stop siblings.
func Dispatch[T any](ctx context.Context, opts Options, units []Unit[T]) []Outcome[T] {
	outcomes := make([]Outcome[T], len(units))
	if len(units) == 0 {
		return outcomes
	}
	opts.normalize()
	limiter := opts.limiter()

	queue := make(chan int, len(units))
	for i := range units {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < opts.workers(len(units)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				if limiter != nil {
					waitStart := time.Now()
					if err := limiter.Wait(ctx); err != nil {
						outcomes[i] = Outcome[T]{Elapsed: time.Since(waitStart), Err: err}
						opts.observe(outcomes[i].Elapsed, err)
						continue
					}
				}
				outcomes[i] = execute(ctx, units[i])
				opts.observe(outcomes[i].Elapsed, outcomes[i].Err)
			}
		}()
	}
	wg.Wait()
	return outcomes
}

func (o Options) observe(latency time.Duration, err error) {
	if o.Observer != nil {
		o.Observer(latency, err)
	}
}

func execute[T any](ctx context.Context, unit Unit[T]) (out Outcome[T]) {
	if unit == nil {
		return Outcome[T]{Err: ErrNilUnit}
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			out = Outcome[T]{Elapsed: time.Since(start), Err: &PanicError{Value: r}}
		}
	}()

	value, err := unit(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return Outcome[T]{Elapsed: elapsed, Err: err}
	}
	return Outcome[T]{Elapsed: elapsed, Value: value}
}
