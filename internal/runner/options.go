package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Unit is one independent operation submitted to the dispatcher.
// Implementations should return an error for failed calls.
type Unit[T any] func(ctx context.Context) (T, error)

// Observer receives every outcome as soon as its unit finishes.
// It is called from worker goroutines and must be safe for concurrent use.
type Observer func(latency time.Duration, err error)

// Options configure Dispatch and Crawl.
type Options struct {
	Concurrency    int                         // worker ceiling (0 means one worker per unit)
	RatePerSecond  int                         // unit starts per second (0 means unlimited)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	Limiter        *rate.Limiter               // shared pacing across calls; built from RatePerSecond when nil
	Observer       Observer                    // optional streaming sink
}

func (o *Options) normalize() {
	if o.Concurrency < 0 {
		o.Concurrency = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

func (o Options) workers(units int) int {
	if o.Concurrency == 0 || o.Concurrency > units {
		return units
	}
	return o.Concurrency
}

func (o Options) limiter() *rate.Limiter {
	if o.Limiter != nil {
		return o.Limiter
	}
	if o.RatePerSecond <= 0 {
		return nil
	}
	return o.LimiterFactory(o.RatePerSecond)
}

// Shared returns a copy of o whose limiter is built once, so every Dispatch
// made with it draws from the same pacing budget.
func (o Options) Shared() Options {
	o.normalize()
	o.Limiter = o.limiter()
	return o
}
