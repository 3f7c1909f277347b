// Package sampler draws optional random picks from read-only collections.
//
// A sample succeeds with a configurable inclusion chance; when it succeeds an
// element is chosen uniformly. Samplers hold no mutable state, so a single
// collection snapshot can be sampled from many goroutines at once.
package sampler

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrInvalidParameter is returned when a chance lies outside 0..100.
var ErrInvalidParameter = errors.New("invalid parameter")

// Source supplies uniform integers in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Default draws from the goroutine-safe top-level math/rand/v2 generator.
var Default Source = globalSource{}

// Sample returns a uniformly chosen element of items with probability
// chancePercent, drawing from Default.
func Sample[T any](items []T, chancePercent int) (T, bool, error) {
	return SampleFrom(Default, items, chancePercent)
}

// SampleFrom is Sample with an explicit entropy source.
func SampleFrom[T any](src Source, items []T, chancePercent int) (T, bool, error) {
	var zero T
	if chancePercent < 0 || chancePercent > 100 {
		return zero, false, fmt.Errorf("%w: chance must be between 0 and 100, got %d", ErrInvalidParameter, chancePercent)
	}
	if src == nil {
		src = Default
	}

	// Inclusive upper bound: a draw equal to the chance still selects.
	if src.IntN(101) > chancePercent {
		return zero, false, nil
	}
	if len(items) == 0 {
		return zero, false, nil
	}
	return items[src.IntN(len(items))], true, nil
}

// Pick returns a uniformly chosen element, or false when items is empty.
func Pick[T any](src Source, items []T) (T, bool) {
	item, ok, _ := SampleFrom(src, items, 100)
	return item, ok
}
