package sampler_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/torosent/issuecrank/internal/sampler"
)

// scriptedSource replays fixed draws so the selection path is deterministic.
type scriptedSource struct {
	draws []int
	calls []int
}

func (s *scriptedSource) IntN(n int) int {
	s.calls = append(s.calls, n)
	v := s.draws[0]
	s.draws = s.draws[1:]
	return v
}

func TestSampleRejectsOutOfRangeChance(t *testing.T) {
	for _, chance := range []int{101, 250, -1} {
		_, ok, err := sampler.Sample([]string{"a"}, chance)
		if !errors.Is(err, sampler.ErrInvalidParameter) {
			t.Fatalf("chance %d: expected ErrInvalidParameter, got %v", chance, err)
		}
		if ok {
			t.Fatalf("chance %d: expected no selection on error", chance)
		}
	}
}

func TestSampleEmptyCollectionIsAlwaysAbsent(t *testing.T) {
	for _, chance := range []int{0, 30, 100} {
		for i := 0; i < 500; i++ {
			_, ok, err := sampler.Sample([]int{}, chance)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				t.Fatalf("chance %d: expected absent for empty collection", chance)
			}
		}
	}
}

func TestSampleAbsentFrequencyTracksChance(t *testing.T) {
	const trials = 20000
	items := []int{1, 2, 3, 4}

	for _, chance := range []int{0, 20, 30, 50, 80, 100} {
		absent := 0
		for i := 0; i < trials; i++ {
			_, ok, err := sampler.Sample(items, chance)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				absent++
			}
		}
		got := float64(absent) / trials
		want := float64(100-chance) / 100
		if math.Abs(got-want) > 0.03 {
			t.Errorf("chance %d: absent frequency %.3f, want about %.3f", chance, got, want)
		}
	}
}

func TestSampleAlwaysReturnsMemberAtFullChance(t *testing.T) {
	items := []string{"red", "green", "blue"}
	seen := map[string]int{}
	for i := 0; i < 3000; i++ {
		item, ok, err := sampler.Sample(items, 100)
		if err != nil || !ok {
			t.Fatalf("expected selection, ok=%v err=%v", ok, err)
		}
		seen[item]++
	}
	if len(seen) != len(items) {
		t.Fatalf("expected every item to be drawn, saw %v", seen)
	}
	for _, item := range items {
		if seen[item] < 800 {
			t.Errorf("item %q drawn %d times, distribution looks skewed", item, seen[item])
		}
	}
}

func TestSampleFromUsesChanceThenIndex(t *testing.T) {
	items := []string{"a", "b", "c"}

	src := &scriptedSource{draws: []int{30, 2}}
	item, ok, err := sampler.SampleFrom(src, items, 30)
	if err != nil || !ok {
		t.Fatalf("expected selection when draw equals chance, ok=%v err=%v", ok, err)
	}
	if item != "c" {
		t.Fatalf("expected item at drawn index, got %q", item)
	}
	if len(src.calls) != 2 || src.calls[0] != 101 || src.calls[1] != 3 {
		t.Fatalf("unexpected draw bounds %v", src.calls)
	}

	src = &scriptedSource{draws: []int{31}}
	if _, ok, _ := sampler.SampleFrom(src, items, 30); ok {
		t.Fatalf("expected absent when draw exceeds chance")
	}
	if len(src.calls) != 1 {
		t.Fatalf("expected index draw to be skipped, calls=%v", src.calls)
	}
}

func TestPick(t *testing.T) {
	if _, ok := sampler.Pick(sampler.Default, []int(nil)); ok {
		t.Fatalf("expected no pick from nil slice")
	}
	v, ok := sampler.Pick(sampler.Default, []int{7})
	if !ok || v != 7 {
		t.Fatalf("expected 7, got %d ok=%v", v, ok)
	}
}

func TestSampleConcurrentCallers(t *testing.T) {
	items := []int{1, 2, 3}
	var wg sync.WaitGroup
	wg.Add(16)
	for i := 0; i < 16; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if _, _, err := sampler.Sample(items, 50); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
