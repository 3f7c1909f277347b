package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Sample is one recorded unit outcome.
type Sample interface {
	Latency() time.Duration
	Failed() bool
}

// Collector records per-unit outcomes in a thread-safe manner.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	succeeded    int64
	failed       int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	failuresKind map[string]int64
}

// Stats represents aggregated run statistics.
//
// Min, max and mean are only meaningful when HasData is set. Throughput is
// only meaningful when HasThroughput is set.
type Stats struct {
	RunID          string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Total          int64         `json:"total" yaml:"total"`
	Succeeded      int64         `json:"succeeded" yaml:"succeeded"`
	Failed         int64         `json:"failed" yaml:"failed"`
	HasData        bool          `json:"has_data" yaml:"has_data"`
	HasThroughput  bool          `json:"has_throughput" yaml:"has_throughput"`
	SuccessRatio   float64       `json:"success_ratio" yaml:"success_ratio"`
	Throughput     float64       `json:"requests_per_sec" yaml:"requests_per_sec"`
	MinLatency     time.Duration `json:"-" yaml:"-"`
	MaxLatency     time.Duration `json:"-" yaml:"-"`
	SumLatency     time.Duration `json:"-" yaml:"-"`
	MeanLatency    time.Duration `json:"-" yaml:"-"`
	P50Latency     time.Duration `json:"-" yaml:"-"`
	P90Latency     time.Duration `json:"-" yaml:"-"`
	P99Latency     time.Duration `json:"-" yaml:"-"`
	RunDuration    time.Duration `json:"-" yaml:"-"`
	DispatchWindow time.Duration `json:"-" yaml:"-"`

	// JSON-friendly millisecond fields.
	MinLatencyMs     float64        `json:"min_latency_ms" yaml:"min_latency_ms"`
	MaxLatencyMs     float64        `json:"max_latency_ms" yaml:"max_latency_ms"`
	MeanLatencyMs    float64        `json:"mean_latency_ms" yaml:"mean_latency_ms"`
	P50LatencyMs     float64        `json:"p50_latency_ms" yaml:"p50_latency_ms"`
	P90LatencyMs     float64        `json:"p90_latency_ms" yaml:"p90_latency_ms"`
	P99LatencyMs     float64        `json:"p99_latency_ms" yaml:"p99_latency_ms"`
	RunDurationMs    float64        `json:"run_duration_ms" yaml:"run_duration_ms"`
	DispatchWindowMs float64        `json:"dispatch_window_ms" yaml:"dispatch_window_ms"`
	Errors           map[string]int `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		failuresKind: make(map[string]int64),
	}
}

// Accumulate folds a batch of samples into a new collector.
func Accumulate[S Sample](samples []S) *Collector {
	c := NewCollector()
	for _, s := range samples {
		c.record(s.Latency(), s.Failed(), "")
	}
	return c
}

// Record records a single unit's latency and error state.
func (c *Collector) Record(latency time.Duration, err error) {
	kind := ""
	if err != nil {
		kind = Classify(err)
	}
	c.record(latency, err != nil, kind)
}

func (c *Collector) record(latency time.Duration, failed bool, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency < 0 {
		latency = 0
	}
	us := latency.Microseconds()
	if us < c.hist.LowestTrackableValue() {
		us = c.hist.LowestTrackableValue()
	}
	if us > c.hist.HighestTrackableValue() {
		us = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(us)

	if c.succeeded+c.failed == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}
	c.sumLatency += latency

	if !failed {
		c.succeeded++
		return
	}
	c.failed++
	if kind != "" {
		c.failuresKind[kind]++
	}
}

// Stats computes aggregated statistics. window is the dispatch window used
// for throughput; run is the whole workflow duration.
func (c *Collector) Stats(window, run time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.succeeded + c.failed
	stats := Stats{
		Total:          total,
		Succeeded:      c.succeeded,
		Failed:         c.failed,
		RunDuration:    run,
		DispatchWindow: window,
		RunDurationMs:  toMillis(run),
	}
	stats.DispatchWindowMs = toMillis(window)

	if total == 0 {
		return stats
	}

	stats.HasData = true
	stats.MinLatency = c.minLatency
	stats.MaxLatency = c.maxLatency
	stats.SumLatency = c.sumLatency
	stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
	stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
	stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	stats.SuccessRatio = round2(float64(c.succeeded) / float64(total) * 100)

	stats.MinLatencyMs = toMillis(stats.MinLatency)
	stats.MaxLatencyMs = toMillis(stats.MaxLatency)
	stats.MeanLatencyMs = round2(toMillis(c.sumLatency) / float64(total))
	stats.P50LatencyMs = toMillis(stats.P50Latency)
	stats.P90LatencyMs = toMillis(stats.P90Latency)
	stats.P99LatencyMs = toMillis(stats.P99Latency)

	if window > 0 {
		stats.HasThroughput = true
		stats.Throughput = round2(float64(total) / window.Seconds())
	}

	if len(c.failuresKind) > 0 {
		stats.Errors = make(map[string]int, len(c.failuresKind))
		for k, v := range c.failuresKind {
			stats.Errors[k] = int(v)
		}
	}
	return stats
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
