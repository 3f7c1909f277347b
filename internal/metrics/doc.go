// Package metrics aggregates unit outcomes into run statistics.
//
// A [Collector] is a mutex-guarded accumulator. Workers stream outcomes into
// it with [Collector.Record]; a finished batch can also be folded in one call
// with [Accumulate]:
//
//	c := metrics.NewCollector()
//	c.Record(latency, err)
//	stats := c.Stats(dispatchWindow, runDuration)
//
// # Statistics
//
// [Stats] carries counts, min/max/mean latency, HdrHistogram percentiles,
// the success ratio and throughput, both rounded to two decimals. Throughput
// is computed over the dispatch window only, so setup time such as metadata
// fetches does not dilute it.
//
// An empty run reports HasData=false and a zero dispatch window reports
// HasThroughput=false; neither divides by zero.
//
// # Failures
//
// Failed outcomes recorded with an error are bucketed by [Classify]: HTTP
// failures by status code, everything else by a readable error type name.
package metrics
