package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/torosent/issuecrank/internal/metrics"
)

// PrintReport outputs the human-readable run summary, preceded by a blank
// line so it stands apart from echo output.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total requests: %s\n", humanize.Comma(stats.Total))
	fmt.Fprintf(w, "Succeed: %s\n", humanize.Comma(stats.Succeeded))
	fmt.Fprintf(w, "Failed: %s\n", humanize.Comma(stats.Failed))

	if !stats.HasData {
		fmt.Fprintln(w, "No requests completed; latency and throughput are unavailable.")
		fmt.Fprintf(w, "Run duration: %d ms\n", stats.RunDuration.Milliseconds())
		return
	}

	fmt.Fprintf(w, "Success rate: %.2f%%\n", stats.SuccessRatio)
	fmt.Fprintf(w, "Min: %d ms\n", stats.MinLatency.Milliseconds())
	fmt.Fprintf(w, "Avg: %.2f ms\n", stats.MeanLatencyMs)
	fmt.Fprintf(w, "Max: %d ms\n", stats.MaxLatency.Milliseconds())
	fmt.Fprintf(w, "P50: %s ms\n", formatMs(stats.P50Latency))
	fmt.Fprintf(w, "P90: %s ms\n", formatMs(stats.P90Latency))
	fmt.Fprintf(w, "P99: %s ms\n", formatMs(stats.P99Latency))
	if stats.HasThroughput {
		fmt.Fprintf(w, "Requests per second: %.2f\n", stats.Throughput)
	} else {
		fmt.Fprintln(w, "Requests per second: n/a")
	}
	fmt.Fprintf(w, "Run duration: %d ms\n", stats.RunDuration.Milliseconds())

	if buckets := stats.FailureBuckets(); len(buckets) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, b := range buckets {
			fmt.Fprintf(w, "  %s: %s\n", b.Kind, humanize.Comma(int64(b.Count)))
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, stats metrics.Stats) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(stats); err != nil {
		return err
	}
	return enc.Close()
}

func formatMs(d time.Duration) string {
	return humanize.FtoaWithDigits(float64(d)/float64(time.Millisecond), 2)
}
