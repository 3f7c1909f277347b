package threshold

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/torosent/issuecrank/internal/metrics"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "p99 latency",
			input: "req_duration:p99 < 500",
			want:  Threshold{Metric: MetricDuration, Aggregate: "p99", Operator: "<", Value: 500, Raw: "req_duration:p99 < 500"},
		},
		{
			name:  "failure rate",
			input: "req_failed:rate < 0.01",
			want:  Threshold{Metric: MetricFailed, Aggregate: "rate", Operator: "<", Value: 0.01, Raw: "req_failed:rate < 0.01"},
		},
		{
			name:  "request count with surrounding space",
			input: "  requests:count>=50 ",
			want:  Threshold{Metric: MetricRequests, Aggregate: "count", Operator: ">=", Value: 50, Raw: "requests:count>=50"},
		},
		{name: "empty string", input: "", wantError: true},
		{name: "unknown metric", input: "http_req_duration:p99 < 5", wantError: true},
		{name: "unknown aggregate", input: "req_duration:p95 < 5", wantError: true},
		{name: "unknown operator", input: "req_duration:p99 != 5", wantError: true},
		{name: "missing value", input: "req_duration:p99 <", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantError {
				if err == nil {
					t.Fatalf("Parse(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMultipleCollectsErrors(t *testing.T) {
	_, err := ParseMultiple([]string{"req_duration:p99 < 5", "bogus", "nope:x < 1"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "threshold[1]") || !strings.Contains(err.Error(), "threshold[2]") {
		t.Fatalf("expected every bad entry to be reported, got %v", err)
	}

	got, err := ParseMultiple(nil)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for no thresholds, got %v, %v", got, err)
	}
}

func runStats() metrics.Stats {
	c := metrics.NewCollector()
	for i := 1; i <= 9; i++ {
		c.Record(time.Duration(i*10)*time.Millisecond, nil)
	}
	c.Record(200*time.Millisecond, errors.New("boom"))
	return c.Stats(2*time.Second, 3*time.Second)
}

func TestEvaluate(t *testing.T) {
	stats := runStats()

	tests := []struct {
		expr string
		pass bool
	}{
		{"req_duration:max <= 200", true},
		{"req_duration:min < 10", false},
		{"req_duration:avg < 100", true},
		{"req_failed:count == 1", true},
		{"req_failed:rate < 0.05", false},
		{"requests:count >= 10", true},
		{"requests:rate > 5", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			th, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			results := NewEvaluator([]Threshold{th}).Evaluate(stats)
			if len(results) != 1 {
				t.Fatalf("expected one result, got %d", len(results))
			}
			if results[0].Pass != tt.pass {
				t.Fatalf("pass = %v, want %v (%s)", results[0].Pass, tt.pass, results[0].Message)
			}
		})
	}
}

func TestLatencyThresholdFailsWithoutData(t *testing.T) {
	th, _ := Parse("req_duration:p99 < 500")
	results := NewEvaluator([]Threshold{th}).Evaluate(metrics.NewCollector().Stats(0, 0))
	if results[0].Pass {
		t.Fatal("a latency assertion over an empty run must fail")
	}
	if !strings.Contains(results[0].Message, ErrNoData.Error()) {
		t.Fatalf("unexpected message %q", results[0].Message)
	}
}

func TestAllPassed(t *testing.T) {
	if !AllPassed(nil) {
		t.Fatal("no results means nothing failed")
	}
	if AllPassed([]Result{{Pass: true}, {Pass: false}}) {
		t.Fatal("expected a failure to be reported")
	}
}

func TestCompareEpsilon(t *testing.T) {
	if !compare(0.1+0.2, "==", 0.3) {
		t.Fatal("expected float equality within epsilon")
	}
	if compare(1, "??", 1) {
		t.Fatal("unknown operators never pass")
	}
}
