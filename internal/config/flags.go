package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// RegisterFlags sets up all CLI flags on the provided flag set. Commands
// register them as persistent flags on the root command.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "Path to config file (TOML, YAML or JSON)")

	flags.String("base-url", "", "API base URL (overrides config)")
	flags.String("project-id", "", "Project identifier (overrides config)")
	flags.Int("issue-count", 0, "Number of issues to create (1-100)")
	flags.String("issue-type", "", "Issue type override: "+strings.Join(IssueTypes, ", "))

	flags.Int("concurrency", 0, "Maximum units in flight (0 = one worker per unit)")
	flags.Int("rate", 0, "Unit starts per second (0 = unlimited)")
	flags.Int("per-page", DefaultPerPage, "Page size for crawled listings")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")
	flags.Int("retries", 0, "Retries per unit on transport errors and 5xx/429 responses")

	flags.StringP("output", "o", string(OutputText), "Summary format: text, json or yaml")
	flags.String("log-level", "warn", "Log level: debug, info, warn or error")
	flags.Bool("echo", true, "Print a line for every created or fetched issue")
	flags.Bool("progress", false, "Show a live progress line on stderr")
	flags.StringSlice("threshold", nil, "Pass/fail threshold (repeatable, e.g. 'req_duration:p99 < 500')")

	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling ratio (0.0-1.0)")
	flags.String("tracing-service-name", "", "Service name reported to the collector")
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file. Only flags the user set are applied.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"base-url", &cfg.BaseURL},
		{"project-id", &cfg.ProjectID},
		{"issue-type", &cfg.IssueType},
		{"log-level", &cfg.LogLevel},
		{"tracing-endpoint", &cfg.Tracing.Endpoint},
		{"tracing-protocol", &cfg.Tracing.Protocol},
		{"tracing-service-name", &cfg.Tracing.ServiceName},
	}
	for _, f := range strs {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetString(f.name)
		if err != nil {
			return err
		}
		*f.dst = val
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"issue-count", &cfg.IssueCount},
		{"concurrency", &cfg.Concurrency},
		{"rate", &cfg.Rate},
		{"per-page", &cfg.PerPage},
		{"retries", &cfg.Retries},
	}
	for _, f := range ints {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetInt(f.name)
		if err != nil {
			return err
		}
		*f.dst = val
	}

	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(val)
	}
	if fs.Changed("echo") {
		val, err := fs.GetBool("echo")
		if err != nil {
			return err
		}
		cfg.Echo = val
	}
	if fs.Changed("progress") {
		val, err := fs.GetBool("progress")
		if err != nil {
			return err
		}
		cfg.Progress = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	return nil
}
