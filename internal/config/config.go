package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"
)

// OutputFormat selects how the run summary is printed.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

const (
	MinIssueCount  = 1
	MaxIssueCount  = 100
	DefaultPerPage = 50
	MaxPerPage     = 100
)

// IssueTypes lists the issue types accepted by the issue_type override.
var IssueTypes = []string{
	"initiative",
	"epic",
	"user_story",
	"task",
	"issue",
	"feature",
	"bug",
	"test_case",
}

// ErrInvalidIssueType is returned for issue types outside IssueTypes.
var ErrInvalidIssueType = errors.New("invalid issue type")

var logLevels = []string{"debug", "info", "warn", "error"}

type Config struct {
	Token       string        `mapstructure:"token"`
	BaseURL     string        `mapstructure:"base_url"`
	ProjectID   string        `mapstructure:"project_id"`
	IssueCount  int           `mapstructure:"issue_count"`
	IssueType   string        `mapstructure:"issue_type"`
	Concurrency int           `mapstructure:"concurrency"`
	Rate        int           `mapstructure:"rate"`
	PerPage     int           `mapstructure:"per_page"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	Output      OutputFormat  `mapstructure:"output"`
	LogLevel    string        `mapstructure:"log_level"`
	Echo        bool          `mapstructure:"echo"`
	Progress    bool          `mapstructure:"progress"`
	Thresholds  []string      `mapstructure:"thresholds"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	ConfigFile  string        `mapstructure:"-"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	ServiceName string  `mapstructure:"service_name"`
	Propagate   *bool   `mapstructure:"propagate"` // nil means propagate when enabled
}

// Enabled reports whether an OTLP endpoint is configured, directly or
// through OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether W3C trace headers go on API calls.
func (t TracingConfig) ShouldPropagate() bool {
	if !t.Enabled() {
		return false
	}
	if t.Propagate != nil {
		return *t.Propagate
	}
	return true
}

// Default returns a Config carrying every default value.
func Default() Config {
	return Config{
		PerPage:  DefaultPerPage,
		Timeout:  30 * time.Second,
		Output:   OutputText,
		LogLevel: "warn",
		Echo:     true,
		Tracing:  TracingConfig{SampleRate: 1.0},
	}
}

// ParseIssueType normalizes an issue type and checks it against IssueTypes.
func ParseIssueType(value string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if !slices.Contains(IssueTypes, normalized) {
		return "", fmt.Errorf("%w %q: must be one of %s", ErrInvalidIssueType, value, strings.Join(IssueTypes, ", "))
	}
	return normalized, nil
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks every setting and reports all problems at once. The same
// rules apply to every command, so a crawl config still needs a valid
// issue_count.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Token) == "" {
		issues = append(issues, "token is required (or set "+EnvToken+")")
	}
	issues = append(issues, validateBaseURL(c.BaseURL)...)
	if strings.TrimSpace(c.ProjectID) == "" {
		issues = append(issues, "project_id is required")
	}
	if c.IssueCount < MinIssueCount || c.IssueCount > MaxIssueCount {
		issues = append(issues, fmt.Sprintf("issue_count must be between %d and %d, got %d", MinIssueCount, MaxIssueCount, c.IssueCount))
	}
	if c.IssueType != "" {
		if _, err := ParseIssueType(c.IssueType); err != nil {
			issues = append(issues, "issue_type: "+err.Error())
		}
	}

	if c.Concurrency < 0 {
		issues = append(issues, "concurrency must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.PerPage < 1 || c.PerPage > MaxPerPage {
		issues = append(issues, fmt.Sprintf("per_page must be between 1 and %d", MaxPerPage))
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}

	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output %q is not supported (text, json, yaml)", c.Output))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		issues = append(issues, fmt.Sprintf("log_level %q is not supported (%s)", c.LogLevel, strings.Join(logLevels, ", ")))
	}

	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateBaseURL(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{"base_url is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return []string{fmt.Sprintf("base_url is invalid: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []string{"base_url must use http or https"}
	}
	if u.Host == "" {
		return []string{"base_url must include a host"}
	}
	return nil
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing.protocol %q is not supported (grpc, http)", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, "tracing.sample_rate must be between 0.0 and 1.0")
	}
	return issues
}
