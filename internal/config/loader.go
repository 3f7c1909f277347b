package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvToken overrides the token from the config file.
const EnvToken = "ISSUECRANK_TOKEN"

// ErrConfigRequired is returned when no config file path is given.
var ErrConfigRequired = errors.New("config file is required (use --config)")

// Loader handles loading configuration from files, environment and flags.
type Loader struct{}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the config file at path, applies the token environment
// override and any changed flags in fs. fs may be nil.
func (Loader) Load(path string, fs *pflag.FlagSet) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrConfigRequired
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("toml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.BindEnv("token", EnvToken); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.ConfigFile = path

	if err := applyConfigSettings(&cfg, v.AllSettings()); err != nil {
		return nil, err
	}
	// Environment wins over the file.
	if token := strings.TrimSpace(v.GetString("token")); token != "" {
		cfg.Token = token
	}

	if fs != nil {
		if err := applyFlagOverrides(&cfg, fs); err != nil {
			return nil, err
		}
	}

	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	cfg.IssueType = strings.ToLower(strings.TrimSpace(cfg.IssueType))
	cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(string(cfg.Output))))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	return &cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
// Keys are accepted in snake_case, camelCase and kebab-case.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	stringFields := []struct {
		dst        *string
		candidates []string
	}{
		{&cfg.Token, []string{"token"}},
		{&cfg.BaseURL, []string{"base_url", "baseurl", "base-url"}},
		{&cfg.ProjectID, []string{"project_id", "projectid", "project-id"}},
		{&cfg.IssueType, []string{"issue_type", "issuetype", "issue-type"}},
		{&cfg.LogLevel, []string{"log_level", "loglevel", "log-level"}},
	}
	for _, f := range stringFields {
		if raw, ok := lookupSetting(settings, f.candidates...); ok {
			val, err := asString(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", f.candidates[0], err)
			}
			*f.dst = val
		}
	}

	intFields := []struct {
		dst        *int
		candidates []string
	}{
		{&cfg.IssueCount, []string{"issue_count", "issuecount", "issue-count"}},
		{&cfg.Concurrency, []string{"concurrency"}},
		{&cfg.Rate, []string{"rate"}},
		{&cfg.PerPage, []string{"per_page", "perpage", "per-page"}},
		{&cfg.Retries, []string{"retries"}},
	}
	for _, f := range intFields {
		if raw, ok := lookupSetting(settings, f.candidates...); ok {
			val, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", f.candidates[0], err)
			}
			*f.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		val, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = val
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		cfg.Output = OutputFormat(val)
	}

	if raw, ok := lookupSetting(settings, "echo"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("echo: %w", err)
		}
		cfg.Echo = val
	}

	if raw, ok := lookupSetting(settings, "progress"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("progress: %w", err)
		}
		cfg.Progress = val
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}
	cfg := base

	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		if cfg.Endpoint, err = asString(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		if cfg.Protocol, err = asString(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		if cfg.Insecure, err = asBool(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "samplerate", "sample-rate"); ok {
		if cfg.SampleRate, err = asFloat64(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "service_name", "servicename", "service-name"); ok {
		if cfg.ServiceName, err = asString(raw); err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		cfg.Propagate = &val
	}
	return cfg, nil
}
