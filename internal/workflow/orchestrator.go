// Package workflow sequences the three run modes: bulk issue creation,
// single-project crawl and all-projects crawl.
//
// Each workflow prints its progress lines to the output writer, fans the
// API calls out through runner.Dispatch and returns the aggregated stats.
// Setup failures (login, project or metadata fetch, page fetch) are fatal;
// failures of individual units are only counted.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/torosent/issuecrank/internal/config"
	"github.com/torosent/issuecrank/internal/logging"
	"github.com/torosent/issuecrank/internal/metrics"
	"github.com/torosent/issuecrank/internal/output"
	"github.com/torosent/issuecrank/internal/payload"
	"github.com/torosent/issuecrank/internal/runner"
	"github.com/torosent/issuecrank/internal/threshold"
	"github.com/torosent/issuecrank/internal/tracker"
)

// ErrThresholdsFailed is returned by Report when at least one threshold fails.
var ErrThresholdsFailed = errors.New("thresholds failed")

const initialRetryDelay = 100 * time.Millisecond

// API is the subset of the tracker client the workflows call.
type API interface {
	Me(ctx context.Context) (tracker.User, error)
	Project(ctx context.Context, projectID string) (tracker.Project, error)
	Labels(ctx context.Context, projectID string) ([]tracker.Label, error)
	Statuses(ctx context.Context, projectID string) ([]tracker.IssueStatus, error)
	Initiatives(ctx context.Context, projectID string) ([]tracker.Issue, error)
	Epics(ctx context.Context, projectID string) ([]tracker.Issue, error)
	Members(ctx context.Context, projectID string) ([]tracker.ProjectMember, error)
	Issues(ctx context.Context, projectID string, page, perPage int) (runner.Page[tracker.Issue], error)
	Issue(ctx context.Context, projectID, issueID string) (tracker.Issue, error)
	CreateIssue(ctx context.Context, projectID string, body tracker.CreateIssueRequest) (tracker.Issue, error)
	Projects(ctx context.Context, page, perPage int) (runner.Page[tracker.Project], error)
}

// Orchestrator runs workflows against one tracker.
type Orchestrator struct {
	api        API
	cfg        config.Config
	out        *syncWriter
	progress   io.Writer
	logger     *zap.Logger
	tracer     trace.Tracer
	synth      *payload.Synthesizer
	thresholds []threshold.Threshold
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

func WithSynthesizer(s *payload.Synthesizer) Option {
	return func(o *Orchestrator) { o.synth = s }
}

// WithProgress sets where the live progress line goes when cfg.Progress is
// on. Defaults to stderr.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) { o.progress = w }
}

// New validates the threshold expressions in cfg and returns an orchestrator
// printing to out.
func New(api API, cfg config.Config, out io.Writer, opts ...Option) (*Orchestrator, error) {
	if api == nil {
		return nil, errors.New("api client is required")
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}

	o := &Orchestrator{
		api:        api,
		cfg:        cfg,
		out:        &syncWriter{w: out},
		progress:   os.Stderr,
		thresholds: thresholds,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer("")
	}
	if o.synth == nil {
		o.synth = payload.New()
	}
	return o, nil
}

// Report prints the summary in the configured format, then evaluates the
// thresholds.
func (o *Orchestrator) Report(stats metrics.Stats) error {
	switch o.cfg.Output {
	case config.OutputJSON:
		if err := output.PrintJSONReport(o.out, stats); err != nil {
			return err
		}
	case config.OutputYAML:
		if err := output.PrintYAMLReport(o.out, stats); err != nil {
			return err
		}
	default:
		output.PrintReport(o.out, stats)
	}

	results := threshold.NewEvaluator(o.thresholds).Evaluate(stats)
	if len(results) == 0 {
		return nil
	}
	if o.cfg.Output == config.OutputText || o.cfg.Output == "" {
		fmt.Fprintln(o.out, "\nThresholds:")
		for _, r := range results {
			fmt.Fprintf(o.out, "  %s\n", r.Message)
		}
	} else {
		for _, r := range results {
			if !r.Pass {
				o.logger.Warn("threshold failed", zap.String("threshold", r.Threshold.Raw), zap.Float64("actual", r.Actual))
			}
		}
	}
	if !threshold.AllPassed(results) {
		return ErrThresholdsFailed
	}
	return nil
}

// run carries the state shared by one workflow invocation.
type run struct {
	id        string
	start     time.Time
	collector *metrics.Collector
	logger    *zap.Logger
	failures  *logging.FailureLogger
	dispatch  *runner.Options
}

func (o *Orchestrator) newRun(operation string) *run {
	id := ulid.Make().String()
	logger := o.logger.With(zap.String("run_id", id), zap.String("workflow", operation))
	return &run{
		id:        id,
		start:     time.Now(),
		collector: metrics.NewCollector(),
		logger:    logger,
		failures:  logging.NewFailureLogger(logger, operation),
	}
}

func (r *run) stats(window time.Duration) metrics.Stats {
	stats := r.collector.Stats(window, time.Since(r.start))
	stats.RunID = r.id
	return stats
}

// dispatchOptions returns the run's dispatch settings. The rate limiter is
// built on first use and shared by every batch of the run.
func (o *Orchestrator) dispatchOptions(r *run) runner.Options {
	if r.dispatch == nil {
		opts := runner.Options{
			Concurrency:   o.cfg.Concurrency,
			RatePerSecond: o.cfg.Rate,
			Observer:      r.collector.Record,
		}.Shared()
		r.dispatch = &opts
	}
	return *r.dispatch
}

// startProgress starts the live progress line if enabled. The returned
// function stops it.
func (o *Orchestrator) startProgress(r *run) func() {
	if !o.cfg.Progress {
		return func() {}
	}
	reporter := output.NewProgressReporter(r.collector, time.Second, o.progress)
	reporter.Start()
	return reporter.Stop
}

// login prints the authenticated user.
func (o *Orchestrator) login(ctx context.Context) error {
	user, err := o.api.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetch current user: %w", err)
	}
	o.printf("Logged in as: %s\n", user.Username)
	return nil
}

func (o *Orchestrator) project(ctx context.Context) (tracker.Project, error) {
	project, err := o.api.Project(ctx, o.cfg.ProjectID)
	if err != nil {
		return tracker.Project{}, fmt.Errorf("fetch project %s: %w", o.cfg.ProjectID, err)
	}
	o.printf("%s: %s\n", project.Key, project.Name)
	return project, nil
}

// instrument adds retry and failure logging around a unit. shouldRetry
// decides which failures are safe to repeat for this kind of call.
func instrument[T any](o *Orchestrator, r *run, unit runner.Unit[T], shouldRetry func(error) bool) runner.Unit[T] {
	unit = runner.WithRetry(unit, runner.ExponentialPolicy(o.cfg.Retries, initialRetryDelay, shouldRetry))
	return runner.WithLogging(unit, r.failures)
}

// echo prints "KEY: title --> N ms" for every successful unit.
func (o *Orchestrator) echo(unit runner.Unit[tracker.Issue]) runner.Unit[tracker.Issue] {
	if !o.cfg.Echo {
		return unit
	}
	return func(ctx context.Context) (tracker.Issue, error) {
		start := time.Now()
		issue, err := unit(ctx)
		if err == nil {
			o.printf("%s: %s --> %d ms\n", issue.Key, issue.Title, time.Since(start).Milliseconds())
		}
		return issue, err
	}
}

func (o *Orchestrator) printf(format string, args ...any) {
	fmt.Fprintf(o.out, format, args...)
}

// syncWriter serializes writes from concurrent units so lines never interleave.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
