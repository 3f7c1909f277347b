package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/torosent/issuecrank/internal/auth"
	"github.com/torosent/issuecrank/internal/config"
	"github.com/torosent/issuecrank/internal/httpclient"
	"github.com/torosent/issuecrank/internal/logging"
	"github.com/torosent/issuecrank/internal/metrics"
	"github.com/torosent/issuecrank/internal/tracing"
	"github.com/torosent/issuecrank/internal/tracker"
	"github.com/torosent/issuecrank/internal/workflow"
)

const shutdownTimeout = 5 * time.Second

// workflowFunc is one of the Orchestrator run modes.
type workflowFunc func(*workflow.Orchestrator, context.Context) (metrics.Stats, error)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := newRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "issuecrank",
		Short: "Load-test an issue tracker by creating and crawling issues",
		Long: `issuecrank drives an issue tracker REST API concurrently.

It bulk-creates synthetic issues in a project or crawls the detail of every
issue in one or all visible projects, then prints latency and throughput
statistics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		workflowCommand("create", "Create issue_count synthetic issues in the configured project", stdout, stderr,
			(*workflow.Orchestrator).Create),
		workflowCommand("crawl-issues", "Fetch every active issue of the configured project", stdout, stderr,
			(*workflow.Orchestrator).CrawlProject),
		workflowCommand("crawl-all-issues", "Fetch every active issue of every visible project", stdout, stderr,
			(*workflow.Orchestrator).CrawlAllProjects),
	)
	return root
}

func workflowCommand(use, short string, stdout, stderr io.Writer, fn workflowFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.NewLoader().Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return execute(cmd.Context(), *cfg, stdout, stderr, fn)
		},
	}
}

// execute wires the client stack for cfg, runs one workflow and prints its
// summary.
func execute(ctx context.Context, cfg config.Config, stdout, stderr io.Writer, fn workflowFunc) (err error) {
	logger, err := logging.New(cfg.LogLevel, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := provider.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("tracing shutdown failed", zap.Error(shutdownErr))
		}
	}()

	api, err := newTrackerClient(cfg, provider.ShouldPropagate())
	if err != nil {
		return err
	}

	orch, err := workflow.New(api, cfg, stdout,
		workflow.WithLogger(logger),
		workflow.WithTracer(provider.Tracer()),
		workflow.WithProgress(stderr),
	)
	if err != nil {
		return err
	}

	stats, err := fn(orch, ctx)
	if err != nil {
		return err
	}
	return orch.Report(stats)
}

func newTrackerClient(cfg config.Config, propagate bool) (*tracker.Client, error) {
	token, err := auth.NewBearerTokenProvider(cfg.Token)
	if err != nil {
		return nil, err
	}
	builder, err := httpclient.NewRequestBuilder(cfg.BaseURL, token, httpclient.WithTracePropagation(propagate))
	if err != nil {
		return nil, err
	}
	return tracker.NewClient(httpclient.NewClient(cfg.Timeout), builder), nil
}
