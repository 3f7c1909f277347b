package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/issuecrank/internal/metrics"
	"github.com/torosent/issuecrank/internal/runner"
	"github.com/torosent/issuecrank/internal/tracing"
	"github.com/torosent/issuecrank/internal/tracker"
)

// CrawlProject fetches the detail of every active issue in the configured
// project, one listing page at a time.
func (o *Orchestrator) CrawlProject(ctx context.Context) (metrics.Stats, error) {
	r := o.newRun("crawl-issues")
	ctx, span := tracing.StartRunSpan(ctx, o.tracer, "crawl-issues", r.id)
	stats, err := o.crawlProject(ctx, r)
	tracing.EndSpan(span, err)
	return stats, err
}

func (o *Orchestrator) crawlProject(ctx context.Context, r *run) (metrics.Stats, error) {
	if err := o.login(ctx); err != nil {
		return metrics.Stats{}, err
	}
	project, err := o.project(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}

	stop := o.startProgress(r)
	windowStart := time.Now()
	err = o.crawlIssues(ctx, r, project)
	window := time.Since(windowStart)
	stop()
	if err != nil {
		return metrics.Stats{}, err
	}
	return r.stats(window), nil
}

// CrawlAllProjects lists every active project visible to the user and crawls
// each in turn. All projects share one summary.
func (o *Orchestrator) CrawlAllProjects(ctx context.Context) (metrics.Stats, error) {
	r := o.newRun("crawl-all-issues")
	ctx, span := tracing.StartRunSpan(ctx, o.tracer, "crawl-all-issues", r.id)
	stats, err := o.crawlAllProjects(ctx, r)
	tracing.EndSpan(span, err)
	return stats, err
}

func (o *Orchestrator) crawlAllProjects(ctx context.Context, r *run) (metrics.Stats, error) {
	if err := o.login(ctx); err != nil {
		return metrics.Stats{}, err
	}

	projects, err := runner.CollectAll(ctx, o.projectPages(r))
	if err != nil {
		return metrics.Stats{}, fmt.Errorf("list projects: %w", err)
	}
	o.printf("Visible projects: %d\n", len(projects))

	stop := o.startProgress(r)
	windowStart := time.Now()
	for _, project := range projects {
		o.printf("Crawling issues for project %s:%s\n", project.Key, project.Name)
		if err = o.crawlIssues(ctx, r, project); err != nil {
			break
		}
	}
	window := time.Since(windowStart)
	stop()
	if err != nil {
		return metrics.Stats{}, err
	}
	return r.stats(window), nil
}

// crawlIssues walks the issue listing of one project and fetches the detail
// of every listed issue. Outcomes stream into the run collector.
func (o *Orchestrator) crawlIssues(ctx context.Context, r *run, project tracker.Project) error {
	fetchUnit := func(issue tracker.Issue) runner.Unit[tracker.Issue] {
		return o.fetchUnit(r, project.ID, issue.ID)
	}
	_, err := runner.Crawl(ctx, o.dispatchOptions(r), o.issuePages(r, project.ID), fetchUnit)
	if err != nil {
		return fmt.Errorf("crawl project %s: %w", project.Key, err)
	}
	return nil
}

func (o *Orchestrator) issuePages(r *run, projectID string) runner.PageFunc[tracker.Issue] {
	return func(ctx context.Context, page int) (runner.Page[tracker.Issue], error) {
		ctx, span := tracing.StartUnitSpan(ctx, o.tracer, "list-issues",
			tracing.AttrProjectID.String(projectID),
			tracing.AttrPage.Int(page),
		)
		result, err := o.api.Issues(ctx, projectID, page, o.cfg.PerPage)
		tracing.EndSpan(span, err)
		if err == nil {
			r.logger.Debug("issue page",
				zap.String("project_id", projectID),
				zap.Int("page", page),
				zap.Int("items", len(result.Data)),
				zap.Int("total_pages", result.Meta.TotalPages),
			)
		}
		return result, err
	}
}

func (o *Orchestrator) projectPages(r *run) runner.PageFunc[tracker.Project] {
	return func(ctx context.Context, page int) (runner.Page[tracker.Project], error) {
		result, err := o.api.Projects(ctx, page, o.cfg.PerPage)
		if err == nil {
			r.logger.Debug("project page", zap.Int("page", page), zap.Int("items", len(result.Data)))
		}
		return result, err
	}
}

func (o *Orchestrator) fetchUnit(r *run, projectID, issueID string) runner.Unit[tracker.Issue] {
	call := func(ctx context.Context) (tracker.Issue, error) {
		ctx, span := tracing.StartUnitSpan(ctx, o.tracer, "fetch-issue",
			tracing.AttrProjectID.String(projectID),
			tracing.AttrIssueID.String(issueID),
			tracing.AttrRunID.String(r.id),
		)
		issue, err := o.api.Issue(ctx, projectID, issueID)
		tracing.EndSpan(span, err)
		return issue, err
	}
	return o.echo(instrument(o, r, call, tracker.ShouldRetry))
}
