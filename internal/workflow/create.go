package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/issuecrank/internal/metrics"
	"github.com/torosent/issuecrank/internal/payload"
	"github.com/torosent/issuecrank/internal/runner"
	"github.com/torosent/issuecrank/internal/tracing"
	"github.com/torosent/issuecrank/internal/tracker"
)

// ErrNoIssueType is returned when neither the config nor the project
// preferences name an issue type.
var ErrNoIssueType = errors.New("no issue type configured and project has no default")

// Create bulk-creates issue_count synthetic issues in the configured project.
func (o *Orchestrator) Create(ctx context.Context) (metrics.Stats, error) {
	r := o.newRun("create")
	ctx, span := tracing.StartRunSpan(ctx, o.tracer, "create", r.id)
	stats, err := o.create(ctx, r)
	tracing.EndSpan(span, err)
	return stats, err
}

func (o *Orchestrator) create(ctx context.Context, r *run) (metrics.Stats, error) {
	if err := o.login(ctx); err != nil {
		return metrics.Stats{}, err
	}
	project, err := o.project(ctx)
	if err != nil {
		return metrics.Stats{}, err
	}

	snap, err := o.snapshot(ctx, project.ID)
	if err != nil {
		return metrics.Stats{}, err
	}
	r.logger.Debug("metadata snapshot",
		zap.Int("labels", len(snap.Labels)),
		zap.Int("statuses", len(snap.Statuses)),
		zap.Int("initiatives", len(snap.Initiatives)),
		zap.Int("epics", len(snap.Epics)),
		zap.Int("members", len(snap.Members)),
	)

	var prefs tracker.ProjectPreferences
	if project.Preferences != nil {
		prefs = *project.Preferences
	}
	issueType := o.cfg.IssueType
	if issueType == "" {
		issueType = prefs.IssueType
	}
	if issueType == "" {
		return metrics.Stats{}, ErrNoIssueType
	}

	bodies, err := o.synth.SynthesizeBatch(o.cfg.IssueCount, issueType, prefs, snap)
	if err != nil {
		return metrics.Stats{}, fmt.Errorf("synthesize payloads: %w", err)
	}

	units := make([]runner.Unit[tracker.Issue], len(bodies))
	for i, body := range bodies {
		units[i] = o.createUnit(r, project.ID, body)
	}

	stop := o.startProgress(r)
	windowStart := time.Now()
	runner.Dispatch(ctx, o.dispatchOptions(r), units)
	window := time.Since(windowStart)
	stop()

	return r.stats(window), nil
}

// snapshot fetches the project metadata concurrently. The last status is
// dropped so issues are never created in the terminal column.
func (o *Orchestrator) snapshot(ctx context.Context, projectID string) (payload.Snapshot, error) {
	var snap payload.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		labels, err := o.api.Labels(gctx, projectID)
		if err != nil {
			return fmt.Errorf("fetch labels: %w", err)
		}
		snap.Labels = labels
		return nil
	})
	g.Go(func() error {
		statuses, err := o.api.Statuses(gctx, projectID)
		if err != nil {
			return fmt.Errorf("fetch statuses: %w", err)
		}
		if n := len(statuses); n > 0 {
			statuses = statuses[:n-1]
		}
		snap.Statuses = statuses
		return nil
	})
	g.Go(func() error {
		initiatives, err := o.api.Initiatives(gctx, projectID)
		if err != nil {
			return fmt.Errorf("fetch initiatives: %w", err)
		}
		snap.Initiatives = initiatives
		return nil
	})
	g.Go(func() error {
		epics, err := o.api.Epics(gctx, projectID)
		if err != nil {
			return fmt.Errorf("fetch epics: %w", err)
		}
		snap.Epics = epics
		return nil
	})
	g.Go(func() error {
		members, err := o.api.Members(gctx, projectID)
		if err != nil {
			return fmt.Errorf("fetch members: %w", err)
		}
		snap.Members = members
		return nil
	})

	if err := g.Wait(); err != nil {
		return payload.Snapshot{}, err
	}
	return snap, nil
}

func (o *Orchestrator) createUnit(r *run, projectID string, body tracker.CreateIssueRequest) runner.Unit[tracker.Issue] {
	call := func(ctx context.Context) (tracker.Issue, error) {
		ctx, span := tracing.StartUnitSpan(ctx, o.tracer, "create-issue",
			tracing.AttrProjectID.String(projectID),
			tracing.AttrRunID.String(r.id),
		)
		issue, err := o.api.CreateIssue(ctx, projectID, body)
		tracing.EndSpan(span, err, tracing.AttrIssueID.String(issue.ID))
		return issue, err
	}
	return o.echo(instrument(o, r, call, tracker.ShouldRetryCreate))
}
