// Package jobs defines the scheduled ETL invocations.
package jobs

import (
	"context"
	"fmt"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/internal/pipeline"
)

// IncrementalJob refreshes recent data twice an hour during US market hours
type IncrementalJob struct {
	orchestrator *pipeline.Orchestrator
}

// NewIncrementalJob creates the incremental refresh job
func NewIncrementalJob(o *pipeline.Orchestrator) *IncrementalJob {
	return &IncrementalJob{orchestrator: o}
}

func (j *IncrementalJob) Name() string { return "etl_incremental" }

// Schedule: every 30 minutes, 13:00-20:30 UTC, weekdays (NYSE session)
func (j *IncrementalJob) Schedule() string { return "0 0,30 13-20 * * MON-FRI" }

func (j *IncrementalJob) Run(ctx context.Context) error {
	return runInvocation(ctx, j.orchestrator, contracts.ModeIncremental)
}

// DailyJob refreshes recent data once a day, catching sources that publish
// off-session (macro releases, overnight news)
type DailyJob struct {
	orchestrator *pipeline.Orchestrator
}

// NewDailyJob creates the daily refresh job
func NewDailyJob(o *pipeline.Orchestrator) *DailyJob {
	return &DailyJob{orchestrator: o}
}

func (j *DailyJob) Name() string { return "etl_daily" }

// Schedule: every day at 06:00 UTC, before the US session opens
func (j *DailyJob) Schedule() string { return "0 0 6 * * *" }

func (j *DailyJob) Run(ctx context.Context) error {
	return runInvocation(ctx, j.orchestrator, contracts.ModeIncremental)
}

// FullRefreshJob rebuilds the configured history window weekly, picking up
// provider restatements and backfilling gaps left by failed runs
type FullRefreshJob struct {
	orchestrator *pipeline.Orchestrator
}

// NewFullRefreshJob creates the weekly full refresh job
func NewFullRefreshJob(o *pipeline.Orchestrator) *FullRefreshJob {
	return &FullRefreshJob{orchestrator: o}
}

func (j *FullRefreshJob) Name() string { return "etl_full_refresh" }

// Schedule: Mondays at 08:00 UTC, after the weekend lull
func (j *FullRefreshJob) Schedule() string { return "0 0 8 * * MON" }

func (j *FullRefreshJob) Run(ctx context.Context) error {
	return runInvocation(ctx, j.orchestrator, contracts.ModeFullRefresh)
}

// runInvocation executes one orchestrated run. Partial results are fine;
// only a run where every pipeline failed counts as a job failure.
func runInvocation(ctx context.Context, o *pipeline.Orchestrator, mode contracts.Mode) error {
	summary := o.Run(ctx, mode)
	if summary.Status == pipeline.AggregateAllFailed {
		return fmt.Errorf("all %d pipelines failed", len(summary.Outcomes))
	}
	return nil
}
