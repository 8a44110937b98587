package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/pkg/config"
	"github.com/marketdash/etl/pkg/logger"
)

// AggregateStatus summarizes one invocation across all pipelines
type AggregateStatus string

const (
	AggregateAllSuccess AggregateStatus = "all-success"
	AggregatePartial    AggregateStatus = "partial"
	AggregateAllFailed  AggregateStatus = "all-failed"
)

// Summary is the result of one orchestrated invocation
type Summary struct {
	Status   AggregateStatus
	Outcomes []contracts.RunOutcome
	Window   contracts.Window
	Duration time.Duration
}

// ExitCode maps the aggregate status to a process exit code.
// Partial results are normal operation for independent sources; only a run
// where every pipeline failed signals a broken invocation.
func (s Summary) ExitCode() int {
	if s.Status == AggregateAllFailed {
		return 1
	}
	return 0
}

// Orchestrator runs a set of independent pipelines with a bounded worker
// pool and aggregates their outcomes. Pipelines never see each other:
// one failing source must not cost the others their refresh.
type Orchestrator struct {
	runners []*Runner
	workers int
	logger  *logger.Logger

	incrementalLookback time.Duration
	fullLookback        time.Duration
}

// NewOrchestrator wires the orchestrator
func NewOrchestrator(cfg *config.Config, log *logger.Logger, runners ...*Runner) *Orchestrator {
	return &Orchestrator{
		runners:             runners,
		workers:             cfg.ETL.Workers,
		logger:              log,
		incrementalLookback: cfg.ETL.IncrementalLookback,
		fullLookback:        cfg.ETL.FullLookback,
	}
}

// Run executes every pipeline once for the given mode and aggregates the
// outcomes. Outcome order matches runner order regardless of scheduling.
func (o *Orchestrator) Run(ctx context.Context, mode contracts.Mode) Summary {
	start := time.Now().UTC()
	window := o.window(mode, start)

	o.logger.WithFields(map[string]interface{}{
		"mode":      string(mode),
		"pipelines": len(o.runners),
		"workers":   o.workers,
	}).Info("Invocation started")

	outcomes := make([]contracts.RunOutcome, len(o.runners))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = o.runners[idx].Run(ctx, window)
			}
		}()
	}

	for idx := range o.runners {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	summary := Summary{
		Status:   aggregate(outcomes),
		Outcomes: outcomes,
		Window:   window,
		Duration: time.Since(start),
	}

	o.logger.WithFields(map[string]interface{}{
		"status":   string(summary.Status),
		"duration": summary.Duration,
	}).Info("Invocation finished")
	return summary
}

// window derives the fetch window for a mode, ending now
func (o *Orchestrator) window(mode contracts.Mode, now time.Time) contracts.Window {
	lookback := o.incrementalLookback
	if mode == contracts.ModeFullRefresh {
		lookback = o.fullLookback
	}
	return contracts.Window{
		From: now.Add(-lookback),
		To:   now,
		Mode: mode,
	}
}

// aggregate folds outcomes into the invocation status
func aggregate(outcomes []contracts.RunOutcome) AggregateStatus {
	if len(outcomes) == 0 {
		return AggregateAllFailed
	}

	succeeded := 0
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded++
		}
	}

	switch succeeded {
	case len(outcomes):
		return AggregateAllSuccess
	case 0:
		return AggregateAllFailed
	default:
		return AggregatePartial
	}
}
