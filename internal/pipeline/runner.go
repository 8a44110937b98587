// Package pipeline runs the source pipelines and aggregates their outcomes.
// Each pipeline is a small state machine (FETCHING, VALIDATING, WRITING) that
// converts every failure into a terminal outcome; nothing a pipeline does can
// take down its siblings or the process.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/pkg/logger"
)

// Runner drives one source pipeline from fetch to write
type Runner struct {
	adapter   contracts.Adapter
	validator contracts.Validator
	writer    contracts.Writer
	retry     RetryPolicy
	logger    *logger.Logger
}

// NewRunner wires one pipeline
func NewRunner(adapter contracts.Adapter, validator contracts.Validator, writer contracts.Writer, retry RetryPolicy, log *logger.Logger) *Runner {
	return &Runner{
		adapter:   adapter,
		validator: validator,
		writer:    writer,
		retry:     retry,
		logger:    log.WithField("pipeline", adapter.Name()),
	}
}

// Name returns the pipeline name
func (r *Runner) Name() string { return r.adapter.Name() }

// Run executes one invocation and always returns a terminal outcome.
// Errors and panics are absorbed here: the caller sees ABORTED, never a
// propagated failure.
func (r *Runner) Run(ctx context.Context, w contracts.Window) (outcome contracts.RunOutcome) {
	outcome = contracts.RunOutcome{
		Pipeline:  r.adapter.Name(),
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		outcome.Duration = time.Since(outcome.StartedAt)

		if rec := recover(); rec != nil {
			outcome.Status = contracts.StatusFailed
			outcome.State = contracts.StateAborted
			outcome.Error = fmt.Sprintf("panic: %v", rec)
			r.logger.WithField("panic", fmt.Sprintf("%v", rec)).Error("Pipeline panicked")
		}
	}()

	// FETCHING
	outcome.State = contracts.StateFetching
	r.logger.WithFields(map[string]interface{}{
		"mode": string(w.Mode),
		"from": w.From.Format("2006-01-02"),
		"to":   w.To.Format("2006-01-02"),
	}).Info("Pipeline started")

	var rows []contracts.Row
	err := r.retry.Do(ctx, func() error {
		fetched, ferr := r.adapter.Fetch(ctx, w)
		if ferr != nil {
			return ferr
		}
		rows = fetched
		return nil
	})
	if err != nil {
		return r.abort(outcome, err)
	}
	outcome.Fetched = len(rows)

	// VALIDATING
	outcome.State = contracts.StateValidating
	report := r.validator.Validate(r.adapter.Fact(), rows, time.Now().UTC())
	outcome.Rejected = report.Rejected
	outcome.Issues = report.Issues

	if !report.Accepted {
		return r.abort(outcome, &contracts.ValidationRejectedError{
			Fact:     r.adapter.Fact(),
			Rejected: report.Rejected,
			Total:    report.Total,
			Reason:   report.Reason,
		})
	}

	for _, warning := range report.Warnings() {
		r.logger.WithFields(map[string]interface{}{
			"rule":    warning.Rule,
			"message": warning.Message,
		}).Warn("Validation warning")
	}

	// WRITING
	outcome.State = contracts.StateWriting
	written, err := r.writer.Write(ctx, r.adapter.Fact(), report.Rows)
	if err != nil {
		return r.abort(outcome, err)
	}
	outcome.Written = written

	// DONE
	outcome.State = contracts.StateDone
	if outcome.Rejected > 0 || len(report.Warnings()) > 0 {
		outcome.Status = contracts.StatusPartial
	} else {
		outcome.Status = contracts.StatusSuccess
	}

	r.logger.WithFields(map[string]interface{}{
		"status":   string(outcome.Status),
		"fetched":  outcome.Fetched,
		"written":  outcome.Written,
		"rejected": outcome.Rejected,
		"duration": time.Since(outcome.StartedAt),
	}).Info("Pipeline finished")
	return outcome
}

// abort converts an error into the terminal aborted outcome
func (r *Runner) abort(outcome contracts.RunOutcome, err error) contracts.RunOutcome {
	outcome.Status = contracts.StatusFailed
	outcome.State = contracts.StateAborted
	outcome.Error = err.Error()

	r.logger.WithError(err).Error("Pipeline aborted")
	return outcome
}
