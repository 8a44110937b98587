package scheduler

import (
	"context"
	"time"
)

// Job is one schedulable unit of work. Implementations wrap a whole ETL
// invocation; the scheduler only cares about the name, the cron expression
// and whether the run returned an error.
type Job interface {
	Name() string

	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds field included.
	// Examples: "0 0 6 * * *", "@hourly".
	Schedule() string
}

// historyCap bounds how many results are retained per job
const historyCap = 100

// JobResult records one finished invocation
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps the most recent results of one job, oldest first.
// Not safe for concurrent use; the scheduler serializes access.
type JobHistory struct {
	results []JobResult
}

// Add appends a result, dropping the oldest beyond historyCap
func (h *JobHistory) Add(r JobResult) {
	h.results = append(h.results, r)
	if len(h.results) > historyCap {
		h.results = h.results[len(h.results)-historyCap:]
	}
}

// Last returns the most recent result, if any
func (h *JobHistory) Last() (JobResult, bool) {
	if len(h.results) == 0 {
		return JobResult{}, false
	}
	return h.results[len(h.results)-1], true
}

// Counts returns how many results are retained and how many of those failed
func (h *JobHistory) Counts() (total, failed int) {
	total = len(h.results)
	for _, r := range h.results {
		if !r.Success {
			failed++
		}
	}
	return total, failed
}

// SuccessRate is the share of retained results that succeeded
func (h *JobHistory) SuccessRate() float64 {
	total, failed := h.Counts()
	if total == 0 {
		return 0
	}
	return float64(total-failed) / float64(total)
}
