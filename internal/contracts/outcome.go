package contracts

import "time"

// RunState is the pipeline runner's state machine position
type RunState string

const (
	StateFetching   RunState = "FETCHING"
	StateValidating RunState = "VALIDATING"
	StateWriting    RunState = "WRITING"
	StateDone       RunState = "DONE"
	StateAborted    RunState = "ABORTED"
)

// RunStatus summarizes one pipeline invocation
type RunStatus string

const (
	StatusSuccess RunStatus = "success" // batch written, no issues
	StatusPartial RunStatus = "partial" // batch written, some rows rejected or warnings logged
	StatusFailed  RunStatus = "failed"  // run aborted, nothing written
)

// RunOutcome is the record of one pipeline invocation. It is logged, not
// persisted; the orchestrator aggregates outcomes into the invocation result.
type RunOutcome struct {
	Pipeline  string        `json:"pipeline"`
	Status    RunStatus     `json:"status"`
	State     RunState      `json:"state"` // terminal state reached
	Fetched   int           `json:"fetched"`
	Written   int           `json:"written"`
	Rejected  int           `json:"rejected"`
	Issues    []Issue       `json:"issues,omitempty"`
	Error     string        `json:"error,omitempty"` // one-line abort reason
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Succeeded reports whether the run reached DONE
func (o RunOutcome) Succeeded() bool {
	return o.State == StateDone
}

// Issue is one itemized validation finding.
// RowKey is empty for batch-level issues (e.g. freshness warnings).
type Issue struct {
	RowKey  string `json:"row_key,omitempty"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Validation rule names as they appear in issues and logs
const (
	RuleCompleteness = "completeness"
	RuleRange        = "range"
	RuleFreshness    = "freshness"
	RuleUniqueness   = "uniqueness"
	RuleConsistency  = "consistency"
)

// Report is the verdict of the data validator for one batch. Ephemeral:
// consumed by the pipeline runner to decide whether to write.
type Report struct {
	Fact     FactType
	Accepted bool
	Rows     []Row   // kept rows, deduplicated, input order preserved
	Issues   []Issue // ordered as encountered
	Total    int     // rows in the incoming batch
	Rejected int     // rows dropped by completeness/range/consistency rules
	Reason   string  // set when the whole batch is rejected
}

// Warnings returns the batch-level issues that did not reject any row
func (r *Report) Warnings() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.RowKey == "" {
			out = append(out, is)
		}
	}
	return out
}
