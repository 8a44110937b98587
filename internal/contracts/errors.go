package contracts

import (
	"fmt"
	"time"
)

// Error taxonomy for pipeline runs. All of these are caught at the pipeline
// runner boundary and converted into a terminal aborted outcome; none of them
// propagate past the orchestrator.

// FetchError means the provider was unreachable or returned an error status
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RateLimitError means the provider signalled throttling. It is the retryable
// subtype of fetch failure: the runner backs off and retries before treating
// it as fatal.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration // zero when the provider gave no hint
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by %s (retry after %s)", e.Source, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited by %s", e.Source)
}

// SchemaDriftError means the provider payload is missing expected fields
type SchemaDriftError struct {
	Source  string
	Missing []string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("schema drift in %s payload: missing %v", e.Source, e.Missing)
}

// ValidationRejectedError means a whole batch failed the quality gate
type ValidationRejectedError struct {
	Fact     FactType
	Rejected int
	Total    int
	Reason   string
}

func (e *ValidationRejectedError) Error() string {
	return fmt.Sprintf("batch rejected for %s: %s (%d/%d rows rejected)",
		e.Fact, e.Reason, e.Rejected, e.Total)
}

// WriteError means the warehouse write failed; the batch was rolled back
type WriteError struct {
	Fact FactType
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s batch: %v", e.Fact, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
