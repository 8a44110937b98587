package contracts

import (
	"context"
	"time"
)

// Mode selects how much history an invocation fetches
type Mode string

const (
	ModeIncremental Mode = "incremental"  // recent window only
	ModeFullRefresh Mode = "full-refresh" // full configured history
)

// Window is the date/time range requested from a source adapter
type Window struct {
	From time.Time
	To   time.Time
	Mode Mode
}

// Adapter fetches raw records from one external provider and normalizes them
// into canonical rows for its target fact table. One fetch produces one
// finite batch; callers re-invoke for a fresh fetch. Adapters perform no
// writes and fail with FetchError, RateLimitError or SchemaDriftError.
type Adapter interface {
	// Name identifies the pipeline in logs and outcomes
	Name() string

	// Fact returns the fact table this adapter feeds
	Fact() FactType

	// Fetch retrieves and normalizes one batch for the window
	Fetch(ctx context.Context, w Window) ([]Row, error)
}

// Validator applies per-table quality rules to a normalized batch
type Validator interface {
	Validate(fact FactType, rows []Row, now time.Time) *Report
}

// Writer applies an accepted batch to the warehouse with merge-on-natural-key
// semantics, atomically per batch. Returns the number of rows applied.
type Writer interface {
	Write(ctx context.Context, fact FactType, rows []Row) (int, error)
}
