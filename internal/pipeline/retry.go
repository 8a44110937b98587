package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/marketdash/etl/internal/contracts"
	"github.com/marketdash/etl/pkg/config"
)

// RetryPolicy retries rate-limited fetches with bounded exponential backoff.
// Only RateLimitError is retryable: other fetch failures are either permanent
// (schema drift) or better surfaced immediately (unreachable provider).
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// NewRetryPolicy builds the policy from the pipeline configuration
func NewRetryPolicy(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  cfg.ETL.RetryMaxAttempts,
		InitialDelay: cfg.ETL.RetryInitialDelay,
		MaxDelay:     cfg.ETL.RetryMaxDelay,
	}
}

// Do runs fn, backing off and retrying while it fails with RateLimitError.
// The provider's retry-after hint is honored when longer than the backoff.
// The last error is returned once attempts are exhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	delay := p.InitialDelay

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		var rl *contracts.RateLimitError
		if !errors.As(err, &rl) {
			return err
		}
		if attempt == p.MaxAttempts {
			return err
		}

		wait := delay
		if rl.RetryAfter > wait {
			wait = rl.RetryAfter
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}
