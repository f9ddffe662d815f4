package application

import (
	"context"
	"time"

	"nebula-shopify-bridge/internal/domain"
)

// RetryConfig bounds the retry behavior for admin API calls made during
// reconciliation. Only transient errors (network, 5xx, 429) are retried.
type RetryConfig struct {
	MaxRetries  int
	Backoff     time.Duration
	CallTimeout time.Duration
}

// DefaultRetryConfig returns the retry policy used in production: up to two
// retries with doubling backoff and a 10s per-call timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  2,
		Backoff:     500 * time.Millisecond,
		CallTimeout: 10 * time.Second,
	}
}

// doWithRetry runs fn under the per-call timeout, retrying transient errors
// up to cfg.MaxRetries times. Non-transient errors return immediately.
func doWithRetry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	backoff := cfg.Backoff
	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, cfg.CallTimeout)
		err := fn(callCtx)
		cancel()

		if err == nil || !domain.IsTransient(err) || attempt >= cfg.MaxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
