package errs

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how a transient failure is retried.
type RetryPolicy struct {
	// MaxRetries is how many times to retry after the first attempt.
	MaxRetries uint64

	// InitialBackoff is the base delay fed to the fibonacci backoff.
	InitialBackoff time.Duration

	// MaxBackoff caps individual delays. Zero means uncapped.
	MaxBackoff time.Duration

	// Jitter randomizes each delay by up to the given amount to avoid
	// thundering herds. Zero disables jitter.
	Jitter time.Duration
}

// DefaultRetryPolicy retries three times with fibonacci backoff starting
// at 100ms, capped at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// Retry runs fn until it succeeds, fails with a non-retryable kind, the
// policy's attempts are exhausted, or the context is cancelled. Only
// errors whose kind is retryable per IsRetryable are retried; everything
// else is returned immediately.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	backoff := retry.NewFibonacci(policy.InitialBackoff)
	if policy.Jitter > 0 {
		backoff = retry.WithJitter(policy.Jitter, backoff)
	}
	if policy.MaxBackoff > 0 {
		backoff = retry.WithCappedDuration(policy.MaxBackoff, backoff)
	}
	backoff = retry.WithMaxRetries(policy.MaxRetries, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
