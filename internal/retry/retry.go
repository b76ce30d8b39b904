// Package retry wraps network operations (fetch, push) with capped,
// fixed-interval retry. Errors whose kind package kinds marks as
// transient, and errors that carry no kind, are retried; any other
// kind stops the retry at once.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sosuisen/gitdocdb/internal/kinds"
)

// Options tunes a retry call.
type Options struct {
	MaxAttempts int           // default 3
	Interval    time.Duration // default 2s
}

func (o Options) maxAttempts() int {
	if o.MaxAttempts <= 0 {
		return 3
	}
	return o.MaxAttempts
}

func (o Options) interval() time.Duration {
	if o.Interval <= 0 {
		return 2 * time.Second
	}
	return o.Interval
}

// Result records how many attempts a retried call took.
type Result struct {
	Attempts int
}

// Do runs fn, calling it at most Options.MaxAttempts times in total at
// a fixed interval, and retries whenever fn's error has a retryable
// kind or no kind at all. The final error (if
// any) is returned as-is; Result.Attempts always reflects how many
// times fn was actually called.
func Do(ctx context.Context, opts Options, fn func() error) (Result, error) {
	attempts := 0
	var policy backoff.BackOff = backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.interval()), uint64(opts.maxAttempts()-1))
	policy = backoff.WithContext(policy, ctx)

	operation := func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if kind, ok := kinds.Of(err); ok && !kinds.Retryable(kind) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, policy)
	return Result{Attempts: attempts}, unwrapPermanent(err)
}

func unwrapPermanent(err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*backoff.PermanentError); ok {
		return pe.Err
	}
	return err
}
