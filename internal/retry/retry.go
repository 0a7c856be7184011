// Package retry wraps fallible operations with bounded, fixed-interval
// retry. Both API clients run every network call through it; the caller
// picks per call site whether exhaustion is fatal.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures a retry wrapper.
type Policy struct {
	// Attempts is the total number of times the operation is invoked,
	// including the first. Must be at least 1.
	Attempts int

	// Interval is the fixed wait between attempts.
	Interval time.Duration

	// Fatal controls what happens after the last attempt fails: when true
	// the last error is returned, when false Do returns ok=false with a nil
	// error and the caller branches on the missing result.
	Fatal bool

	// Retryable decides whether an error triggers another attempt. A nil
	// predicate retries on every error. Errors the predicate rejects
	// propagate immediately, regardless of Fatal.
	Retryable func(error) bool
}

// Do runs op under the policy.
//
// The ok result distinguishes "operation completed" from the non-fatal
// exhaustion sentinel: ok=false with err=nil means the operation never
// completed and the caller must not treat the zero value as a real result.
func Do[T any](ctx context.Context, p Policy, log *slog.Logger, name string, op func() (T, error)) (T, bool, error) {
	var zero T
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	attempt := 0
	wrapped := func() (T, error) {
		attempt++
		result, err := op()
		if err == nil {
			if attempt > 1 {
				log.Info("retry succeeded", "operation", name, "attempt", attempt)
			}
			return result, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}

	notify := func(err error, wait time.Duration) {
		log.Debug("retrying",
			"operation", name,
			"attempt", attempt,
			"attempts", p.Attempts,
			"wait", wait,
			"error", err)
	}

	interval := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(p.Attempts-1)),
		ctx)

	result, err := backoff.RetryNotifyWithData(wrapped, interval, notify)
	if err == nil {
		return result, true, nil
	}

	// Non-retryable errors are not the wrapper's to absorb.
	if p.Retryable != nil && !p.Retryable(err) {
		return zero, false, err
	}

	log.Warn("retry exhausted", "operation", name, "attempts", p.Attempts, "error", err)
	if p.Fatal {
		return zero, false, err
	}
	return zero, false, nil
}
