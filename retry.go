package graphkv

import (
	"context"
	"errors"
	log "log/slog"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryBaseDelay is the first Fibonacci backoff step used by Retry.
var RetryBaseDelay = 100 * time.Millisecond

// MaxRetries caps the number of retries Retry does on top of the first attempt.
const MaxRetries = 3

// Retry executes task with Fibonacci backoff up to MaxRetries retries. Only errors task wraps with
// retry.RetryableError (see RetryableIf) are retried, any other error is returned right away.
// If retries are exhausted, gaveUpTask is invoked (when not nil) and the final error is returned.
func Retry(ctx context.Context, task func(ctx context.Context) error, gaveUpTask func(ctx context.Context)) error {
	b := retry.NewFibonacci(RetryBaseDelay)
	if err := retry.Do(ctx, retry.WithMaxRetries(MaxRetries, b), task); err != nil {
		log.Warn(err.Error() + ", gave up")
		if gaveUpTask != nil {
			gaveUpTask(ctx)
		}
		return err
	}
	return nil
}

// RetryableIf marks err retryable when ShouldRetry says so.
func RetryableIf(err error) error {
	if ShouldRetry(err) {
		return retry.RetryableError(err)
	}
	return err
}

// ShouldRetry reports whether the error is retryable (non-nil and not a known permanent failure).
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	// Context cancellations/timeouts are permanent from the caller's POV.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrClosed) {
		return false
	}
	var kfs KeyFailures
	if errors.As(err, &kfs) {
		return false
	}
	return true
}
