package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
)

// DefaultLookupTimeout bounds a single backing-system lookup.
const DefaultLookupTimeout = 2 * time.Minute

// RetryPolicy defines the polling behavior while waiting for the state lock.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy polls until the caller's context expires.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: math.MaxInt32,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   15 * time.Second,
	}
}

// WithTimeout wraps a context with a lookup timeout.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// RetryWithBackoff executes fn with exponential backoff and jitter until it
// succeeds, shouldRetry rejects an error, the retries run out or ctx is done.
func RetryWithBackoff(ctx context.Context, policy *RetryPolicy, fn func() error, shouldRetry func(error) bool) error {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	err := retry.Call(retry.CallArgs{
		Func: fn,
		IsFatalError: func(err error) bool {
			return !shouldRetry(err)
		},
		Attempts:    policy.MaxRetries + 1,
		Delay:       policy.BaseDelay,
		MaxDelay:    policy.MaxDelay,
		BackoffFunc: retry.ExpBackoff(policy.BaseDelay, policy.MaxDelay, 2, true),
		Clock:       clock.WallClock,
		Stop:        ctx.Done(),
	})
	switch {
	case err == nil:
		return nil
	case retry.IsRetryStopped(err):
		return fmt.Errorf("gave up waiting: %w", lastError(err))
	case retry.IsAttemptsExceeded(err):
		return fmt.Errorf("max retries (%d) exceeded: %w", policy.MaxRetries, lastError(err))
	}
	return err
}

func lastError(err error) error {
	if last := retry.LastError(err); last != nil {
		return last
	}
	return err
}

var transientPatterns = []string{
	"throttl",
	"rate exceed",
	"too many requests",
	"service unavailable",
	"internal server error",
	"connection reset",
	"connection refused",
	"timeout",
	"timed out",
	"tls handshake",
	"temporary failure",
	"context deadline exceeded",
}

// IsTransientError reports whether a failure is likely to clear on a re-run.
// It is only used to annotate reports; nothing is retried automatically.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
