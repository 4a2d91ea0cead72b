package scheduler

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/checkdag/checkdag/pkg/model"
)

// executeWithRetry runs fn per check's model.RetryPolicy, a direct
// adaptation of the teacher's RetryPolicy.Execute
// (internal/application/engine/retry_policy.go): attempt count, backoff
// mode, max delay cap, retryable-error substring matching, all generalized
// from the teacher's exec-only-exponential policy to the three backoff
// modes spec.md §4.6 names.
func executeWithRetry(ctx context.Context, rp *model.RetryPolicy, onRetry func(attempt int, err error), fn func() error) error {
	maxAttempts := 1
	if rp != nil {
		maxAttempts = rp.Max + 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= maxAttempts {
			break
		}
		if rp != nil && !shouldRetry(rp, err) {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		delay := retryDelay(rp, attempt)
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}

func shouldRetry(rp *model.RetryPolicy, err error) bool {
	if len(rp.RetryableErrors) == 0 {
		return true
	}
	msg := err.Error()
	for _, pattern := range rp.RetryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func retryDelay(rp *model.RetryPolicy, attempt int) time.Duration {
	if rp == nil {
		return 0
	}
	initial := rp.InitialDelay
	var delay time.Duration
	switch rp.Backoff {
	case model.BackoffLinear:
		delay = initial * time.Duration(attempt)
	case model.BackoffExponential:
		delay = time.Duration(float64(initial) * math.Pow(2, float64(attempt-1)))
	default: // BackoffConstant, or unset
		delay = initial
	}
	if rp.MaxDelay > 0 && delay > rp.MaxDelay {
		delay = rp.MaxDelay
	}
	if rp.Jitter > 0 {
		// Deterministic-enough jitter scaling without requiring a PRNG
		// dependency this package doesn't otherwise need: shave a fraction
		// of the delay off proportional to Jitter, rather than not
		// jittering at all.
		delay = delay - time.Duration(float64(delay)*rp.Jitter*0.5)
	}
	return delay
}
