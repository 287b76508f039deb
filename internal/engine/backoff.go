package engine

import (
	"math"
	"time"
)

// BackoffStrategy computes the delay before a retry attempt. Strategies are
// stateless and safe for concurrent use.
type BackoffStrategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// ConstantBackoff always returns the same delay regardless of attempt number.
type ConstantBackoff struct {
	Interval time.Duration
}

// NewConstantBackoff creates a constant backoff strategy.
func NewConstantBackoff(interval time.Duration) *ConstantBackoff {
	return &ConstantBackoff{Interval: interval}
}

// Delay returns the fixed interval.
func (c *ConstantBackoff) Delay(_ int) time.Duration {
	return c.Interval
}

// ExponentialBackoff doubles the delay each attempt.
// Delay = min(Initial * 2^(attempt-1), Max).
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialBackoff creates an exponential backoff strategy.
func NewExponentialBackoff(initial, maxDelay time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(attempt-1), capped at Max.
func (e *ExponentialBackoff) Delay(attempt int) time.Duration {
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(attempt-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// DefaultBackoff returns the engine default: a short fixed delay between
// attempts.
func DefaultBackoff() BackoffStrategy {
	return NewConstantBackoff(500 * time.Millisecond)
}
