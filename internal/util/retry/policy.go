package retry

import (
	"context"
	"time"
)

// Policy is the declarative form of a retry budget for one call site.
type Policy struct {
	MaxAttempts int           // total calls, including the first
	Interval    time.Duration // delay before the first retry
	BackoffRate float64       // multiplier applied after each retry
	MaxDelay    time.Duration // zero leaves delays uncapped
}

// Single is a policy that never retries.
var Single = Policy{MaxAttempts: 1}

// Options converts the policy into retry options.
func (p Policy) Options() []Option {
	rate := p.BackoffRate
	if rate <= 0 {
		rate = 2.0
	}
	return []Option{
		WithMaxAttempts(p.MaxAttempts),
		WithInitialDelay(p.Interval),
		WithMultiplier(rate),
		WithMaxDelay(p.MaxDelay),
	}
}

// TotalBackoff returns the accumulated wait of a call that fails on every
// attempt, ignoring the cap when MaxDelay is zero.
func (p Policy) TotalBackoff() time.Duration {
	rate := p.BackoffRate
	if rate <= 0 {
		rate = 2.0
	}
	var total time.Duration
	delay := p.Interval
	for i := 1; i < p.MaxAttempts; i++ {
		total += delay
		delay = time.Duration(float64(delay) * rate)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return total
}

// Do runs operation under the policy. Extra options are applied after the
// policy's own, so callers can attach hooks or a test sleeper.
func Do(ctx context.Context, p Policy, operation func() error, opts ...Option) error {
	return WithExponentialBackoff(ctx, operation, append(p.Options(), opts...)...)
}
