package resilience

import (
	"context"
	"fmt"
	"time"
)

// Policy combines a per-attempt timeout, retries and an optional circuit
// breaker around calls to one external dependency.
type Policy struct {
	Name    string
	Timeout time.Duration
	Retry   RetryConfig
	Breaker *CircuitBreaker
}

// Do runs fn under the policy. An open breaker fails fast without
// consuming retry attempts.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return Retry(ctx, p.Name, p.Retry, func(ctx context.Context) error {
		attempt := func() error { return withTimeout(ctx, p.Timeout, fn) }
		if p.Breaker == nil {
			return attempt()
		}
		err := p.Breaker.Execute(attempt)
		if IsCircuitOpen(err) {
			return Permanent(err)
		}
		return err
	})
}

func withTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := fn(tctx); err != nil {
		if tctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return fmt.Errorf("%w (limit %v): %v", context.DeadlineExceeded, timeout, err)
		}
		return err
	}
	return nil
}
