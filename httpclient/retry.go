package httpclient

import (
	"context"
	"math"
	"time"
)

// RetryPolicy controls Retry.
type RetryPolicy struct {
	// Attempts is the total number of calls, including the first. Values below 1 mean 1.
	Attempts int
	// BaseDelay is the wait after the first failure; it doubles after each further failure.
	BaseDelay time.Duration
	// MaxDelay caps a single wait; zero leaves it uncapped.
	MaxDelay time.Duration
	// Retryable decides whether a failure may be retried (default: anything but cancellation).
	Retryable func(err error) bool
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
	// Sleep waits between attempts; nil uses a timer that honours ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the wait that follows the given failed attempt (1-based):
// BaseDelay * 2^(attempt-1), capped by MaxDelay when set.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// attempts are used up. Attempts are strictly sequential. The last failure is
// returned unchanged; if ctx ends during a wait a cancellation error is returned.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	retryable := p.Retryable
	if retryable == nil {
		retryable = func(err error) bool { return !IsCancellation(err) }
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || !retryable(err) || ctx.Err() != nil {
			return err
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return NewCancelledError("retry wait interrupted", serr)
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
