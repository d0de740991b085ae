// Package retry runs an operation under a bounded exponential backoff.
//
// Waits block the caller. They go through an injected clock so tests can
// drive them with clock.Fake.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
)

// Policy bounds a retried operation. Retry n (counting from zero) waits
// BaseDelay * 2^n, capped at MaxDelay when set.
type Policy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Retryable reports whether err is worth another attempt. Nil retries
	// everything that is not Permanent.
	Retryable func(error) bool

	Clock clock.Clock
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func (p Policy) backoff() goretry.Backoff {
	var b goretry.Backoff
	if p.BaseDelay > 0 {
		b = goretry.NewExponential(p.BaseDelay)
	} else {
		b = goretry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
	}
	return goretry.WithMaxRetries(p.MaxRetries, b)
}

func (p Policy) retryable(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Do calls op until it succeeds, returns a non-retryable error, or the
// policy runs out of retries. It returns the number of calls made and the
// last error. A cancelled context stops the wait and returns ctx.Err()
// joined with the last error.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) (int, error) {
	clk := p.Clock
	if clk == nil {
		clk = clock.Real()
	}
	b := p.backoff()

	attempts := 0
	for {
		attempts++
		err := op(ctx)
		if err == nil {
			return attempts, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return attempts, perm.err
		}
		if !p.retryable(err) {
			return attempts, err
		}

		delay, stop := b.Next()
		if stop {
			return attempts, err
		}

		select {
		case <-ctx.Done():
			return attempts, errors.Join(ctx.Err(), err)
		case <-clk.After(delay):
		}
	}
}
