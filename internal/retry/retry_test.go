package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
)

var errFlaky = errors.New("flaky")

func TestDo_StopsAfterMaxRetries(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), Policy{MaxRetries: 2}, func(ctx context.Context) error {
		calls++
		return errFlaky
	})

	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, attempts)
}

func TestDo_SucceedsEarly(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), Policy{MaxRetries: 5}, func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errFlaky
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestDo_ZeroRetries(t *testing.T) {
	attempts, err := Do(context.Background(), Policy{}, func(ctx context.Context) error { return errFlaky })
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, attempts)
}

func TestDo_NonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	p := Policy{MaxRetries: 3, Retryable: func(err error) bool { return !errors.Is(err, fatal) }}

	attempts, err := Do(context.Background(), p, func(ctx context.Context) error { return fatal })
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)

	attempts, err = Do(context.Background(), Policy{MaxRetries: 3}, func(ctx context.Context) error {
		return Permanent(fatal)
	})
	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ExponentialDelays(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(start)

	var seen []time.Duration
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Do(context.Background(), Policy{MaxRetries: 3, BaseDelay: time.Second, Clock: clk},
			func(ctx context.Context) error {
				seen = append(seen, clk.Now().Sub(start))
				return errFlaky
			})
	}()

	for _, step := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		clk.WaitForTimers(1)
		clk.Advance(step)
	}
	<-done

	assert.Equal(t, []time.Duration{0, time.Second, 3 * time.Second, 7 * time.Second}, seen)
}

func TestDo_CappedDelay(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(start)

	var seen []time.Duration
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Do(context.Background(), Policy{MaxRetries: 2, BaseDelay: time.Second, MaxDelay: 1500 * time.Millisecond, Clock: clk},
			func(ctx context.Context) error {
				seen = append(seen, clk.Now().Sub(start))
				return errFlaky
			})
	}()

	for _, step := range []time.Duration{time.Second, 1500 * time.Millisecond} {
		clk.WaitForTimers(1)
		clk.Advance(step)
	}
	<-done

	assert.Equal(t, []time.Duration{0, time.Second, 2500 * time.Millisecond}, seen)
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	clk := clock.Fake(time.Now())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		_, err := Do(ctx, Policy{MaxRetries: 3, BaseDelay: time.Hour, Clock: clk}, func(ctx context.Context) error {
			return errFlaky
		})
		done <- err
	}()

	clk.WaitForTimers(1)
	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errFlaky)
}
