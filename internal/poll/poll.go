// Package poll waits for long-running remote jobs to reach a terminal state.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultInterval is the delay between status fetches when none is set.
const DefaultInterval = time.Second

// ErrTimeout is returned when Options.Timeout elapses first.
var ErrTimeout = errors.New("poll: timed out waiting for a terminal state")

// Options tune Await.
type Options struct {
	// Interval is the delay before each fetch.
	Interval time.Duration
	// MaxInterval > Interval turns on exponential backoff up to that delay.
	MaxInterval time.Duration
	// Timeout bounds the whole wait; zero waits until ctx is done.
	Timeout time.Duration
}

func (o Options) backOff() backoff.BackOff {
	interval := o.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if o.MaxInterval <= interval {
		return backoff.NewConstantBackOff(interval)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = o.MaxInterval
	b.Multiplier = 1.5
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Await sleeps, fetches, and repeats until isTerminal accepts the fetched
// value, which it then returns. observe, when non-nil, sees every snapshot.
// A non-terminal value is only ever returned together with an error: the
// fetch error, ErrTimeout, or the context's error.
func Await[T any](ctx context.Context, fetch func(context.Context) (T, error), isTerminal func(T) bool, opts Options, observe func(T)) (T, error) {
	var last T

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, opts.Timeout, ErrTimeout)
		defer cancel()
	}

	b := opts.backOff()
	for {
		timer := time.NewTimer(b.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, stopCause(ctx)
		case <-timer.C:
		}

		v, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return last, stopCause(ctx)
			}
			return last, fmt.Errorf("poll: fetch: %w", err)
		}
		last = v
		if observe != nil {
			observe(v)
		}
		if isTerminal(v) {
			return v, nil
		}
	}
}

func stopCause(ctx context.Context) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrTimeout) {
		return ErrTimeout
	}
	return ctx.Err()
}
