package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jpillora/backoff"

	"github.com/rustyeddy/autotrader/risk"
)

const (
	defaultMaxAttempts = 5
	defaultMinDelay    = 5 * time.Second
	defaultMaxDelay    = 60 * time.Second
)

// Retrier runs a cycle function with bounded exponential backoff. Risk
// stops and bad-equity states are permanent for the cycle: retrying them
// would just hammer the broker with the same answer.
type Retrier struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// permanent reports whether an error must not be retried.
func permanent(err error) bool {
	return errors.Is(err, risk.ErrDailyStop) ||
		errors.Is(err, risk.ErrBadEquity) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Do invokes fn until it succeeds, returns a permanent error, the context
// ends, or the attempt budget runs out.
func (r Retrier) Do(ctx context.Context, fn func(context.Context) error) error {
	max := r.MaxAttempts
	if max <= 0 {
		max = defaultMaxAttempts
	}
	min, maxDelay := r.MinDelay, r.MaxDelay
	if min <= 0 {
		min = defaultMinDelay
	}
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	b := &backoff.Backoff{
		Min:    min,
		Max:    maxDelay,
		Factor: 2,
		Jitter: true,
	}

	var err error
	for attempt := 1; attempt <= max; attempt++ {
		err = fn(ctx)
		if err == nil || permanent(err) {
			return err
		}

		if attempt == max {
			break
		}
		d := b.Duration()
		log.Printf("engine: attempt %d/%d failed, retrying in %s: %v", attempt, max, d.Round(time.Millisecond), err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", max, err)
}
