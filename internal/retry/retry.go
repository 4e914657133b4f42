// Package retry re-runs optimistic transactions that lost a commit race.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/furrow-ag/furrow/pkg/domain"
)

// ErrRetryable marks an attempt that failed only because of a concurrent
// commit. Adapters wrap their conflict signal with it.
var ErrRetryable = errors.New("transaction conflict")

// Policy bounds the exponential backoff between attempts.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsedTime of zero means no time bound.
	MaxElapsedTime time.Duration
	// MaxRetries of zero means no count bound.
	MaxRetries uint64
}

// DefaultPolicy suits a handful of contending writers.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
		MaxElapsedTime:  10 * time.Second,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = p.MaxElapsedTime

	var bo backoff.BackOff = b
	if p.MaxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, p.MaxRetries)
	}
	return backoff.WithContext(bo, ctx)
}

// Run calls f until it succeeds, fails with an error that is not
// ErrRetryable, or the policy gives up. Giving up yields domain.ErrConflict
// wrapping the last conflict. onRetry may be nil.
func (p Policy) Run(ctx context.Context, op string, f func() error, onRetry func(err error, wait time.Duration)) error {
	attempt := func() error {
		err := f()
		if err == nil || errors.Is(err, ErrRetryable) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		if onRetry != nil {
			onRetry(err, wait)
		}
	}

	err := backoff.RetryNotify(attempt, p.backOff(ctx), notify)
	if err != nil && errors.Is(err, ErrRetryable) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domain.ErrConflict.Wrap(op, err)
	}
	return err
}
