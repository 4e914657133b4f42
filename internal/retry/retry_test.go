package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/furrow-ag/furrow/internal/retry"
	"github.com/furrow-ag/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func fastPolicy(maxRetries uint64) retry.Policy {
	return retry.Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxRetries:      maxRetries,
	}
}

func TestRun_RetriesConflictsUntilSuccess(t *testing.T) {
	calls, notified := 0, 0
	err := fastPolicy(5).Run(context.Background(), "commit", func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("watch failed: %w", retry.ErrRetryable)
		}
		return nil
	}, func(error, time.Duration) { notified++ })

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, notified)
}

func TestRun_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Run(context.Background(), "commit", func() error {
		calls++
		return domain.ErrProduceNotFound
	}, nil)

	assert.ErrorIs(t, err, domain.ErrProduceNotFound)
	assert.Equal(t, 1, calls)
}

func TestRun_ExhaustionBecomesConflict(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Run(context.Background(), "commit", func() error {
		calls++
		return retry.ErrRetryable
	}, nil)

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, domain.KindResource, domain.KindOf(err))
	assert.Equal(t, 3, calls)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastPolicy(0).Run(ctx, "commit", func() error {
		return retry.ErrRetryable
	}, nil)

	assert.True(t, errors.Is(err, context.Canceled))
}
