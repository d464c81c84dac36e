package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/docbook/booking-system/internal/core/ports"
)

// RetryPolicy retries transient remote directory failures with
// exponential backoff. Attempts counts the first call; values below 2
// disable retrying.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy is used when Options leaves Retry empty.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, Multiplier: 2}
}

// Do runs op until it succeeds, fails permanently, the attempts run out or
// ctx is done. Only errors wrapping ports.ErrDirectoryUnavailable are retried.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	if p.MaxAttempts < 2 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 1
	}
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !errors.Is(err, ports.ErrDirectoryUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
