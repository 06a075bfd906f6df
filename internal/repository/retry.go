package repository

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryPolicy controls how often a conflicting unit of work is replayed.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
	// OnRetry, when set, is called before each replay.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy is used when a caller passes a zero policy.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Backoff: 5 * time.Millisecond}

// RunInTransaction executes fn through store and replays the whole unit when
// it fails with ErrConflict. The last error is returned once attempts run out.
func RunInTransaction(ctx context.Context, store Store, policy RetryPolicy, fn func(ctx context.Context, tx Tx) error) error {
	if policy.Attempts <= 0 {
		policy.Attempts = DefaultRetryPolicy.Attempts
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultRetryPolicy.Backoff
	}

	var err error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		err = store.WithTransaction(ctx, fn)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
		if attempt == policy.Attempts {
			break
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}

		wait := policy.Backoff*time.Duration(attempt) + rand.N(policy.Backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
