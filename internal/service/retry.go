package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/NadafAyan/BloodShare/internal/repository"
)

// RetryPolicy bounds how store calls are retried on ErrUnavailable.
type RetryPolicy struct {
	Attempts uint
	Interval time.Duration
}

const maxRetryInterval = 2 * time.Second

// withRetry runs op until it succeeds, fails with anything other than
// repository.ErrUnavailable, or the policy is exhausted.
func withRetry[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts == 0 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	if policy.Interval > 0 {
		b.InitialInterval = policy.Interval
	}
	b.MaxInterval = maxRetryInterval

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, repository.ErrUnavailable) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(attempts))
}
