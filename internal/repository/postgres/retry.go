package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/peergrove/groupd/pkg/errs"
)

// maxAttempts bounds the internal retry on transient storage failures.
// Domain errors are never retried; only serialization and deadlock
// failures qualify, and once the budget is spent the caller sees a
// generic Unavailable.
const maxAttempts = 3

func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !isRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return errs.Unavailable("storage unavailable", err)
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		}
	}
	return errs.Unavailable("storage unavailable", err)
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
