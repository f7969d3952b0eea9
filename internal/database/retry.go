package database

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// MySQL server error numbers treated as transient
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// RetryPolicy is the single retry policy for transient store errors.
// Contention and validation failures are the caller's problem and must
// never pass through here.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// NewRetryPolicy creates a retry policy, applying sane floors to the inputs
func NewRetryPolicy(maxAttempts int, backoff time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return RetryPolicy{MaxAttempts: maxAttempts, Backoff: backoff}
}

// IsTransient reports whether the error is worth retrying
func IsTransient(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
			return true
		}
		return false
	}
	return errors.Is(err, mysql.ErrInvalidConn)
}

// Do runs fn, retrying transient errors with linear backoff up to MaxAttempts.
// The last error is returned if all attempts fail.
func (p RetryPolicy) Do(ctx context.Context, logger *logrus.Logger, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}

		if attempt == p.MaxAttempts {
			break
		}

		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"attempt":      attempt,
				"max_attempts": p.MaxAttempts,
			}).Warn("Transient database error, retrying")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff * time.Duration(attempt)):
		}
	}
	return err
}
