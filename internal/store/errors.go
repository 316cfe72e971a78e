package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

var (
	// ErrStorageUnavailable is returned when the datastore stays busy or
	// locked past the bounded retry budget. Callers must treat it as
	// retryable on a later run.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCorruptRecord marks a single malformed record rejected by an
	// insert path. It never aborts the surrounding batch.
	ErrCorruptRecord = errors.New("corrupt record")
)

const (
	busyMaxRetries  = 5
	busyBaseBackoff = 50 * time.Millisecond
	busyMaxBackoff  = 500 * time.Millisecond
)

// retryOnBusy runs f, retrying on SQLITE_BUSY/SQLITE_LOCKED with exponential
// backoff and jitter on top of the driver's busy_timeout. After the retry
// budget is exhausted the error is wrapped as ErrStorageUnavailable.
func retryOnBusy(ctx context.Context, f func() error) error {
	var err error
	for attempt := 0; attempt <= busyMaxRetries; attempt++ {
		err = f()
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		if attempt == busyMaxRetries {
			break
		}
		delay := busyBaseBackoff << uint(attempt)
		if delay > busyMaxBackoff {
			delay = busyMaxBackoff
		}
		delay = delay - delay/4 + time.Duration(rand.Int63n(int64(delay/2)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// isBusy matches on the error text rather than the driver's error type so
// the classification survives driver upgrades.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "(5)") || // SQLITE_BUSY
		strings.Contains(msg, "(6)") // SQLITE_LOCKED
}
