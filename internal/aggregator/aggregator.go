// Package aggregator decides which time bucket to roll up. It owns the
// wall-clock math only; all reading, statistics and upserting happen in the
// storage engine.
package aggregator

import (
	"context"
	"log/slog"
	"time"
)

type Store interface {
	ComputeHourlyAggregate(ctx context.Context, hourTimestamp int64) error
	ComputeDailyAggregate(ctx context.Context, date string) error
}

type Aggregator struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// PreviousCompleteHour returns the hour-aligned start of the last fully
// elapsed hour. The current, still-filling hour is never aggregated.
func PreviousCompleteHour(now time.Time) int64 {
	unix := now.Unix()
	return unix - unix%3600 - 3600
}

// Yesterday returns the calendar date of now minus one day, in local time.
func Yesterday(now time.Time) string {
	return now.AddDate(0, 0, -1).Format("2006-01-02")
}

// RunHourly rolls up the previous complete hour. Idempotent: re-running for
// the same hour replaces the bucket with identical statistics.
func (a *Aggregator) RunHourly(ctx context.Context, now time.Time) error {
	hour := PreviousCompleteHour(now)
	a.logger.Info("running hourly aggregation", "hour_timestamp", hour)
	return a.store.ComputeHourlyAggregate(ctx, hour)
}

// RunDaily rolls up yesterday. Idempotent like RunHourly.
func (a *Aggregator) RunDaily(ctx context.Context, now time.Time) error {
	date := Yesterday(now)
	a.logger.Info("running daily aggregation", "date", date)
	return a.store.ComputeDailyAggregate(ctx, date)
}
