package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ComputeHourlyAggregate reads every raw row in [hourTimestamp,
// hourTimestamp+3600) and upserts one rollup row keyed by hourTimestamp.
// Percentages are averaged and maxed; monotonic network counters are rolled
// up as last-minus-first deltas, never sums. An hour with no source rows
// still gets a row with null/zero statistics so re-triggering the bucket is
// an idempotent no-op rather than a gap.
func (s *Store) ComputeHourlyAggregate(ctx context.Context, hourTimestamp int64) error {
	hourEnd := hourTimestamp + 3600

	return retryOnBusy(ctx, func() error {
		tx, err := s.writer.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		var avgCPU, maxCPU, avgMem, maxMem, avgDisk sql.NullFloat64
		err = tx.QueryRowContext(ctx, `
SELECT AVG(cpu_percent), MAX(cpu_percent),
  AVG(memory_percent), MAX(memory_percent), AVG(disk_percent)
FROM system_samples
WHERE timestamp >= ? AND timestamp < ?
`, hourTimestamp, hourEnd).Scan(&avgCPU, &maxCPU, &avgMem, &maxMem, &avgDisk)
		if err != nil {
			return fmt.Errorf("aggregate system samples: %w", err)
		}

		deltas, err := networkDeltas(ctx, tx, hourTimestamp, hourEnd)
		if err != nil {
			return fmt.Errorf("aggregate network samples: %w", err)
		}

		var total, failedLogins, banned, errCount, warnCount int64
		err = tx.QueryRowContext(ctx, `
SELECT COUNT(*),
  SUM(CASE WHEN action = 'failed_login' THEN 1 ELSE 0 END),
  SUM(CASE WHEN action = 'ban' THEN 1 ELSE 0 END),
  SUM(CASE WHEN level = 'ERROR' THEN 1 ELSE 0 END),
  SUM(CASE WHEN level = 'WARNING' THEN 1 ELSE 0 END)
FROM log_events
WHERE timestamp >= ? AND timestamp < ?
`, hourTimestamp, hourEnd).Scan(&total,
			&nullInt64{&failedLogins}, &nullInt64{&banned},
			&nullInt64{&errCount}, &nullInt64{&warnCount})
		if err != nil {
			return fmt.Errorf("aggregate log events: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO hourly_aggregates (
  hour_timestamp, avg_cpu_percent, max_cpu_percent,
  avg_memory_percent, max_memory_percent, avg_disk_percent,
  total_bytes_sent, total_bytes_recv, total_packets_sent, total_packets_recv,
  log_events_count, failed_login_count, banned_count, error_count, warning_count,
  computed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(hour_timestamp) DO UPDATE SET
  avg_cpu_percent = excluded.avg_cpu_percent,
  max_cpu_percent = excluded.max_cpu_percent,
  avg_memory_percent = excluded.avg_memory_percent,
  max_memory_percent = excluded.max_memory_percent,
  avg_disk_percent = excluded.avg_disk_percent,
  total_bytes_sent = excluded.total_bytes_sent,
  total_bytes_recv = excluded.total_bytes_recv,
  total_packets_sent = excluded.total_packets_sent,
  total_packets_recv = excluded.total_packets_recv,
  log_events_count = excluded.log_events_count,
  failed_login_count = excluded.failed_login_count,
  banned_count = excluded.banned_count,
  error_count = excluded.error_count,
  warning_count = excluded.warning_count,
  computed_at = excluded.computed_at
`,
			hourTimestamp,
			nullFloat(avgCPU), nullFloat(maxCPU),
			nullFloat(avgMem), nullFloat(maxMem), nullFloat(avgDisk),
			deltas.bytesSent, deltas.bytesRecv, deltas.packetsSent, deltas.packetsRecv,
			total, failedLogins, banned, errCount, warnCount,
			time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert hourly aggregate: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

type counterDeltas struct {
	bytesSent, bytesRecv, packetsSent, packetsRecv int64
}

// networkDeltas computes last-minus-first over the monotonic interface
// counters inside the window. With fewer than two samples the delta is zero,
// and a counter reset mid-window clamps to zero instead of going negative.
func networkDeltas(ctx context.Context, tx *sql.Tx, start, end int64) (counterDeltas, error) {
	var first, last NetworkSample
	var n int

	for _, q := range []struct {
		order string
		dst   *NetworkSample
	}{
		{"ASC", &first},
		{"DESC", &last},
	} {
		err := tx.QueryRowContext(ctx, `
SELECT COALESCE(bytes_sent, 0), COALESCE(bytes_recv, 0),
  COALESCE(packets_sent, 0), COALESCE(packets_recv, 0)
FROM network_samples
WHERE timestamp >= ? AND timestamp < ?
ORDER BY timestamp `+q.order+`, id `+q.order+`
LIMIT 1
`, start, end).Scan(&q.dst.BytesSent, &q.dst.BytesRecv, &q.dst.PacketsSent, &q.dst.PacketsRecv)
		if err == sql.ErrNoRows {
			return counterDeltas{}, nil
		}
		if err != nil {
			return counterDeltas{}, err
		}
		n++
	}
	if n < 2 {
		return counterDeltas{}, nil
	}
	return counterDeltas{
		bytesSent:   clampNonNegative(last.BytesSent - first.BytesSent),
		bytesRecv:   clampNonNegative(last.BytesRecv - first.BytesRecv),
		packetsSent: clampNonNegative(last.PacketsSent - first.PacketsSent),
		packetsRecv: clampNonNegative(last.PacketsRecv - first.PacketsRecv),
	}, nil
}

// ComputeDailyAggregate rolls the day's hourly rollup rows into one daily
// row keyed by the YYYY-MM-DD date, plus distinct-counts over the raw log
// events (banned IPs, users with failed logins). Like the hourly path it
// always writes the bucket row, even for an empty day.
func (s *Store) ComputeDailyAggregate(ctx context.Context, date string) error {
	dayStart, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", date, err)
	}
	start := dayStart.Unix()
	end := dayStart.AddDate(0, 0, 1).Unix()

	return retryOnBusy(ctx, func() error {
		tx, err := s.writer.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		var avgCPU, maxCPU, avgMem, maxMem, avgDisk sql.NullFloat64
		var sent, recv, total, failedLogins, banned, errCount, warnCount int64
		err = tx.QueryRowContext(ctx, `
SELECT AVG(avg_cpu_percent), MAX(max_cpu_percent),
  AVG(avg_memory_percent), MAX(max_memory_percent), AVG(avg_disk_percent),
  SUM(total_bytes_sent), SUM(total_bytes_recv),
  SUM(log_events_count), SUM(failed_login_count), SUM(banned_count),
  SUM(error_count), SUM(warning_count)
FROM hourly_aggregates
WHERE hour_timestamp >= ? AND hour_timestamp < ?
`, start, end).Scan(
			&avgCPU, &maxCPU, &avgMem, &maxMem, &avgDisk,
			&nullInt64{&sent}, &nullInt64{&recv},
			&nullInt64{&total}, &nullInt64{&failedLogins}, &nullInt64{&banned},
			&nullInt64{&errCount}, &nullInt64{&warnCount},
		)
		if err != nil {
			return fmt.Errorf("aggregate hourly rows: %w", err)
		}

		var uniqueBanned, uniqueFailed int64
		err = tx.QueryRowContext(ctx, `
SELECT
  COUNT(DISTINCT CASE WHEN action = 'ban' THEN ip_address END),
  COUNT(DISTINCT CASE WHEN action = 'failed_login' THEN user END)
FROM log_events
WHERE timestamp >= ? AND timestamp < ?
`, start, end).Scan(&uniqueBanned, &uniqueFailed)
		if err != nil {
			return fmt.Errorf("aggregate distinct counts: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO daily_aggregates (
  date, avg_cpu_percent, max_cpu_percent,
  avg_memory_percent, max_memory_percent, avg_disk_percent,
  total_bytes_sent, total_bytes_recv,
  log_events_count, failed_login_count, banned_count, error_count, warning_count,
  unique_banned_ips, unique_failed_users, computed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(date) DO UPDATE SET
  avg_cpu_percent = excluded.avg_cpu_percent,
  max_cpu_percent = excluded.max_cpu_percent,
  avg_memory_percent = excluded.avg_memory_percent,
  max_memory_percent = excluded.max_memory_percent,
  avg_disk_percent = excluded.avg_disk_percent,
  total_bytes_sent = excluded.total_bytes_sent,
  total_bytes_recv = excluded.total_bytes_recv,
  log_events_count = excluded.log_events_count,
  failed_login_count = excluded.failed_login_count,
  banned_count = excluded.banned_count,
  error_count = excluded.error_count,
  warning_count = excluded.warning_count,
  unique_banned_ips = excluded.unique_banned_ips,
  unique_failed_users = excluded.unique_failed_users,
  computed_at = excluded.computed_at
`,
			date,
			nullFloat(avgCPU), nullFloat(maxCPU),
			nullFloat(avgMem), nullFloat(maxMem), nullFloat(avgDisk),
			sent, recv,
			total, failedLogins, banned, errCount, warnCount,
			uniqueBanned, uniqueFailed,
			time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert daily aggregate: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func nullFloat(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

// nullInt64 scans a nullable SUM() result into an int64, mapping NULL to 0.
type nullInt64 struct {
	dst *int64
}

func (n *nullInt64) Scan(src any) error {
	if src == nil {
		*n.dst = 0
		return nil
	}
	switch v := src.(type) {
	case int64:
		*n.dst = v
	case float64:
		*n.dst = int64(v)
	default:
		return fmt.Errorf("unsupported sum type %T", src)
	}
	return nil
}
