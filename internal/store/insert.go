package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertSystemSample appends one system sample row.
func (s *Store) InsertSystemSample(ctx context.Context, sample SystemSample) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.writer.ExecContext(ctx, `
INSERT INTO system_samples (
  timestamp, cpu_percent, cpu_count, memory_total, memory_available,
  memory_percent, disk_total, disk_used, disk_percent,
  disk_read_bytes, disk_write_bytes, load_1min, load_5min, load_15min
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			sample.Timestamp,
			sample.CPUPercent,
			sample.CPUCount,
			sample.MemoryTotal,
			sample.MemoryAvail,
			sample.MemoryPercent,
			sample.DiskTotal,
			sample.DiskUsed,
			sample.DiskPercent,
			sample.DiskReadBytes,
			sample.DiskWriteBytes,
			sample.Load1Min,
			sample.Load5Min,
			sample.Load15Min,
		)
		if err != nil {
			return fmt.Errorf("insert system sample: %w", err)
		}
		return nil
	})
}

// InsertNetworkSample appends one network sample row.
func (s *Store) InsertNetworkSample(ctx context.Context, sample NetworkSample) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.writer.ExecContext(ctx, `
INSERT INTO network_samples (
  timestamp, bytes_sent, bytes_recv, packets_sent, packets_recv,
  errors_in, errors_out, drops_in, drops_out,
  connections_established, connections_listen, connections_time_wait
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			sample.Timestamp,
			sample.BytesSent,
			sample.BytesRecv,
			sample.PacketsSent,
			sample.PacketsRecv,
			sample.ErrorsIn,
			sample.ErrorsOut,
			sample.DropsIn,
			sample.DropsOut,
			sample.ConnEstablished,
			sample.ConnListen,
			sample.ConnTimeWait,
		)
		if err != nil {
			return fmt.Errorf("insert network sample: %w", err)
		}
		return nil
	})
}

// validateLogEvent rejects records that cannot be stored meaningfully. A
// rejected record counts as corrupt but never aborts the batch around it.
func validateLogEvent(event LogEvent) error {
	if event.Timestamp <= 0 {
		return fmt.Errorf("%w: non-positive timestamp %d", ErrCorruptRecord, event.Timestamp)
	}
	if event.Source == "" {
		return fmt.Errorf("%w: empty source", ErrCorruptRecord)
	}
	if event.Message == "" {
		return fmt.Errorf("%w: empty message", ErrCorruptRecord)
	}
	return nil
}

// InsertLogEvents appends a batch of log events in one transaction. Corrupt
// records are skipped; the valid remainder is still committed. Returns the
// number of rows inserted and the number of records rejected.
func (s *Store) InsertLogEvents(ctx context.Context, events []LogEvent) (inserted int, corrupt int, err error) {
	if len(events) == 0 {
		return 0, 0, nil
	}
	err = retryOnBusy(ctx, func() error {
		inserted, corrupt = 0, 0
		tx, err := s.writer.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO log_events (
  timestamp, source, level, message, ip_address, user, service, action, metadata
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
		if err != nil {
			return fmt.Errorf("prepare log event insert: %w", err)
		}
		defer stmt.Close()

		for _, event := range events {
			if validateLogEvent(event) != nil {
				corrupt++
				continue
			}
			if _, err := stmt.ExecContext(
				ctx,
				event.Timestamp,
				event.Source,
				nullable(event.Level),
				event.Message,
				nullable(event.IPAddress),
				nullable(event.User),
				nullable(event.Service),
				nullable(event.Action),
				nullable(event.Metadata),
			); err != nil {
				return fmt.Errorf("insert log event: %w", err)
			}
			inserted++
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, corrupt, nil
}

// nullable maps "" to NULL so exact-match filters don't have to treat empty
// strings as values.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
