package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"
)

// Cleanup deletes raw rows older than now - retentionDays. Trace children
// are cascaded by hand inside the same transaction, parent last, so a
// surviving parent never loses its children and an orphaned child never
// survives its parent. Aggregate rows and ip_reputation profiles are the
// compacted long-term history and are never touched here.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) (deleted int64, err error) {
	cutoff := time.Now().Unix() - int64(retentionDays)*86400

	err = retryOnBusy(ctx, func() error {
		deleted = 0
		tx, err := s.writer.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		for _, table := range []string{"system_samples", "network_samples", "log_events"} {
			res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE timestamp < ?", cutoff)
			if err != nil {
				return fmt.Errorf("delete old %s: %w", table, err)
			}
			n, _ := res.RowsAffected()
			deleted += n
		}

		for _, table := range []string{"process_traces", "network_traces", "error_traces"} {
			res, err := tx.ExecContext(ctx,
				"DELETE FROM "+table+" WHERE trace_id IN (SELECT id FROM event_traces WHERE timestamp < ?)", cutoff)
			if err != nil {
				return fmt.Errorf("delete old %s: %w", table, err)
			}
			n, _ := res.RowsAffected()
			deleted += n
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM event_traces WHERE timestamp < ?", cutoff)
		if err != nil {
			return fmt.Errorf("delete old event_traces: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += n

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	_, _ = s.writer.ExecContext(ctx, "PRAGMA incremental_vacuum(1000)")
	return deleted, nil
}

// CheckpointIfWALExceeds restarts the WAL when its size passes the
// threshold, keeping the sidecar file bounded on long-running hosts.
func (s *Store) CheckpointIfWALExceeds(ctx context.Context, thresholdBytes int64) (bool, error) {
	if s.walSizeBytes() <= thresholdBytes {
		return false, nil
	}
	if _, err := s.writer.ExecContext(ctx, "PRAGMA wal_checkpoint(RESTART)"); err != nil {
		return false, fmt.Errorf("wal restart checkpoint: %w", err)
	}
	return true, nil
}

func (s *Store) walSizeBytes() int64 {
	fi, err := os.Stat(s.path + "-wal")
	if err != nil {
		return 0
	}
	return fi.Size()
}
