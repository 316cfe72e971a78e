package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordTrace persists one enriched event atomically: the root event_traces
// row first, then every child row tagged with the new parent id, then the
// reputation read-modify-write for the event's IP. Partial trace data is
// never visible; on any error the whole transaction rolls back and the same
// event can be recorded cleanly on retry.
//
// This is the only write path for process/network/error trace rows. The
// parent-before-children ordering inside one transaction is what stands in
// for enforced foreign keys.
func (s *Store) RecordTrace(ctx context.Context, event EnrichedEvent) (traceID int64, err error) {
	err = retryOnBusy(ctx, func() error {
		tx, err := s.writer.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		t := event.Trace
		res, err := tx.ExecContext(ctx, `
INSERT INTO event_traces (
  timestamp, source, level, severity_score, message, action, service,
  user, ip_address, root_cause, trigger_event, causality_chain,
  related_services, traced_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			t.Timestamp, t.Source, nullable(t.Level), t.SeverityScore, t.Message,
			nullable(t.Action), nullable(t.Service), nullable(t.User), nullable(t.IPAddress),
			nullable(t.RootCause), nullable(t.TriggerEvent), nullable(t.CausalityChain),
			nullable(t.RelatedServices), t.TracedAt,
		)
		if err != nil {
			return fmt.Errorf("insert event trace: %w", err)
		}
		traceID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("event trace id: %w", err)
		}

		for _, proc := range event.Processes {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO process_traces (
  trace_id, timestamp, pid, name, cmdline, state, parent_pid,
  memory_rss, memory_vm, cpu_utime, cpu_stime, threads, read_bytes, write_bytes
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
				traceID, proc.Timestamp, proc.PID, nullable(proc.Name), nullable(proc.Cmdline),
				nullable(proc.State), proc.ParentPID,
				proc.MemoryRSS, proc.MemoryVM, proc.CPUUTime, proc.CPUSTime,
				proc.Threads, proc.ReadBytes, proc.WriteBytes,
			); err != nil {
				return fmt.Errorf("insert process trace: %w", err)
			}
		}

		for _, conn := range event.Network {
			protocol := conn.Protocol
			if protocol == "" {
				protocol = "tcp"
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO network_traces (
  trace_id, timestamp, local_ip, local_port, remote_ip, remote_port, state, protocol
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
				traceID, conn.Timestamp, nullable(conn.LocalIP), conn.LocalPort,
				nullable(conn.RemoteIP), conn.RemotePort, nullable(conn.State), protocol,
			); err != nil {
				return fmt.Errorf("insert network trace: %w", err)
			}
		}

		if e := event.Error; e != nil {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO error_traces (
  trace_id, timestamp, error_type, error_category, severity, file_path,
  line_number, error_code, has_stacktrace, root_cause_hints, recovery_suggestions
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
				traceID, e.Timestamp, nullable(e.ErrorType), nullable(e.ErrorCategory),
				e.Severity, nullable(e.FilePath), e.LineNumber, nullable(e.ErrorCode),
				boolToInt(e.HasStacktrace), nullable(e.RootCauseHints),
				nullable(e.RecoverySuggestions),
			); err != nil {
				return fmt.Errorf("insert error trace: %w", err)
			}
		}

		if event.Reputation != nil {
			if err := s.updateIPReputation(ctx, tx, *event.Reputation, time.Now().Unix()); err != nil {
				return fmt.Errorf("update ip reputation: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return traceID, nil
}

// ChildCounts returns how many child rows of each kind a trace owns.
func (s *Store) ChildCounts(ctx context.Context, traceID int64) (processes, network, errors int64, err error) {
	row := s.reader.QueryRowContext(ctx, `
SELECT
  (SELECT COUNT(*) FROM process_traces WHERE trace_id = ?),
  (SELECT COUNT(*) FROM network_traces WHERE trace_id = ?),
  (SELECT COUNT(*) FROM error_traces WHERE trace_id = ?)
`, traceID, traceID, traceID)
	err = row.Scan(&processes, &network, &errors)
	return
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
