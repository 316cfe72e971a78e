package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

// EventFilter is an exact-match conjunction over the indexed log event
// columns. Zero values mean "no filter".
type EventFilter struct {
	Source    string
	Level     string
	IPAddress string
}

// TraceFilter narrows trace queries; MinSeverity is a floor, the string
// fields are exact matches.
type TraceFilter struct {
	Source      string
	IPAddress   string
	MinSeverity int
}

// QuerySystemSamples returns samples with start <= timestamp < end, ascending
// by timestamp. limit <= 0 means unbounded.
func (s *Store) QuerySystemSamples(ctx context.Context, start, end int64, limit int) ([]SystemSample, error) {
	query := `
SELECT timestamp, COALESCE(cpu_percent, 0), COALESCE(cpu_count, 0),
  COALESCE(memory_total, 0), COALESCE(memory_available, 0), COALESCE(memory_percent, 0),
  COALESCE(disk_total, 0), COALESCE(disk_used, 0), COALESCE(disk_percent, 0),
  COALESCE(disk_read_bytes, 0), COALESCE(disk_write_bytes, 0),
  COALESCE(load_1min, 0), COALESCE(load_5min, 0), COALESCE(load_15min, 0)
FROM system_samples
WHERE timestamp >= ? AND timestamp < ?
ORDER BY timestamp ASC` + limitClause(limit)

	rows, err := s.reader.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SystemSample
	for rows.Next() {
		var m SystemSample
		if err := rows.Scan(
			&m.Timestamp, &m.CPUPercent, &m.CPUCount,
			&m.MemoryTotal, &m.MemoryAvail, &m.MemoryPercent,
			&m.DiskTotal, &m.DiskUsed, &m.DiskPercent,
			&m.DiskReadBytes, &m.DiskWriteBytes,
			&m.Load1Min, &m.Load5Min, &m.Load15Min,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryNetworkSamples returns samples with start <= timestamp < end,
// ascending by timestamp.
func (s *Store) QueryNetworkSamples(ctx context.Context, start, end int64, limit int) ([]NetworkSample, error) {
	query := `
SELECT timestamp, COALESCE(bytes_sent, 0), COALESCE(bytes_recv, 0),
  COALESCE(packets_sent, 0), COALESCE(packets_recv, 0),
  COALESCE(errors_in, 0), COALESCE(errors_out, 0),
  COALESCE(drops_in, 0), COALESCE(drops_out, 0),
  COALESCE(connections_established, 0), COALESCE(connections_listen, 0),
  COALESCE(connections_time_wait, 0)
FROM network_samples
WHERE timestamp >= ? AND timestamp < ?
ORDER BY timestamp ASC` + limitClause(limit)

	rows, err := s.reader.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NetworkSample
	for rows.Next() {
		var m NetworkSample
		if err := rows.Scan(
			&m.Timestamp, &m.BytesSent, &m.BytesRecv,
			&m.PacketsSent, &m.PacketsRecv,
			&m.ErrorsIn, &m.ErrorsOut, &m.DropsIn, &m.DropsOut,
			&m.ConnEstablished, &m.ConnListen, &m.ConnTimeWait,
		); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryLogEvents returns events with start <= timestamp < end matching the
// filter, ascending by timestamp.
func (s *Store) QueryLogEvents(ctx context.Context, start, end int64, filter EventFilter, limit int) ([]LogEvent, error) {
	var b strings.Builder
	b.WriteString(`
SELECT id, timestamp, source, COALESCE(level, ''), message,
  COALESCE(ip_address, ''), COALESCE(user, ''), COALESCE(service, ''),
  COALESCE(action, ''), COALESCE(metadata, '')
FROM log_events
WHERE timestamp >= ? AND timestamp < ?`)
	args := []any{start, end}

	if filter.Source != "" {
		b.WriteString(" AND source = ?")
		args = append(args, filter.Source)
	}
	if filter.Level != "" {
		b.WriteString(" AND level = ?")
		args = append(args, filter.Level)
	}
	if filter.IPAddress != "" {
		b.WriteString(" AND ip_address = ?")
		args = append(args, filter.IPAddress)
	}
	b.WriteString(" ORDER BY timestamp ASC")
	b.WriteString(limitClause(limit))

	rows, err := s.reader.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogEvent
	for rows.Next() {
		var e LogEvent
		if err := rows.Scan(
			&e.ID, &e.Timestamp, &e.Source, &e.Level, &e.Message,
			&e.IPAddress, &e.User, &e.Service, &e.Action, &e.Metadata,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// QueryTraces returns event traces with start <= timestamp < end matching the
// filter, ascending by timestamp.
func (s *Store) QueryTraces(ctx context.Context, start, end int64, filter TraceFilter, limit int) ([]EventTrace, error) {
	var b strings.Builder
	b.WriteString(`
SELECT id, timestamp, source, COALESCE(level, ''), severity_score, message,
  COALESCE(action, ''), COALESCE(service, ''), COALESCE(user, ''),
  COALESCE(ip_address, ''), COALESCE(root_cause, ''), COALESCE(trigger_event, ''),
  COALESCE(causality_chain, ''), COALESCE(related_services, ''), traced_at
FROM event_traces
WHERE timestamp >= ? AND timestamp < ?`)
	args := []any{start, end}

	if filter.Source != "" {
		b.WriteString(" AND source = ?")
		args = append(args, filter.Source)
	}
	if filter.IPAddress != "" {
		b.WriteString(" AND ip_address = ?")
		args = append(args, filter.IPAddress)
	}
	if filter.MinSeverity > 0 {
		b.WriteString(" AND severity_score >= ?")
		args = append(args, filter.MinSeverity)
	}
	b.WriteString(" ORDER BY timestamp ASC")
	b.WriteString(limitClause(limit))

	rows, err := s.reader.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventTrace
	for rows.Next() {
		var t EventTrace
		if err := rows.Scan(
			&t.ID, &t.Timestamp, &t.Source, &t.Level, &t.SeverityScore, &t.Message,
			&t.Action, &t.Service, &t.User, &t.IPAddress,
			&t.RootCause, &t.TriggerEvent, &t.CausalityChain, &t.RelatedServices,
			&t.TracedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// HourlyAggregate reads the rollup row for one hour bucket. Returns
// sql.ErrNoRows if the bucket has not been computed.
func (s *Store) HourlyAggregate(ctx context.Context, hourTimestamp int64) (HourlyAggregate, error) {
	var a HourlyAggregate
	err := s.reader.QueryRowContext(ctx, `
SELECT hour_timestamp, COALESCE(avg_cpu_percent, 0), COALESCE(max_cpu_percent, 0),
  COALESCE(avg_memory_percent, 0), COALESCE(max_memory_percent, 0),
  COALESCE(avg_disk_percent, 0), total_bytes_sent, total_bytes_recv,
  total_packets_sent, total_packets_recv, log_events_count,
  failed_login_count, banned_count, error_count, warning_count, computed_at
FROM hourly_aggregates WHERE hour_timestamp = ?
`, hourTimestamp).Scan(
		&a.HourTimestamp, &a.AvgCPUPercent, &a.MaxCPUPercent,
		&a.AvgMemoryPercent, &a.MaxMemoryPercent, &a.AvgDiskPercent,
		&a.TotalBytesSent, &a.TotalBytesRecv,
		&a.TotalPacketsSent, &a.TotalPacketsRecv, &a.LogEventsCount,
		&a.FailedLoginCount, &a.BannedCount, &a.ErrorCount, &a.WarningCount,
		&a.ComputedAt,
	)
	return a, err
}

// DailyAggregate reads the rollup row for one calendar day.
func (s *Store) DailyAggregate(ctx context.Context, date string) (DailyAggregate, error) {
	var a DailyAggregate
	err := s.reader.QueryRowContext(ctx, `
SELECT date, COALESCE(avg_cpu_percent, 0), COALESCE(max_cpu_percent, 0),
  COALESCE(avg_memory_percent, 0), COALESCE(max_memory_percent, 0),
  COALESCE(avg_disk_percent, 0), total_bytes_sent, total_bytes_recv,
  log_events_count, failed_login_count, banned_count, error_count,
  warning_count, unique_banned_ips, unique_failed_users, computed_at
FROM daily_aggregates WHERE date = ?
`, date).Scan(
		&a.Date, &a.AvgCPUPercent, &a.MaxCPUPercent,
		&a.AvgMemoryPercent, &a.MaxMemoryPercent, &a.AvgDiskPercent,
		&a.TotalBytesSent, &a.TotalBytesRecv,
		&a.LogEventsCount, &a.FailedLoginCount, &a.BannedCount,
		&a.ErrorCount, &a.WarningCount,
		&a.UniqueBannedIPs, &a.UniqueFailedUsers, &a.ComputedAt,
	)
	return a, err
}

// HourlyAggregates returns all rollup rows in [start, end), ascending.
func (s *Store) HourlyAggregates(ctx context.Context, start, end int64) ([]HourlyAggregate, error) {
	rows, err := s.reader.QueryContext(ctx, `
SELECT hour_timestamp, COALESCE(avg_cpu_percent, 0), COALESCE(max_cpu_percent, 0),
  COALESCE(avg_memory_percent, 0), COALESCE(max_memory_percent, 0),
  COALESCE(avg_disk_percent, 0), total_bytes_sent, total_bytes_recv,
  total_packets_sent, total_packets_recv, log_events_count,
  failed_login_count, banned_count, error_count, warning_count, computed_at
FROM hourly_aggregates
WHERE hour_timestamp >= ? AND hour_timestamp < ?
ORDER BY hour_timestamp ASC
`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HourlyAggregate
	for rows.Next() {
		var a HourlyAggregate
		if err := rows.Scan(
			&a.HourTimestamp, &a.AvgCPUPercent, &a.MaxCPUPercent,
			&a.AvgMemoryPercent, &a.MaxMemoryPercent, &a.AvgDiskPercent,
			&a.TotalBytesSent, &a.TotalBytesRecv,
			&a.TotalPacketsSent, &a.TotalPacketsRecv, &a.LogEventsCount,
			&a.FailedLoginCount, &a.BannedCount, &a.ErrorCount, &a.WarningCount,
			&a.ComputedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// IPReputationFor returns the reputation profile for one IP, or nil if the
// IP has never been seen.
func (s *Store) IPReputationFor(ctx context.Context, ip string) (*IPReputation, error) {
	var r IPReputation
	var blacklisted int
	err := s.reader.QueryRowContext(ctx, `
SELECT ip, type, is_blacklisted, threat_score, first_seen, last_seen,
  total_events, failed_login_count, successful_login_count, banned_count, updated_at
FROM ip_reputation WHERE ip = ?
`, ip).Scan(
		&r.IP, &r.Type, &blacklisted, &r.ThreatScore, &r.FirstSeen, &r.LastSeen,
		&r.TotalEvents, &r.FailedLoginCount, &r.SuccessfulLoginCount, &r.BannedCount,
		&r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.IsBlacklisted = blacklisted != 0
	return &r, nil
}

// HighThreatIPs returns profiles at or above the threat score threshold,
// most threatening first.
func (s *Store) HighThreatIPs(ctx context.Context, threshold int) ([]IPReputation, error) {
	rows, err := s.reader.QueryContext(ctx, `
SELECT ip, type, is_blacklisted, threat_score, first_seen, last_seen,
  total_events, failed_login_count, successful_login_count, banned_count, updated_at
FROM ip_reputation
WHERE threat_score >= ?
ORDER BY threat_score DESC, last_seen DESC
`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IPReputation
	for rows.Next() {
		var r IPReputation
		var blacklisted int
		if err := rows.Scan(
			&r.IP, &r.Type, &blacklisted, &r.ThreatScore, &r.FirstSeen, &r.LastSeen,
			&r.TotalEvents, &r.FailedLoginCount, &r.SuccessfulLoginCount, &r.BannedCount,
			&r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		r.IsBlacklisted = blacklisted != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(limit)
}
