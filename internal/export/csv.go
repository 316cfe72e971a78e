// Package export writes stored telemetry out as CSV, JSON or a plain-text
// summary report. Exporters stream to an io.Writer; callers own file
// creation and naming.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/loggard/loggard/internal/store"
)

const timestampFormat = "2006-01-02 15:04:05"

func formatTS(unix int64) string {
	return time.Unix(unix, 0).Format(timestampFormat)
}

// WriteSystemCSV exports system samples in [start, end) as CSV rows.
func WriteSystemCSV(ctx context.Context, st *store.Store, w io.Writer, start, end int64) (int, error) {
	samples, err := st.QuerySystemSamples(ctx, start, end, 0)
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	header := []string{
		"timestamp", "cpu_percent", "cpu_count", "memory_total", "memory_available",
		"memory_percent", "disk_total", "disk_used", "disk_percent",
		"disk_read_bytes", "disk_write_bytes", "load_1min", "load_5min", "load_15min",
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	for _, s := range samples {
		row := []string{
			formatTS(s.Timestamp),
			fmt.Sprintf("%.2f", s.CPUPercent),
			fmt.Sprintf("%d", s.CPUCount),
			fmt.Sprintf("%d", s.MemoryTotal),
			fmt.Sprintf("%d", s.MemoryAvail),
			fmt.Sprintf("%.2f", s.MemoryPercent),
			fmt.Sprintf("%d", s.DiskTotal),
			fmt.Sprintf("%d", s.DiskUsed),
			fmt.Sprintf("%.2f", s.DiskPercent),
			fmt.Sprintf("%d", s.DiskReadBytes),
			fmt.Sprintf("%d", s.DiskWriteBytes),
			fmt.Sprintf("%.2f", s.Load1Min),
			fmt.Sprintf("%.2f", s.Load5Min),
			fmt.Sprintf("%.2f", s.Load15Min),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(samples), cw.Error()
}

// WriteNetworkCSV exports network samples in [start, end) as CSV rows.
func WriteNetworkCSV(ctx context.Context, st *store.Store, w io.Writer, start, end int64) (int, error) {
	samples, err := st.QueryNetworkSamples(ctx, start, end, 0)
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	header := []string{
		"timestamp", "bytes_sent", "bytes_recv", "packets_sent", "packets_recv",
		"errors_in", "errors_out", "drops_in", "drops_out",
		"connections_established", "connections_listen", "connections_time_wait",
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	for _, s := range samples {
		row := []string{
			formatTS(s.Timestamp),
			fmt.Sprintf("%d", s.BytesSent),
			fmt.Sprintf("%d", s.BytesRecv),
			fmt.Sprintf("%d", s.PacketsSent),
			fmt.Sprintf("%d", s.PacketsRecv),
			fmt.Sprintf("%d", s.ErrorsIn),
			fmt.Sprintf("%d", s.ErrorsOut),
			fmt.Sprintf("%d", s.DropsIn),
			fmt.Sprintf("%d", s.DropsOut),
			fmt.Sprintf("%d", s.ConnEstablished),
			fmt.Sprintf("%d", s.ConnListen),
			fmt.Sprintf("%d", s.ConnTimeWait),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(samples), cw.Error()
}

// WriteLogEventsCSV exports log events in [start, end), optionally filtered.
func WriteLogEventsCSV(ctx context.Context, st *store.Store, w io.Writer, start, end int64, filter store.EventFilter) (int, error) {
	events, err := st.QueryLogEvents(ctx, start, end, filter, 0)
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	header := []string{"timestamp", "source", "level", "message", "ip_address", "user", "service", "action"}
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	for _, e := range events {
		row := []string{
			formatTS(e.Timestamp), e.Source, e.Level, e.Message,
			e.IPAddress, e.User, e.Service, e.Action,
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(events), cw.Error()
}
