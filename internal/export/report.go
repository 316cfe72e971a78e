package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/loggard/loggard/internal/store"
)

const (
	reportWidth = 70

	// Reputation profiles at or above this score are called out in the
	// security section.
	highThreatFloor = 70
)

// WriteSummaryReport renders a plain-text overview of one time window:
// resource statistics, network totals, log event counts and datastore size.
func WriteSummaryReport(ctx context.Context, st *store.Store, w io.Writer, start, end int64) error {
	var b strings.Builder
	rule := strings.Repeat("=", reportWidth)
	sub := strings.Repeat("-", reportWidth)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "LOGGARD SUMMARY REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Report Period: %s to %s\n", formatTS(start), formatTS(end))
	fmt.Fprintf(&b, "Duration: %.1f hours\n\n", float64(end-start)/3600)

	fmt.Fprintln(&b, sub)
	fmt.Fprintln(&b, "SYSTEM METRICS")
	fmt.Fprintln(&b, sub)
	samples, err := st.QuerySystemSamples(ctx, start, end, 0)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		fmt.Fprintln(&b, "  No system samples found")
	} else {
		var sumCPU, maxCPU, sumMem, maxMem, sumDisk float64
		for _, s := range samples {
			sumCPU += s.CPUPercent
			sumMem += s.MemoryPercent
			sumDisk += s.DiskPercent
			if s.CPUPercent > maxCPU {
				maxCPU = s.CPUPercent
			}
			if s.MemoryPercent > maxMem {
				maxMem = s.MemoryPercent
			}
		}
		n := float64(len(samples))
		fmt.Fprintf(&b, "  CPU Usage (avg):        %.1f%%\n", sumCPU/n)
		fmt.Fprintf(&b, "  CPU Usage (max):        %.1f%%\n", maxCPU)
		fmt.Fprintf(&b, "  Memory Usage (avg):     %.1f%%\n", sumMem/n)
		fmt.Fprintf(&b, "  Memory Usage (max):     %.1f%%\n", maxMem)
		fmt.Fprintf(&b, "  Disk Usage (avg):       %.1f%%\n", sumDisk/n)
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, sub)
	fmt.Fprintln(&b, "NETWORK METRICS")
	fmt.Fprintln(&b, sub)
	netSamples, err := st.QueryNetworkSamples(ctx, start, end, 0)
	if err != nil {
		return err
	}
	if len(netSamples) == 0 {
		fmt.Fprintln(&b, "  No network samples found")
	} else {
		first, last := netSamples[0], netSamples[len(netSamples)-1]
		fmt.Fprintf(&b, "  Bytes Sent (delta):     %s\n", formatBytes(clamp(last.BytesSent-first.BytesSent)))
		fmt.Fprintf(&b, "  Bytes Received (delta): %s\n", formatBytes(clamp(last.BytesRecv-first.BytesRecv)))
		fmt.Fprintf(&b, "  Packets Sent (delta):   %d\n", clamp(last.PacketsSent-first.PacketsSent))
		fmt.Fprintf(&b, "  Packets Received (delta): %d\n", clamp(last.PacketsRecv-first.PacketsRecv))
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, sub)
	fmt.Fprintln(&b, "LOG EVENTS")
	fmt.Fprintln(&b, sub)
	events, err := st.QueryLogEvents(ctx, start, end, store.EventFilter{}, 0)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintln(&b, "  No log events found")
	} else {
		var failed, banned, errs, warns int
		sources := make(map[string]int)
		for _, e := range events {
			sources[e.Source]++
			switch e.Action {
			case "failed_login":
				failed++
			case "ban":
				banned++
			}
			switch e.Level {
			case "ERROR", "CRITICAL":
				errs++
			case "WARNING":
				warns++
			}
		}
		fmt.Fprintf(&b, "  Total Events:           %d\n", len(events))
		fmt.Fprintf(&b, "  Failed Logins:          %d\n", failed)
		fmt.Fprintf(&b, "  Bans:                   %d\n", banned)
		fmt.Fprintf(&b, "  Errors:                 %d\n", errs)
		fmt.Fprintf(&b, "  Warnings:               %d\n", warns)
		fmt.Fprintln(&b, "  Events by Source:")
		for _, name := range sortedKeys(sources) {
			fmt.Fprintf(&b, "    %-20s  %d\n", name, sources[name])
		}
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, sub)
	fmt.Fprintln(&b, "SECURITY")
	fmt.Fprintln(&b, sub)
	threats, err := st.HighThreatIPs(ctx, highThreatFloor)
	if err != nil {
		return err
	}
	if len(threats) == 0 {
		fmt.Fprintln(&b, "  No high threat addresses")
	} else {
		for _, r := range threats {
			flag := ""
			if r.IsBlacklisted {
				flag = "  [BLACKLISTED]"
			}
			fmt.Fprintf(&b, "  %-18s score %3d  %d failed logins, %d bans%s\n",
				r.IP, r.ThreatScore, r.FailedLoginCount, r.BannedCount, flag)
		}
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, sub)
	fmt.Fprintln(&b, "DATABASE STATISTICS")
	fmt.Fprintln(&b, sub)
	stats := st.Stats(ctx)
	fmt.Fprintf(&b, "  System Sample Rows:     %d\n", stats.RowCounts["system_samples"])
	fmt.Fprintf(&b, "  Network Sample Rows:    %d\n", stats.RowCounts["network_samples"])
	fmt.Fprintf(&b, "  Log Event Rows:         %d\n", stats.RowCounts["log_events"])
	fmt.Fprintf(&b, "  Hourly Aggregates:      %d\n", stats.RowCounts["hourly_aggregates"])
	fmt.Fprintf(&b, "  Daily Aggregates:       %d\n", stats.RowCounts["daily_aggregates"])
	fmt.Fprintf(&b, "  Database Size:          %s\n", formatBytes(stats.DBSizeBytes))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Generated at %s\n", time.Now().Format(timestampFormat))

	_, err = io.WriteString(w, b.String())
	return err
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func formatBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div, exp := int64(unit), 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(v)/float64(div), "KMGTPE"[exp])
}
