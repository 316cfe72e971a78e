package analysis

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loggard/loggard/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "loggard.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func insertFailedLogins(t *testing.T, st *store.Store, ip string, n int, base, spacing int64) {
	t.Helper()
	events := make([]store.LogEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, store.LogEvent{
			Timestamp: base + int64(i)*spacing,
			Source:    "auth",
			Level:     "WARNING",
			Message:   "Failed password for root from " + ip,
			Action:    "failed_login",
			Service:   "ssh",
			User:      "root",
			IPAddress: ip,
		})
	}
	if _, _, err := st.InsertLogEvents(context.Background(), events); err != nil {
		t.Fatalf("insert failed logins: %v", err)
	}
}

func TestFindBruteForce(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	d := NewDetector(st, Thresholds{})
	now := time.Now().Unix()

	// A burst crossing the threshold, and a quieter IP below it.
	insertFailedLogins(t, st, "203.0.113.7", 8, now-600, 30)
	insertFailedLogins(t, st, "198.51.100.4", 3, now-600, 30)

	issues, err := d.FindBruteForce(context.Background(), 24)
	if err != nil {
		t.Fatalf("FindBruteForce: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(issues), issues)
	}
	issue := issues[0]
	if issue.Category != "security" || issue.Count != 8 {
		t.Fatalf("issue = %+v", issue)
	}
	// 8 attempts over threshold 5: base 50 + 15, +20 burst bonus.
	if issue.Severity != 85 {
		t.Fatalf("severity = %d, want 85", issue.Severity)
	}
}

func TestFindBruteForceSlowAttackNoBurstBonus(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	d := NewDetector(st, Thresholds{})
	now := time.Now().Unix()

	// Same count spread over an hour: no burst bonus.
	insertFailedLogins(t, st, "203.0.113.9", 8, now-3600, 450)

	issues, err := d.FindBruteForce(context.Background(), 24)
	if err != nil {
		t.Fatalf("FindBruteForce: %v", err)
	}
	if len(issues) != 1 || issues[0].Severity != 65 {
		t.Fatalf("issues = %+v, want one with severity 65", issues)
	}
}

func TestFindResourcePressure(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	d := NewDetector(st, Thresholds{})
	ctx := context.Background()
	now := time.Now().Unix()

	samples := []store.SystemSample{
		{Timestamp: now - 300, CPUPercent: 50, MemoryPercent: 40, DiskPercent: 30},
		{Timestamp: now - 240, CPUPercent: 95, MemoryPercent: 40, DiskPercent: 30},
		{Timestamp: now - 180, CPUPercent: 97, MemoryPercent: 40, DiskPercent: 30},
	}
	for _, s := range samples {
		if err := st.InsertSystemSample(ctx, s); err != nil {
			t.Fatalf("insert sample: %v", err)
		}
	}

	issues, err := d.FindResourcePressure(ctx, 1)
	if err != nil {
		t.Fatalf("FindResourcePressure: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(issues), issues)
	}
	issue := issues[0]
	if issue.Category != "performance" || issue.Count != 2 {
		t.Fatalf("issue = %+v", issue)
	}
	// Peak 97 over threshold 90: 40 + 14.
	if issue.Severity != 54 {
		t.Fatalf("severity = %d, want 54", issue.Severity)
	}
}

func TestFindErrorSpikes(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	d := NewDetector(st, Thresholds{ErrorsPerHour: 3})
	ctx := context.Background()

	hour := time.Now().Unix() - 3600
	hour -= hour % 3600
	events := make([]store.LogEvent, 0, 4)
	for i := 0; i < 4; i++ {
		events = append(events, store.LogEvent{
			Timestamp: hour + int64(i*60),
			Source:    "syslog",
			Level:     "ERROR",
			Message:   "disk error",
		})
	}
	if _, _, err := st.InsertLogEvents(ctx, events); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.ComputeHourlyAggregate(ctx, hour); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	issues, err := d.FindErrorSpikes(ctx, 24)
	if err != nil {
		t.Fatalf("FindErrorSpikes: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if issues[0].Category != "errors" || issues[0].Count != 4 {
		t.Fatalf("issue = %+v", issues[0])
	}
}

func TestNewDetectorMergesThresholds(t *testing.T) {
	t.Parallel()

	d := NewDetector(nil, Thresholds{FailedLoginCount: 10, DiskPercent: 95})
	if d.thresholds.FailedLoginCount != 10 || d.thresholds.DiskPercent != 95 {
		t.Fatalf("overrides lost: %+v", d.thresholds)
	}
	if d.thresholds.CPUPercent != 90 || d.thresholds.ThreatScore != 70 {
		t.Fatalf("defaults lost: %+v", d.thresholds)
	}
}
