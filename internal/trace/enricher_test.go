package trace

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/loggard/loggard/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeProcess(t *testing.T, root string, pid int, comm, stat string) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeProcFile(t, root, filepath.Join(strconv.Itoa(pid), "comm"), comm+"\n")
	writeProcFile(t, root, filepath.Join(strconv.Itoa(pid), "stat"), stat)
	writeProcFile(t, root, filepath.Join(strconv.Itoa(pid), "cmdline"), "/usr/sbin/"+comm+"\x00-D\x00")
	writeProcFile(t, root, filepath.Join(strconv.Itoa(pid), "io"),
		"read_bytes: 4096\nwrite_bytes: 8192\n")
}

func sshdStat(pid int) string {
	return strconv.Itoa(pid) + " (sshd) S 1 100 100 0 -1 4194560 500 0 0 0 " +
		"25 15 0 0 20 0 3 0 12345 10485760 256 18446744073709551615 0 0 0 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0\n"
}

func TestSnapshotProcessesByName(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fakeProcess(t, root, 1200, "sshd", sshdStat(1200))
	fakeProcess(t, root, 1300, "nginx", "1300 (nginx) S 1 1 1 0 -1 0 0 0 0 0 1 1 0 0 20 0 2 0 1 1024 10 0\n")
	writeProcFile(t, root, "stat", "cpu 0 0 0 0\n")

	e := NewEnricher(root, 40, discardLogger())
	procs := e.snapshotProcessesByName("sshd")
	if len(procs) != 1 {
		t.Fatalf("got %d processes, want 1", len(procs))
	}
	p := procs[0]
	if p.PID != 1200 || p.Name != "sshd" || p.State != "S" {
		t.Fatalf("snapshot = %+v", p)
	}
	if p.ParentPID != 1 || p.Threads != 3 {
		t.Fatalf("ppid/threads = %d/%d", p.ParentPID, p.Threads)
	}
	if p.CPUUTime != 25 || p.CPUSTime != 15 {
		t.Fatalf("cpu times = %d/%d", p.CPUUTime, p.CPUSTime)
	}
	if p.MemoryVM != 10485760 {
		t.Fatalf("vsize = %d", p.MemoryVM)
	}
	if p.MemoryRSS != 256*int64(os.Getpagesize()) {
		t.Fatalf("rss = %d", p.MemoryRSS)
	}
	if p.Cmdline != "/usr/sbin/sshd -D" {
		t.Fatalf("cmdline = %q", p.Cmdline)
	}
	if p.ReadBytes != 4096 || p.WriteBytes != 8192 {
		t.Fatalf("io = %d/%d", p.ReadBytes, p.WriteBytes)
	}

	if procs := e.snapshotProcessesByName(""); procs != nil {
		t.Fatalf("empty name matched processes")
	}
}

func TestSignificantThreshold(t *testing.T) {
	t.Parallel()

	e := NewEnricher(t.TempDir(), 40, discardLogger())
	if e.Significant(store.LogEvent{Level: "INFO"}) {
		t.Fatalf("INFO cleared threshold 40")
	}
	if !e.Significant(store.LogEvent{Level: "WARNING", Action: "failed_login"}) {
		t.Fatalf("failed login below threshold 40")
	}
}

func TestEnrichAssemblesTrace(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fakeProcess(t, root, 1200, "sshd", sshdStat(1200))

	e := NewEnricher(root, 40, discardLogger())
	event := store.LogEvent{
		Timestamp: 1700000000,
		Source:    "auth",
		Level:     "WARNING",
		Message:   "Failed password for root from 203.0.113.7 port 22",
		Action:    "failed_login",
		Service:   "sshd",
		User:      "root",
		IPAddress: "203.0.113.7",
	}

	enriched := e.Enrich(event)
	if enriched.Trace.SeverityScore != 50 {
		t.Fatalf("severity = %d, want 50", enriched.Trace.SeverityScore)
	}
	if enriched.Trace.RootCause != "invalid_credentials" {
		t.Fatalf("root cause = %q", enriched.Trace.RootCause)
	}
	if enriched.Trace.CausalityChain == "" || enriched.Trace.RelatedServices == "" {
		t.Fatalf("chain/services missing: %+v", enriched.Trace)
	}
	if len(enriched.Processes) != 1 || enriched.Processes[0].Name != "sshd" {
		t.Fatalf("processes = %+v", enriched.Processes)
	}
	if enriched.Error != nil {
		t.Fatalf("warning event got an error child")
	}
	if enriched.Reputation == nil {
		t.Fatalf("no reputation delta")
	}
	if enriched.Reputation.IP != "203.0.113.7" || enriched.Reputation.AddressType != "public" {
		t.Fatalf("reputation = %+v", enriched.Reputation)
	}
	if enriched.Reputation.Action != "failed_login" {
		t.Fatalf("reputation action = %q", enriched.Reputation.Action)
	}
}

func TestEnrichReputationWithoutAction(t *testing.T) {
	t.Parallel()

	// Any event naming an address feeds its reputation profile, even when
	// no security action was recognized on the line.
	e := NewEnricher(t.TempDir(), 40, discardLogger())
	enriched := e.Enrich(store.LogEvent{
		Level:     "ERROR",
		Source:    "nginx",
		Message:   "upstream timed out while reading response header",
		IPAddress: "198.51.100.9",
	})
	if enriched.Reputation == nil {
		t.Fatalf("event with IP produced no reputation delta")
	}
	if enriched.Reputation.IP != "198.51.100.9" || enriched.Reputation.Action != "" {
		t.Fatalf("reputation = %+v", enriched.Reputation)
	}
	if enriched.Reputation.AddressType != "public" {
		t.Fatalf("address type = %q", enriched.Reputation.AddressType)
	}
}

func TestEnrichErrorEventGetsErrorChild(t *testing.T) {
	t.Parallel()

	e := NewEnricher(t.TempDir(), 40, discardLogger())
	enriched := e.Enrich(store.LogEvent{
		Level:   "ERROR",
		Source:  "postgresql",
		Message: "FATAL: connection to database refused",
	})
	if enriched.Error == nil {
		t.Fatalf("error event got no error child")
	}
	if enriched.Error.ErrorCategory != "database" {
		t.Fatalf("category = %q", enriched.Error.ErrorCategory)
	}
	if enriched.Reputation != nil {
		t.Fatalf("event without IP produced a reputation delta")
	}
}
