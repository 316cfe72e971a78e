package collect

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/loggard/loggard/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append %s: %v", path, err)
	}
}

func TestLogCollectorReadsOnlyNewLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "auth.log")
	writeFile(t, path, "sshd[1]: Failed password for root from 203.0.113.7 port 22\n")

	c := NewLogCollector([]config.LogSource{{Name: "auth", Path: path, Enabled: true}}, discardLogger())

	events := c.Collect()
	if len(events) != 1 {
		t.Fatalf("first pass got %d events, want 1", len(events))
	}

	// Nothing new appended; second pass must return nothing.
	if events := c.Collect(); len(events) != 0 {
		t.Fatalf("second pass got %d events, want 0", len(events))
	}

	appendFile(t, path, "sshd[1]: Failed password for admin from 203.0.113.8 port 22\n")
	events = c.Collect()
	if len(events) != 1 {
		t.Fatalf("after append got %d events, want 1", len(events))
	}
	if events[0].IPAddress != "203.0.113.8" {
		t.Fatalf("got stale event: %+v", events[0])
	}
}

func TestLogCollectorHandlesTruncation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "auth.log")
	writeFile(t, path, "sshd[1]: Failed password for root from 203.0.113.7 port 22\nsshd[1]: Failed password for root from 203.0.113.7 port 22\n")

	c := NewLogCollector([]config.LogSource{{Name: "auth", Path: path, Enabled: true}}, discardLogger())
	if events := c.Collect(); len(events) != 2 {
		t.Fatalf("first pass got %d, want 2", len(events))
	}

	// Truncate-in-place rotation: file shrinks, offset must reset.
	writeFile(t, path, "sshd[1]: Failed password for bob from 198.51.100.4 port 22\n")
	events := c.Collect()
	if len(events) != 1 {
		t.Fatalf("after truncation got %d, want 1", len(events))
	}
	if events[0].User != "bob" {
		t.Fatalf("got %+v, want bob's event", events[0])
	}
}

func TestLogCollectorSkipsDisabledAndMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := filepath.Join(dir, "auth.log")
	writeFile(t, present, "sshd[1]: Failed password for root from 203.0.113.7 port 22\n")

	c := NewLogCollector([]config.LogSource{
		{Name: "auth", Path: present, Enabled: false},
		{Name: "syslog", Path: filepath.Join(dir, "missing.log"), Enabled: true},
	}, discardLogger())

	if events := c.Collect(); len(events) != 0 {
		t.Fatalf("got %d events from disabled/missing sources, want 0", len(events))
	}
}
