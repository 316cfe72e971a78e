package trace

import (
	"strings"
	"testing"

	"github.com/loggard/loggard/internal/store"
)

func TestClassifyErrorPatterns(t *testing.T) {
	t.Parallel()

	cases := []struct {
		message  string
		errType  string
		category string
	}{
		{"transaction aborted: deadlock detected", "db_deadlock", "database"},
		{"MemoryError: allocation failed", "out_of_memory", "resource"},
		{"write error: No space left on device (ENOSPC)", "disk_full", "resource"},
		{"upstream connection timeout after 30s", "connection_timeout", "network"},
		{"connect to 10.0.0.5:5432 refused", "connection_refused", "network"},
		{"open /etc/app.conf: permission denied", "permission_denied", "security"},
		{"No such file or directory", "file_not_found", "filesystem"},
		{"worker killed by segmentation fault", "segmentation_fault", "system"},
	}
	for _, tc := range cases {
		et := classifyError(store.LogEvent{Level: "ERROR", Message: tc.message})
		if et.ErrorType != tc.errType || et.ErrorCategory != tc.category {
			t.Fatalf("%q classified as %s/%s, want %s/%s",
				tc.message, et.ErrorType, et.ErrorCategory, tc.errType, tc.category)
		}
	}
}

func TestClassifyErrorFirstMatchWins(t *testing.T) {
	t.Parallel()

	// Database connection shapes must not fall through to the generic
	// network bucket.
	et := classifyError(store.LogEvent{Level: "ERROR", Message: "database connection refused"})
	if et.ErrorType != "db_connection" || et.ErrorCategory != "database" {
		t.Fatalf("got %s/%s", et.ErrorType, et.ErrorCategory)
	}
	if et.RootCauseHints == "" || et.RecoverySuggestions == "" {
		t.Fatalf("known type missing hints: %+v", et)
	}
	if !strings.Contains(et.RecoverySuggestions, "; ") {
		t.Fatalf("suggestions not joined: %q", et.RecoverySuggestions)
	}
}

func TestClassifyErrorUnknown(t *testing.T) {
	t.Parallel()

	et := classifyError(store.LogEvent{Level: "ERROR", Message: "something odd happened"})
	if et.ErrorType != "" || et.ErrorCategory != "unknown" {
		t.Fatalf("got %s/%s, want unknown category", et.ErrorType, et.ErrorCategory)
	}
	if et.Severity != 60 {
		t.Fatalf("severity = %d, want 60", et.Severity)
	}
	if et.RootCauseHints != "" || et.RecoverySuggestions != "" {
		t.Fatalf("unknown type carries hints: %+v", et)
	}
}

func TestClassifyErrorExtractsContext(t *testing.T) {
	t.Parallel()

	et := classifyError(store.LogEvent{
		Level:   "ERROR",
		Message: "panic in handler.go:42, error code 500, goroutine 12 stack follows",
	})
	if !et.HasStacktrace {
		t.Fatalf("stacktrace marker missed")
	}
	if et.FilePath != "handler.go" || et.LineNumber != 42 {
		t.Fatalf("file/line = %s:%d", et.FilePath, et.LineNumber)
	}
	if et.ErrorCode != "500" {
		t.Fatalf("error code = %q", et.ErrorCode)
	}
}
