package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenAppliesPragmasAndSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "loggard.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = st.Close() }()

	journal, busy, err := st.Pragmas(context.Background())
	if err != nil {
		t.Fatalf("Pragmas() error = %v", err)
	}
	if journal != "wal" {
		t.Fatalf("journal mode = %q, want wal", journal)
	}
	if busy != 30000 {
		t.Fatalf("busy_timeout = %d, want 30000", busy)
	}

	stats := st.Stats(context.Background())
	if stats.DBStatus != "ok" {
		t.Fatalf("db status = %q, want ok", stats.DBStatus)
	}
	if _, ok := stats.RowCounts["system_samples"]; !ok {
		t.Fatalf("stats missing system_samples row count")
	}
}

func TestMetadataSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "loggard.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}

	id1, err := st.MetadataValue(context.Background(), "instance_id")
	if err != nil {
		t.Fatalf("read instance_id: %v", err)
	}
	if id1 == "" {
		t.Fatalf("instance_id not seeded on first open")
	}
	version, err := st.MetadataValue(context.Background(), "schema_version")
	if err != nil || version == "" {
		t.Fatalf("schema_version = %q, err = %v", version, err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st2.Close() }()

	id2, err := st2.MetadataValue(context.Background(), "instance_id")
	if err != nil {
		t.Fatalf("read instance_id after reopen: %v", err)
	}
	if id2 != id1 {
		t.Fatalf("instance_id changed across reopen: %q != %q", id2, id1)
	}
}

func TestMetadataValueMissingKey(t *testing.T) {
	t.Parallel()

	st, err := Open(filepath.Join(t.TempDir(), "loggard.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = st.Close() }()

	value, err := st.MetadataValue(context.Background(), "no_such_key")
	if err != nil {
		t.Fatalf("MetadataValue() error = %v", err)
	}
	if value != "" {
		t.Fatalf("value = %q, want empty", value)
	}
}
