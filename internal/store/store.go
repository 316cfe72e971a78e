package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	_ "modernc.org/sqlite"
)

// Store is the single point of truth for the on-disk schema: writes, range
// reads, aggregate computation and retention deletion all go through it.
// One writer connection serializes mutations; a small reader pool serves
// range queries concurrently under WAL.
type Store struct {
	path   string
	writer *sql.DB
	reader *sql.DB
	policy ReputationPolicy
}

const pragmaSQL = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 30000;
PRAGMA temp_store = MEMORY;
PRAGMA auto_vacuum = INCREMENTAL;
PRAGMA cache_size = -8000;
`

func init() {
	sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, _ string) error {
		_, err := conn.ExecContext(context.Background(), pragmaSQL, []driver.NamedValue{})
		return err
	})
}

// Open creates or opens the datastore at path, applies pragmas and schema,
// and seeds the metadata singleton on first initialization. Open failure is
// the only fatal storage error in the daemon.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := "file:" + path
	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer db: %w", err)
	}
	writer.SetMaxOpenConns(1)
	writer.SetMaxIdleConns(1)
	writer.SetConnMaxLifetime(0)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader db: %w", err)
	}
	reader.SetMaxOpenConns(4)
	reader.SetMaxIdleConns(4)

	if err := writer.PingContext(context.Background()); err != nil {
		_ = writer.Close()
		_ = reader.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}
	if err := reader.PingContext(context.Background()); err != nil {
		_ = writer.Close()
		_ = reader.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	if _, err := writer.Exec(schemaDDL); err != nil {
		_ = writer.Close()
		_ = reader.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{path: path, writer: writer, reader: reader, policy: DefaultReputationPolicy()}
	if err := s.initMetadata(context.Background()); err != nil {
		_ = writer.Close()
		_ = reader.Close()
		return nil, fmt.Errorf("init metadata: %w", err)
	}
	return s, nil
}

// initMetadata writes schema version and instance identity once; later opens
// leave existing values untouched.
func (s *Store) initMetadata(ctx context.Context) error {
	rows := map[string]string{
		"schema_version": schemaVersion,
		"instance_id":    uuid.NewString(),
		"created_at":     fmt.Sprintf("%d", time.Now().Unix()),
	}
	for key, value := range rows {
		if _, err := s.writer.ExecContext(ctx,
			"INSERT OR IGNORE INTO metadata (key, value) VALUES (?, ?)", key, value); err != nil {
			return err
		}
	}
	return nil
}

// MetadataValue returns the value for a metadata key, or "" if unset.
func (s *Store) MetadataValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.reader.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Ping(ctx context.Context) error {
	return s.writer.PingContext(ctx)
}

func (s *Store) Checkpoint(ctx context.Context) error {
	_, err := s.writer.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func (s *Store) Close() error {
	var errs []error
	if err := s.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.reader.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Store) Pragmas(ctx context.Context) (journalMode string, busyTimeout int, err error) {
	if err = s.writer.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return "", 0, err
	}
	if err = s.writer.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		return "", 0, err
	}
	return journalMode, busyTimeout, nil
}

// Stats reports per-table row counts and on-disk sizes for the status
// endpoint.
type Stats struct {
	DBStatus    string
	DBSizeBytes int64
	WALSize     int64
	RowCounts   map[string]int64
}

var statTables = []string{
	"system_samples", "network_samples", "log_events",
	"hourly_aggregates", "daily_aggregates",
	"event_traces", "process_traces", "network_traces", "error_traces",
	"ip_reputation",
}

func (s *Store) Stats(ctx context.Context) Stats {
	stats := Stats{DBStatus: "ok", RowCounts: make(map[string]int64, len(statTables))}
	if err := s.Ping(ctx); err != nil {
		stats.DBStatus = "error"
	}
	if fi, err := os.Stat(s.path); err == nil {
		stats.DBSizeBytes = fi.Size()
	}
	if fi, err := os.Stat(s.path + "-wal"); err == nil {
		stats.WALSize = fi.Size()
	}
	for _, table := range statTables {
		var count int64
		if err := s.reader.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err == nil {
			stats.RowCounts[table] = count
		}
	}
	return stats
}
