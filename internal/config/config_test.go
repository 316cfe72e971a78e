package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loggard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBPath != "/var/lib/loggard/loggard.db" {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
	if cfg.Collection.SystemInterval.Std() != 60*time.Second {
		t.Fatalf("system interval = %v", cfg.Collection.SystemInterval.Std())
	}
	if cfg.Retention.Days != 90 {
		t.Fatalf("retention days = %d", cfg.Retention.Days)
	}
	if !cfg.Aggregation.Hourly || !cfg.Aggregation.Daily {
		t.Fatalf("aggregation disabled by default: %+v", cfg.Aggregation)
	}
	if len(cfg.LogSources) != 3 {
		t.Fatalf("log sources = %+v", cfg.LogSources)
	}
	if cfg.Trace.SeverityThreshold != 50 {
		t.Fatalf("severity threshold = %d", cfg.Trace.SeverityThreshold)
	}
	if cfg.Reputation.BlacklistThreshold != 70 {
		t.Fatalf("blacklist threshold = %d", cfg.Reputation.BlacklistThreshold)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
db_path: /tmp/test.db
log_level: debug
collection:
  system_interval: 30s
  log_interval: 1m
retention:
  days: 7
log_sources:
  - name: nginx
    path: /var/log/nginx/access.log
    enabled: true
trace:
  enabled: false
  severity_threshold: 80
`)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBPath != "/tmp/test.db" || cfg.LogLevel != "debug" {
		t.Fatalf("top level = %q/%q", cfg.DBPath, cfg.LogLevel)
	}
	if cfg.Collection.SystemInterval.Std() != 30*time.Second {
		t.Fatalf("system interval = %v", cfg.Collection.SystemInterval.Std())
	}
	// Fields the file does not mention keep their defaults.
	if cfg.Collection.NetworkInterval.Std() != 60*time.Second {
		t.Fatalf("network interval = %v", cfg.Collection.NetworkInterval.Std())
	}
	if cfg.Retention.Days != 7 {
		t.Fatalf("retention days = %d", cfg.Retention.Days)
	}
	if len(cfg.LogSources) != 1 || cfg.LogSources[0].Name != "nginx" {
		t.Fatalf("log sources = %+v", cfg.LogSources)
	}
	if cfg.Trace.Enabled || cfg.Trace.SeverityThreshold != 80 {
		t.Fatalf("trace = %+v", cfg.Trace)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	t.Setenv("LGD_DB_PATH", "/env/override.db")
	t.Setenv("LGD_SYSTEM_INTERVAL", "15s")
	t.Setenv("LGD_RETENTION_DAYS", "30")

	path := writeConfig(t, `
db_path: /file/wins.db
collection:
  system_interval: 45s
retention:
  days: 14
`)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBPath != "/env/override.db" {
		t.Fatalf("db path = %q, env did not win", cfg.DBPath)
	}
	if cfg.Collection.SystemInterval.Std() != 15*time.Second {
		t.Fatalf("system interval = %v", cfg.Collection.SystemInterval.Std())
	}
	if cfg.Retention.Days != 30 {
		t.Fatalf("retention days = %d", cfg.Retention.Days)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("missing named file did not fail")
	}
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
	}{
		{"empty db path", "db_path: \"\""},
		{"zero interval", "collection:\n  system_interval: 0s"},
		{"zero retention", "retention:\n  days: 0"},
		{"threshold out of range", "trace:\n  severity_threshold: 150"},
	}
	for _, tc := range cases {
		path := writeConfig(t, tc.yaml)
		if _, err := Load(context.Background(), path); err == nil {
			t.Fatalf("%s: invalid config accepted", tc.name)
		}
	}
}

func TestDurationParsing(t *testing.T) {
	t.Parallel()

	var d Duration
	if err := d.UnmarshalText([]byte("90s")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Fatalf("duration = %v", d.Std())
	}
	if err := d.UnmarshalText([]byte("sixty")); err == nil {
		t.Fatalf("garbage duration accepted")
	}
}
