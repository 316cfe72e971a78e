// Package config loads daemon configuration: compiled-in defaults, then an
// optional YAML file merged over them, then LGD_* environment overrides on
// top. Later layers win.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that parses "60s"/"5m" style strings from
// both YAML values and environment variables.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	DBPath     string `yaml:"db_path" env:"LGD_DB_PATH, overwrite"`
	LogLevel   string `yaml:"log_level" env:"LGD_LOG_LEVEL, overwrite"`
	ServerAddr string `yaml:"server_addr" env:"LGD_SERVER_ADDR, overwrite"`

	Collection  Collection  `yaml:"collection"`
	Retention   Retention   `yaml:"retention"`
	Aggregation Aggregation `yaml:"aggregation"`
	LogSources  []LogSource `yaml:"log_sources"`
	Trace       Trace       `yaml:"trace"`
	Reputation  Reputation  `yaml:"reputation"`
}

type Collection struct {
	SystemInterval  Duration `yaml:"system_interval" env:"LGD_SYSTEM_INTERVAL, overwrite"`
	NetworkInterval Duration `yaml:"network_interval" env:"LGD_NETWORK_INTERVAL, overwrite"`
	LogInterval     Duration `yaml:"log_interval" env:"LGD_LOG_INTERVAL, overwrite"`
}

type Retention struct {
	Days               int      `yaml:"days" env:"LGD_RETENTION_DAYS, overwrite"`
	CleanupInterval    Duration `yaml:"cleanup_interval" env:"LGD_CLEANUP_INTERVAL, overwrite"`
	WALCheckpointBytes int64    `yaml:"wal_checkpoint_bytes" env:"LGD_WAL_CHECKPOINT_BYTES, overwrite"`
	WALCheckpointEvery Duration `yaml:"wal_checkpoint_every" env:"LGD_WAL_CHECKPOINT_EVERY, overwrite"`
}

type Aggregation struct {
	Hourly bool `yaml:"hourly"`
	Daily  bool `yaml:"daily"`
}

type LogSource struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

type Trace struct {
	Enabled           bool `yaml:"enabled"`
	SeverityThreshold int  `yaml:"severity_threshold" env:"LGD_TRACE_SEVERITY_THRESHOLD, overwrite"`
}

type Reputation struct {
	PublicBaseScore    int `yaml:"public_base_score"`
	FailedLoginWeight  int `yaml:"failed_login_weight"`
	FailedLoginCap     int `yaml:"failed_login_cap"`
	BanWeight          int `yaml:"ban_weight"`
	BanCap             int `yaml:"ban_cap"`
	BlacklistThreshold int `yaml:"blacklist_threshold" env:"LGD_BLACKLIST_THRESHOLD, overwrite"`
}

func Default() Config {
	return Config{
		DBPath:     "/var/lib/loggard/loggard.db",
		LogLevel:   "info",
		ServerAddr: ":9306",
		Collection: Collection{
			SystemInterval:  Duration(60 * time.Second),
			NetworkInterval: Duration(60 * time.Second),
			LogInterval:     Duration(5 * time.Minute),
		},
		Retention: Retention{
			Days:               90,
			CleanupInterval:    Duration(24 * time.Hour),
			WALCheckpointBytes: 50 << 20,
			WALCheckpointEvery: Duration(10 * time.Minute),
		},
		Aggregation: Aggregation{Hourly: true, Daily: true},
		LogSources: []LogSource{
			{Name: "fail2ban", Path: "/var/log/fail2ban.log", Enabled: true},
			{Name: "auth", Path: "/var/log/auth.log", Enabled: true},
			{Name: "syslog", Path: "/var/log/syslog", Enabled: true},
		},
		Trace: Trace{Enabled: true, SeverityThreshold: 50},
		Reputation: Reputation{
			PublicBaseScore:    10,
			FailedLoginWeight:  5,
			FailedLoginCap:     30,
			BanWeight:          20,
			BanCap:             40,
			BlacklistThreshold: 70,
		},
	}
}

// Load builds the effective configuration. path may be empty, in which case
// only defaults and environment apply; a named file that does not exist is
// an error.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return errors.New("db_path must not be empty")
	}
	if c.Collection.SystemInterval <= 0 || c.Collection.NetworkInterval <= 0 || c.Collection.LogInterval <= 0 {
		return errors.New("collection intervals must be positive")
	}
	if c.Retention.Days <= 0 {
		return errors.New("retention.days must be positive")
	}
	if c.Trace.SeverityThreshold < 0 || c.Trace.SeverityThreshold > 100 {
		return errors.New("trace.severity_threshold must be within 0..100")
	}
	return nil
}

func WriteHelp(w io.Writer, version string) {
	fmt.Fprintf(w, "loggard %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  export            dump system, network or event rows as CSV or JSON")
	fmt.Fprintln(w, "  report            render a plain-text summary report")
	fmt.Fprintln(w, "  analyze           run issue detectors and print the health assessment")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  --config <path>   YAML config file")
	fmt.Fprintln(w, "  --once            run every job one time and exit")
	fmt.Fprintln(w, "  --version")
	fmt.Fprintln(w, "  --help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (override config file):")
	fmt.Fprintln(w, "  LGD_DB_PATH=/var/lib/loggard/loggard.db")
	fmt.Fprintln(w, "  LGD_LOG_LEVEL=info")
	fmt.Fprintln(w, "  LGD_SERVER_ADDR=:9306")
	fmt.Fprintln(w, "  LGD_SYSTEM_INTERVAL=60s")
	fmt.Fprintln(w, "  LGD_NETWORK_INTERVAL=60s")
	fmt.Fprintln(w, "  LGD_LOG_INTERVAL=5m")
	fmt.Fprintln(w, "  LGD_RETENTION_DAYS=90")
	fmt.Fprintln(w, "  LGD_CLEANUP_INTERVAL=24h")
	fmt.Fprintln(w, "  LGD_WAL_CHECKPOINT_BYTES=52428800")
	fmt.Fprintln(w, "  LGD_WAL_CHECKPOINT_EVERY=10m")
	fmt.Fprintln(w, "  LGD_TRACE_SEVERITY_THRESHOLD=50")
	fmt.Fprintln(w, "  LGD_BLACKLIST_THRESHOLD=70")
}
