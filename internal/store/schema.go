package store

const schemaVersion = "1"

const schemaDDL = `
CREATE TABLE IF NOT EXISTS system_samples (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp INTEGER NOT NULL,
  cpu_percent REAL,
  cpu_count INTEGER,
  memory_total INTEGER,
  memory_available INTEGER,
  memory_percent REAL,
  disk_total INTEGER,
  disk_used INTEGER,
  disk_percent REAL,
  disk_read_bytes INTEGER,
  disk_write_bytes INTEGER,
  load_1min REAL,
  load_5min REAL,
  load_15min REAL
);

CREATE TABLE IF NOT EXISTS network_samples (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp INTEGER NOT NULL,
  bytes_sent INTEGER,
  bytes_recv INTEGER,
  packets_sent INTEGER,
  packets_recv INTEGER,
  errors_in INTEGER,
  errors_out INTEGER,
  drops_in INTEGER,
  drops_out INTEGER,
  connections_established INTEGER,
  connections_listen INTEGER,
  connections_time_wait INTEGER
);

CREATE TABLE IF NOT EXISTS log_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp INTEGER NOT NULL,
  source TEXT NOT NULL,
  level TEXT,
  message TEXT NOT NULL,
  ip_address TEXT,
  user TEXT,
  service TEXT,
  action TEXT,
  metadata TEXT
);

CREATE TABLE IF NOT EXISTS hourly_aggregates (
  hour_timestamp INTEGER PRIMARY KEY,
  avg_cpu_percent REAL,
  max_cpu_percent REAL,
  avg_memory_percent REAL,
  max_memory_percent REAL,
  avg_disk_percent REAL,
  total_bytes_sent INTEGER NOT NULL DEFAULT 0,
  total_bytes_recv INTEGER NOT NULL DEFAULT 0,
  total_packets_sent INTEGER NOT NULL DEFAULT 0,
  total_packets_recv INTEGER NOT NULL DEFAULT 0,
  log_events_count INTEGER NOT NULL DEFAULT 0,
  failed_login_count INTEGER NOT NULL DEFAULT 0,
  banned_count INTEGER NOT NULL DEFAULT 0,
  error_count INTEGER NOT NULL DEFAULT 0,
  warning_count INTEGER NOT NULL DEFAULT 0,
  computed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS daily_aggregates (
  date TEXT PRIMARY KEY,
  avg_cpu_percent REAL,
  max_cpu_percent REAL,
  avg_memory_percent REAL,
  max_memory_percent REAL,
  avg_disk_percent REAL,
  total_bytes_sent INTEGER NOT NULL DEFAULT 0,
  total_bytes_recv INTEGER NOT NULL DEFAULT 0,
  log_events_count INTEGER NOT NULL DEFAULT 0,
  failed_login_count INTEGER NOT NULL DEFAULT 0,
  banned_count INTEGER NOT NULL DEFAULT 0,
  error_count INTEGER NOT NULL DEFAULT 0,
  warning_count INTEGER NOT NULL DEFAULT 0,
  unique_banned_ips INTEGER NOT NULL DEFAULT 0,
  unique_failed_users INTEGER NOT NULL DEFAULT 0,
  computed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_traces (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  timestamp INTEGER NOT NULL,
  source TEXT NOT NULL,
  level TEXT,
  severity_score INTEGER NOT NULL DEFAULT 0 CHECK (severity_score BETWEEN 0 AND 100),
  message TEXT NOT NULL,
  action TEXT,
  service TEXT,
  user TEXT,
  ip_address TEXT,
  root_cause TEXT,
  trigger_event TEXT,
  causality_chain TEXT,
  related_services TEXT,
  traced_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS process_traces (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  trace_id INTEGER NOT NULL,
  timestamp INTEGER NOT NULL,
  pid INTEGER NOT NULL,
  name TEXT,
  cmdline TEXT,
  state TEXT,
  parent_pid INTEGER,
  memory_rss INTEGER NOT NULL DEFAULT 0,
  memory_vm INTEGER NOT NULL DEFAULT 0,
  cpu_utime INTEGER NOT NULL DEFAULT 0,
  cpu_stime INTEGER NOT NULL DEFAULT 0,
  threads INTEGER NOT NULL DEFAULT 0,
  read_bytes INTEGER NOT NULL DEFAULT 0,
  write_bytes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS network_traces (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  trace_id INTEGER NOT NULL,
  timestamp INTEGER NOT NULL,
  local_ip TEXT,
  local_port INTEGER,
  remote_ip TEXT,
  remote_port INTEGER,
  state TEXT,
  protocol TEXT NOT NULL DEFAULT 'tcp'
);

CREATE TABLE IF NOT EXISTS error_traces (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  trace_id INTEGER NOT NULL,
  timestamp INTEGER NOT NULL,
  error_type TEXT,
  error_category TEXT,
  severity INTEGER NOT NULL DEFAULT 0 CHECK (severity BETWEEN 0 AND 100),
  file_path TEXT,
  line_number INTEGER,
  error_code TEXT,
  has_stacktrace INTEGER NOT NULL DEFAULT 0,
  root_cause_hints TEXT,
  recovery_suggestions TEXT
);

CREATE TABLE IF NOT EXISTS ip_reputation (
  ip TEXT PRIMARY KEY,
  type TEXT NOT NULL DEFAULT 'public',
  is_blacklisted INTEGER NOT NULL DEFAULT 0,
  threat_score INTEGER NOT NULL DEFAULT 0,
  first_seen INTEGER NOT NULL,
  last_seen INTEGER NOT NULL,
  total_events INTEGER NOT NULL DEFAULT 0,
  failed_login_count INTEGER NOT NULL DEFAULT 0,
  successful_login_count INTEGER NOT NULL DEFAULT 0,
  banned_count INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_system_samples_ts ON system_samples (timestamp);
CREATE INDEX IF NOT EXISTS idx_network_samples_ts ON network_samples (timestamp);
CREATE INDEX IF NOT EXISTS idx_log_events_ts ON log_events (timestamp);
CREATE INDEX IF NOT EXISTS idx_log_events_source ON log_events (source, timestamp);
CREATE INDEX IF NOT EXISTS idx_log_events_level ON log_events (level, timestamp);
CREATE INDEX IF NOT EXISTS idx_log_events_ip ON log_events (ip_address);
CREATE INDEX IF NOT EXISTS idx_event_traces_ts ON event_traces (timestamp);
CREATE INDEX IF NOT EXISTS idx_event_traces_severity ON event_traces (severity_score, timestamp);
CREATE INDEX IF NOT EXISTS idx_process_traces_parent ON process_traces (trace_id);
CREATE INDEX IF NOT EXISTS idx_network_traces_parent ON network_traces (trace_id);
CREATE INDEX IF NOT EXISTS idx_error_traces_parent ON error_traces (trace_id);
CREATE INDEX IF NOT EXISTS idx_ip_reputation_score ON ip_reputation (threat_score);
`
