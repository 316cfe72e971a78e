package store

// SystemSample is one collection tick of host-level resource state.
// Append-only; rows are never mutated after insert.
type SystemSample struct {
	Timestamp      int64
	CPUPercent     float64
	CPUCount       int
	MemoryTotal    int64
	MemoryAvail    int64
	MemoryPercent  float64
	DiskTotal      int64
	DiskUsed       int64
	DiskPercent    float64
	DiskReadBytes  int64
	DiskWriteBytes int64
	Load1Min       float64
	Load5Min       float64
	Load15Min      float64
}

// NetworkSample is one collection tick of interface counters and connection
// state counts. Byte and packet counters are monotonic totals, not rates.
type NetworkSample struct {
	Timestamp       int64
	BytesSent       int64
	BytesRecv       int64
	PacketsSent     int64
	PacketsRecv     int64
	ErrorsIn        int64
	ErrorsOut       int64
	DropsIn         int64
	DropsOut        int64
	ConnEstablished int
	ConnListen      int
	ConnTimeWait    int
}

// LogEvent is a structured event extracted from a log source. Metadata is an
// opaque JSON object; key order is irrelevant.
type LogEvent struct {
	ID        int64
	Timestamp int64
	Source    string
	Level     string
	Message   string
	IPAddress string
	User      string
	Service   string
	Action    string
	Metadata  string
}

// HourlyAggregate is the rollup row for one hour bucket, keyed by the
// hour-aligned start timestamp.
type HourlyAggregate struct {
	HourTimestamp    int64
	AvgCPUPercent    float64
	MaxCPUPercent    float64
	AvgMemoryPercent float64
	MaxMemoryPercent float64
	AvgDiskPercent   float64
	TotalBytesSent   int64
	TotalBytesRecv   int64
	TotalPacketsSent int64
	TotalPacketsRecv int64
	LogEventsCount   int64
	FailedLoginCount int64
	BannedCount      int64
	ErrorCount       int64
	WarningCount     int64
	ComputedAt       int64
}

// DailyAggregate is the rollup row for one calendar day, keyed by its
// YYYY-MM-DD date string.
type DailyAggregate struct {
	Date              string
	AvgCPUPercent     float64
	MaxCPUPercent     float64
	AvgMemoryPercent  float64
	MaxMemoryPercent  float64
	AvgDiskPercent    float64
	TotalBytesSent    int64
	TotalBytesRecv    int64
	LogEventsCount    int64
	FailedLoginCount  int64
	BannedCount       int64
	ErrorCount        int64
	WarningCount      int64
	UniqueBannedIPs   int64
	UniqueFailedUsers int64
	ComputedAt        int64
}

// EventTrace is the root record of an enriched significant event.
type EventTrace struct {
	ID              int64
	Timestamp       int64
	Source          string
	Level           string
	SeverityScore   int
	Message         string
	Action          string
	Service         string
	User            string
	IPAddress       string
	RootCause       string
	TriggerEvent    string
	CausalityChain  string
	RelatedServices string
	TracedAt        int64
}

// ProcessTrace is a child record snapshotting one process at trace time.
type ProcessTrace struct {
	Timestamp  int64
	PID        int
	Name       string
	Cmdline    string
	State      string
	ParentPID  int
	MemoryRSS  int64
	MemoryVM   int64
	CPUUTime   int64
	CPUSTime   int64
	Threads    int
	ReadBytes  int64
	WriteBytes int64
}

// NetworkTrace is a child record for one connection involving the event's IP.
type NetworkTrace struct {
	Timestamp  int64
	LocalIP    string
	LocalPort  int
	RemoteIP   string
	RemotePort int
	State      string
	Protocol   string
}

// ErrorTrace is a child record classifying an error-level event.
type ErrorTrace struct {
	Timestamp           int64
	ErrorType           string
	ErrorCategory       string
	Severity            int
	FilePath            string
	LineNumber          int
	ErrorCode           string
	HasStacktrace       bool
	RootCauseHints      string
	RecoverySuggestions string
}

// ReputationDelta is the per-event reputation update applied inside the
// RecordTrace transaction. Exactly one counter field should be set.
type ReputationDelta struct {
	IP          string
	AddressType string
	Action      string
}

// EnrichedEvent ties one root trace to its child records and the reputation
// update for one logical event. Children are only ever written through
// RecordTrace, never standalone.
type EnrichedEvent struct {
	Trace      EventTrace
	Processes  []ProcessTrace
	Network    []NetworkTrace
	Error      *ErrorTrace
	Reputation *ReputationDelta
}

// IPReputation is the long-lived per-IP profile. It is mutated incrementally
// and exempt from the retention sweep.
type IPReputation struct {
	IP                   string
	Type                 string
	IsBlacklisted        bool
	ThreatScore          int
	FirstSeen            int64
	LastSeen             int64
	TotalEvents          int64
	FailedLoginCount     int64
	SuccessfulLoginCount int64
	BannedCount          int64
	UpdatedAt            int64
}
