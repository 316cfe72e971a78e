package trace

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/loggard/loggard/internal/store"
)

type errorPattern struct {
	name     string
	category string
	re       *regexp.Regexp
}

// Ordered: the first match wins, so the more specific resource and
// database shapes come before the generic network ones.
var errorPatterns = []errorPattern{
	{"db_deadlock", "database", regexp.MustCompile(`(?i)deadlock`)},
	{"db_connection", "database", regexp.MustCompile(`(?i)(?:database|\bdb\b|sql|postgres|mysql).*(?:connection|connect).*(?:refused|failed|timeout)|(?:connection|connect).*(?:database|\bdb\b|sql|postgres|mysql).*(?:refused|failed|timeout)`)},
	{"db_query", "database", regexp.MustCompile(`(?i)(?:SQL|query).+(?:error|failed|syntax)`)},
	{"out_of_memory", "resource", regexp.MustCompile(`(?i)(?:out of memory|OOM|MemoryError)`)},
	{"memory_leak", "resource", regexp.MustCompile(`(?i)memory.+(?:leak|exhausted)`)},
	{"disk_full", "resource", regexp.MustCompile(`(?i)(?:no space|disk full|ENOSPC)`)},
	{"disk_io", "resource", regexp.MustCompile(`(?i)(?:I/O error|disk.+error)`)},
	{"too_many_files", "resource", regexp.MustCompile(`(?i)(?:too many.+files|EMFILE)`)},
	{"connection_timeout", "network", regexp.MustCompile(`(?i)connection.+timeout`)},
	{"connection_refused", "network", regexp.MustCompile(`(?i)connection.+refused`)},
	{"network_unreachable", "network", regexp.MustCompile(`(?i)network.+unreachable`)},
	{"permission_denied", "security", regexp.MustCompile(`(?i)(?:permission denied|EACCES)`)},
	{"file_not_found", "filesystem", regexp.MustCompile(`(?i)(?:file not found|ENOENT|No such file)`)},
	{"segmentation_fault", "system", regexp.MustCompile(`(?i)segmentation fault|SIGSEGV`)},
	{"assertion_failed", "application", regexp.MustCompile(`(?i)assertion.+failed`)},
}

var (
	stacktraceRe = regexp.MustCompile(`(?i)(?:stack trace|traceback|goroutine \d+)`)
	fileLineRe   = regexp.MustCompile(`([/\w.-]+\.(?:go|py|c|rs|js)):(\d+)`)
	errorCodeRe  = regexp.MustCompile(`(?i)(?:error|errno|code)[:\s#]+(\d+)`)
)

var rootCauseHints = map[string][]string{
	"db_connection":      {"database service down or unreachable", "check connectivity and credentials"},
	"db_deadlock":        {"transactions competing for the same rows", "review transaction ordering"},
	"out_of_memory":      {"process memory growth or undersized host", "check for leaks, consider more memory"},
	"disk_full":          {"filesystem out of space", "check large logs and rotation policy"},
	"too_many_files":     {"open file limit exceeded", "check ulimit and descriptor leaks"},
	"connection_timeout": {"remote service unresponsive", "check network latency and service health"},
	"connection_refused": {"nothing listening on target port", "check service status and firewall rules"},
	"permission_denied":  {"process lacks access to the resource", "check ownership and unit sandboxing"},
}

var recoverySuggestions = map[string][]string{
	"db_connection":      {"restart the database service", "verify the connection string"},
	"out_of_memory":      {"restart the leaking process", "add swap or raise memory limits"},
	"disk_full":          {"delete or compress old logs", "expand the volume"},
	"connection_refused": {"start the target service", "open the port in the firewall"},
	"permission_denied":  {"fix file ownership", "grant the needed capability"},
}

// classifyError builds the error child record for an ERROR or CRITICAL
// event. Events that match no known pattern still get a record with the
// severity score; category stays "unknown".
func classifyError(event store.LogEvent) store.ErrorTrace {
	et := store.ErrorTrace{
		Timestamp:     time.Now().Unix(),
		ErrorCategory: "unknown",
		Severity:      errorSeverity(event.Level, event.Message),
	}
	for _, p := range errorPatterns {
		if p.re.MatchString(event.Message) {
			et.ErrorType = p.name
			et.ErrorCategory = p.category
			break
		}
	}
	if stacktraceRe.MatchString(event.Message) {
		et.HasStacktrace = true
	}
	if m := fileLineRe.FindStringSubmatch(event.Message); m != nil {
		et.FilePath = m[1]
		et.LineNumber, _ = strconv.Atoi(m[2])
	}
	if m := errorCodeRe.FindStringSubmatch(event.Message); m != nil {
		et.ErrorCode = m[1]
	}
	et.RootCauseHints = strings.Join(rootCauseHints[et.ErrorType], "; ")
	et.RecoverySuggestions = strings.Join(recoverySuggestions[et.ErrorType], "; ")
	return et
}
