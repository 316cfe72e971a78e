package collect

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/loggard/loggard/internal/store"
)

var (
	fail2banBanRe   = regexp.MustCompile(`\[([\w-]+)\]\s+(Ban|Unban)\s+([\d.]+)`)
	fail2banFoundRe = regexp.MustCompile(`\[([\w-]+)\]\s+Found\s+([\d.]+)`)
	authFailedRe    = regexp.MustCompile(`Failed password for (?:invalid user )?(\w+) from ([\d.]+)`)
	authAcceptedRe  = regexp.MustCompile(`Accepted (\w+) for (\w+) from ([\d.]+)`)
	syslogRe        = regexp.MustCompile(`(\w+\s+\d+\s+[\d:]+)\s+(\S+)\s+(\S+?)(?:\[\d+\])?\s*:\s*(.*)`)
	nginxAccessRe   = regexp.MustCompile(`([\d.]+)\s+-\s+-\s+\[([^\]]+)\]\s+"([^"]*)"\s+(\d+)\s+(\d+)`)
	syslogTimeRe    = regexp.MustCompile(`^([A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})`)
)

// syslogTime parses the leading "Mar 10 12:00:07" stamp of a syslog or auth
// line. The format carries no year, so the current one is assumed; a stamp
// landing in the future is last year's log read across New Year. Lines
// without a parsable stamp fall back to now.
func syslogTime(line string, now time.Time) int64 {
	m := syslogTimeRe.FindStringSubmatch(line)
	if m == nil {
		return now.Unix()
	}
	ts, err := time.ParseInLocation("Jan _2 15:04:05", m[1], time.Local)
	if err != nil {
		return now.Unix()
	}
	ts = ts.AddDate(now.Year(), 0, 0)
	if ts.After(now.Add(24 * time.Hour)) {
		ts = ts.AddDate(-1, 0, 0)
	}
	return ts.Unix()
}

// fail2banTime parses the "2026-03-10 12:00:07" prefix of a fail2ban line.
func fail2banTime(line string, now time.Time) int64 {
	if len(line) >= 19 {
		if ts, err := time.ParseInLocation("2006-01-02 15:04:05", line[:19], time.Local); err == nil {
			return ts.Unix()
		}
	}
	return now.Unix()
}

// nginxTime parses the bracketed "10/Mar/2026:12:00:07 +0000" stamp of an
// access log line.
func nginxTime(stamp string, now time.Time) int64 {
	ts, err := time.Parse("02/Jan/2006:15:04:05 -0700", stamp)
	if err != nil {
		return now.Unix()
	}
	return ts.Unix()
}

// ParseLine turns one raw log line into a structured event, dispatching on
// the source name. Lines that match no pattern return ok=false and are
// dropped, not errors.
func ParseLine(source, line string) (store.LogEvent, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return store.LogEvent{}, false
	}
	switch source {
	case "fail2ban":
		return parseFail2ban(line)
	case "auth":
		return parseAuth(line)
	case "syslog":
		return parseSyslog(line)
	case "nginx":
		return parseNginx(line)
	default:
		return parseGeneric(source, line)
	}
}

func parseFail2ban(line string) (store.LogEvent, bool) {
	ts := fail2banTime(line, time.Now())
	if m := fail2banBanRe.FindStringSubmatch(line); m != nil {
		action := strings.ToLower(m[2])
		level := "INFO"
		if action == "ban" {
			level = "WARNING"
		}
		return store.LogEvent{
			Timestamp: ts,
			Source:    "fail2ban",
			Level:     level,
			Message:   line,
			IPAddress: m[3],
			Service:   m[1],
			Action:    action,
			Metadata:  jsonMeta(map[string]any{"jail": m[1]}),
		}, true
	}
	if m := fail2banFoundRe.FindStringSubmatch(line); m != nil {
		return store.LogEvent{
			Timestamp: ts,
			Source:    "fail2ban",
			Level:     "INFO",
			Message:   line,
			IPAddress: m[2],
			Service:   m[1],
			Action:    "found",
			Metadata:  jsonMeta(map[string]any{"jail": m[1]}),
		}, true
	}
	return store.LogEvent{}, false
}

func parseAuth(line string) (store.LogEvent, bool) {
	ts := syslogTime(line, time.Now())
	if m := authFailedRe.FindStringSubmatch(line); m != nil {
		return store.LogEvent{
			Timestamp: ts,
			Source:    "auth",
			Level:     "WARNING",
			Message:   line,
			IPAddress: m[2],
			User:      m[1],
			Service:   "ssh",
			Action:    "failed_login",
		}, true
	}
	if m := authAcceptedRe.FindStringSubmatch(line); m != nil {
		return store.LogEvent{
			Timestamp: ts,
			Source:    "auth",
			Level:     "INFO",
			Message:   line,
			IPAddress: m[3],
			User:      m[2],
			Service:   "ssh",
			Action:    "successful_login",
			Metadata:  jsonMeta(map[string]any{"method": m[1]}),
		}, true
	}
	return store.LogEvent{}, false
}

func parseSyslog(line string) (store.LogEvent, bool) {
	lower := strings.ToLower(line)
	level := "INFO"
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "fail"):
		level = "ERROR"
	case strings.Contains(lower, "warning") || strings.Contains(lower, "warn"):
		level = "WARNING"
	}

	if m := syslogRe.FindStringSubmatch(line); m != nil {
		return store.LogEvent{
			Timestamp: syslogTime(line, time.Now()),
			Source:    "syslog",
			Level:     level,
			Message:   m[4],
			Service:   m[3],
			Metadata:  jsonMeta(map[string]any{"host": m[2], "full_line": line}),
		}, true
	}
	// Unstructured but noisy lines still count when they look like trouble.
	if level != "INFO" {
		return store.LogEvent{
			Timestamp: syslogTime(line, time.Now()),
			Source:    "syslog",
			Level:     level,
			Message:   line,
		}, true
	}
	return store.LogEvent{}, false
}

func parseNginx(line string) (store.LogEvent, bool) {
	m := nginxAccessRe.FindStringSubmatch(line)
	if m == nil {
		return store.LogEvent{}, false
	}
	status, _ := strconv.Atoi(m[4])
	size, _ := strconv.Atoi(m[5])
	level := "INFO"
	switch {
	case status >= 500:
		level = "ERROR"
	case status >= 400:
		level = "WARNING"
	}
	return store.LogEvent{
		Timestamp: nginxTime(m[2], time.Now()),
		Source:    "nginx",
		Level:     level,
		Message:   line,
		IPAddress: m[1],
		Service:   "nginx",
		Action:    "http_request",
		Metadata:  jsonMeta(map[string]any{"request": m[3], "status": status, "size": size}),
	}, true
}

func parseGeneric(source, line string) (store.LogEvent, bool) {
	lower := strings.ToLower(line)
	level := "INFO"
	switch {
	case strings.Contains(lower, "critical") || strings.Contains(lower, "fatal"):
		level = "CRITICAL"
	case strings.Contains(lower, "error") || strings.Contains(lower, "err"):
		level = "ERROR"
	case strings.Contains(lower, "warning") || strings.Contains(lower, "warn"):
		level = "WARNING"
	}
	return store.LogEvent{
		Timestamp: time.Now().Unix(),
		Source:    source,
		Level:     level,
		Message:   line,
	}, true
}

func jsonMeta(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
