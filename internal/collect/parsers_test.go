package collect

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseFail2banBan(t *testing.T) {
	t.Parallel()

	line := "2026-03-10 12:00:01,123 fail2ban.actions [1234]: NOTICE [sshd] Ban 203.0.113.7"
	event, ok := ParseLine("fail2ban", line)
	if !ok {
		t.Fatalf("ban line not parsed")
	}
	if event.Action != "ban" || event.Level != "WARNING" {
		t.Fatalf("action=%q level=%q, want ban/WARNING", event.Action, event.Level)
	}
	if event.IPAddress != "203.0.113.7" || event.Service != "sshd" {
		t.Fatalf("ip=%q service=%q", event.IPAddress, event.Service)
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(event.Metadata), &meta); err != nil {
		t.Fatalf("metadata not JSON: %v", err)
	}
	if meta["jail"] != "sshd" {
		t.Fatalf("jail = %v, want sshd", meta["jail"])
	}
}

func TestParseFail2banUnban(t *testing.T) {
	t.Parallel()

	event, ok := ParseLine("fail2ban", "NOTICE [sshd] Unban 203.0.113.7")
	if !ok {
		t.Fatalf("unban line not parsed")
	}
	if event.Action != "unban" || event.Level != "INFO" {
		t.Fatalf("action=%q level=%q, want unban/INFO", event.Action, event.Level)
	}
}

func TestParseAuthFailedPassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line string
		user string
	}{
		{"Mar 10 12:00:01 web1 sshd[999]: Failed password for root from 203.0.113.7 port 22 ssh2", "root"},
		{"Mar 10 12:00:02 web1 sshd[999]: Failed password for invalid user admin from 203.0.113.7 port 22 ssh2", "admin"},
	}
	for _, tc := range cases {
		event, ok := ParseLine("auth", tc.line)
		if !ok {
			t.Fatalf("line not parsed: %s", tc.line)
		}
		if event.Action != "failed_login" || event.User != tc.user {
			t.Fatalf("action=%q user=%q, want failed_login/%s", event.Action, event.User, tc.user)
		}
		if event.IPAddress != "203.0.113.7" || event.Service != "ssh" {
			t.Fatalf("ip=%q service=%q", event.IPAddress, event.Service)
		}
	}
}

func TestParseAuthAccepted(t *testing.T) {
	t.Parallel()

	event, ok := ParseLine("auth", "Mar 10 12:01:00 web1 sshd[999]: Accepted publickey for deploy from 198.51.100.4 port 41000 ssh2")
	if !ok {
		t.Fatalf("accepted line not parsed")
	}
	if event.Action != "successful_login" || event.Level != "INFO" {
		t.Fatalf("action=%q level=%q", event.Action, event.Level)
	}
	if event.User != "deploy" || event.IPAddress != "198.51.100.4" {
		t.Fatalf("user=%q ip=%q", event.User, event.IPAddress)
	}
}

func TestParseAuthUnmatchedDropped(t *testing.T) {
	t.Parallel()

	if _, ok := ParseLine("auth", "Mar 10 12:02:00 web1 CRON[100]: session opened for user root"); ok {
		t.Fatalf("unmatched auth line should be dropped")
	}
}

func TestParseSyslog(t *testing.T) {
	t.Parallel()

	event, ok := ParseLine("syslog", "Mar 10 12:00:01 web1 systemd[1]: Failed to start nginx.service")
	if !ok {
		t.Fatalf("syslog line not parsed")
	}
	if event.Level != "ERROR" {
		t.Fatalf("level = %q, want ERROR", event.Level)
	}
	if event.Service != "systemd" {
		t.Fatalf("service = %q, want systemd", event.Service)
	}

	// Plain informational chatter is dropped.
	if _, ok := ParseLine("syslog", "plain chatter with no structure"); ok {
		t.Fatalf("unstructured INFO line should be dropped")
	}
}

func TestParseNginxStatusLevels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status string
		level  string
	}{
		{"200", "INFO"},
		{"404", "WARNING"},
		{"502", "ERROR"},
	}
	for _, tc := range cases {
		line := `203.0.113.7 - - [10/Mar/2026:12:00:00 +0000] "GET /login HTTP/1.1" ` + tc.status + ` 1234 "-" "curl"`
		event, ok := ParseLine("nginx", line)
		if !ok {
			t.Fatalf("nginx line with status %s not parsed", tc.status)
		}
		if event.Level != tc.level {
			t.Fatalf("status %s level = %q, want %q", tc.status, event.Level, tc.level)
		}
		if event.Action != "http_request" || event.IPAddress != "203.0.113.7" {
			t.Fatalf("action=%q ip=%q", event.Action, event.IPAddress)
		}
	}
}

func TestLineTimestamps(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)

	got := fail2banTime("2026-03-10 12:00:01,123 fail2ban.actions: NOTICE [sshd] Ban 203.0.113.7", now)
	want := time.Date(2026, 3, 10, 12, 0, 1, 0, time.Local).Unix()
	if got != want {
		t.Fatalf("fail2ban stamp = %d, want %d", got, want)
	}

	got = syslogTime("Mar 10 12:00:05 web1 sshd[999]: Failed password", now)
	want = time.Date(2026, 3, 10, 12, 0, 5, 0, time.Local).Unix()
	if got != want {
		t.Fatalf("syslog stamp = %d, want %d", got, want)
	}

	got = nginxTime("10/Mar/2026:12:00:00 +0000", now)
	want = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("nginx stamp = %d, want %d", got, want)
	}
}

func TestSyslogTimeYearRollover(t *testing.T) {
	t.Parallel()

	// Reading December's backlog just after New Year: the yearless stamp
	// belongs to the previous year, not eleven months in the future.
	now := time.Date(2026, 1, 2, 0, 10, 0, 0, time.Local)
	got := syslogTime("Dec 31 23:59:59 web1 sshd[999]: Failed password", now)
	want := time.Date(2025, 12, 31, 23, 59, 59, 0, time.Local).Unix()
	if got != want {
		t.Fatalf("rollover stamp = %d, want %d", got, want)
	}
}

func TestTimestampFallsBackToNow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)
	if got := syslogTime("no leading stamp here", now); got != now.Unix() {
		t.Fatalf("syslog fallback = %d, want %d", got, now.Unix())
	}
	if got := fail2banTime("NOTICE [sshd] Unban 203.0.113.7", now); got != now.Unix() {
		t.Fatalf("fail2ban fallback = %d, want %d", got, now.Unix())
	}
	if got := nginxTime("not-a-stamp", now); got != now.Unix() {
		t.Fatalf("nginx fallback = %d, want %d", got, now.Unix())
	}
}

func TestParsedEventCarriesLineTimestamp(t *testing.T) {
	t.Parallel()

	event, ok := ParseLine("fail2ban", "2026-03-10 12:00:01,123 fail2ban.actions [1]: NOTICE [sshd] Ban 203.0.113.7")
	if !ok {
		t.Fatalf("ban line not parsed")
	}
	want := time.Date(2026, 3, 10, 12, 0, 1, 0, time.Local).Unix()
	if event.Timestamp != want {
		t.Fatalf("event timestamp = %d, want %d", event.Timestamp, want)
	}
}

func TestParseGenericLevels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line  string
		level string
	}{
		{"FATAL: cannot open database", "CRITICAL"},
		{"error reading socket", "ERROR"},
		{"warning: disk usage at 85%", "WARNING"},
		{"service started", "INFO"},
	}
	for _, tc := range cases {
		event, ok := ParseLine("myapp", tc.line)
		if !ok {
			t.Fatalf("generic line not parsed: %s", tc.line)
		}
		if event.Level != tc.level {
			t.Fatalf("line %q level = %q, want %q", tc.line, event.Level, tc.level)
		}
		if event.Source != "myapp" {
			t.Fatalf("source = %q, want myapp", event.Source)
		}
	}

	if _, ok := ParseLine("myapp", "   "); ok {
		t.Fatalf("blank line should be dropped")
	}
}
