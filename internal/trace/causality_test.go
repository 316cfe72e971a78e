package trace

import (
	"encoding/json"
	"testing"

	"github.com/loggard/loggard/internal/store"
)

func TestTraceCausalityBan(t *testing.T) {
	t.Parallel()

	c := traceCausality(store.LogEvent{Source: "fail2ban", Action: "ban", Level: "WARNING"})
	if c == nil {
		t.Fatalf("ban event produced no chain")
	}
	if c.RootCause != "brute_force_attempt" {
		t.Fatalf("root cause = %q", c.RootCause)
	}
	if len(c.Chain) != 3 || c.Chain[2].Step != "ip_banned" {
		t.Fatalf("chain = %+v", c.Chain)
	}

	var steps []chainStep
	if err := json.Unmarshal([]byte(c.chainJSON()), &steps); err != nil {
		t.Fatalf("chain JSON: %v", err)
	}
	if steps[1].Service != "fail2ban" {
		t.Fatalf("steps = %+v", steps)
	}
}

func TestTraceCausalityFailedLogin(t *testing.T) {
	t.Parallel()

	c := traceCausality(store.LogEvent{Action: "failed_login", Service: "ssh"})
	if c == nil || c.RootCause != "invalid_credentials" {
		t.Fatalf("got %+v", c)
	}
}

func TestTraceCausalityMessagePatterns(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		event store.LogEvent
		root  string
	}{
		{"timeout", store.LogEvent{Level: "ERROR", Message: "connection timeout to upstream"}, "network_latency_or_service_unresponsive"},
		{"refused", store.LogEvent{Level: "ERROR", Message: "connection refused by 10.0.0.5"}, "service_not_listening_or_firewall"},
		{"oom", store.LogEvent{Level: "CRITICAL", Message: "killed process: out of memory"}, "memory_leak_or_insufficient_resources"},
		{"disk", store.LogEvent{Level: "ERROR", Message: "write failed: no space left on device"}, "disk_space_exhaustion"},
	}
	for _, tc := range cases {
		c := traceCausality(tc.event)
		if c == nil {
			t.Fatalf("%s: no chain", tc.name)
		}
		if c.RootCause != tc.root {
			t.Fatalf("%s: root cause = %q, want %q", tc.name, c.RootCause, tc.root)
		}
	}

	if c := traceCausality(store.LogEvent{Level: "INFO", Message: "service started"}); c != nil {
		t.Fatalf("benign event got a chain: %+v", c)
	}
}

func TestRelatedServices(t *testing.T) {
	t.Parallel()

	got := relatedServices(store.LogEvent{
		Source:  "fail2ban",
		Message: "fail2ban.actions: NOTICE [sshd] Ban 203.0.113.7",
	})
	want := map[string]bool{"ssh": true, "fail2ban": true, "nginx": true, "apache": true, "auth": true}
	if len(got) != len(want) {
		t.Fatalf("services = %v", got)
	}
	for _, svc := range got {
		if !want[svc] {
			t.Fatalf("unexpected service %q in %v", svc, got)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("services not sorted: %v", got)
		}
	}

	if got := relatedServices(store.LogEvent{Source: "custom", Message: "nothing notable"}); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
