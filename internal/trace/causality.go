package trace

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/loggard/loggard/internal/store"
)

type causality struct {
	Trigger   string
	RootCause string
	Chain     []chainStep
}

type chainStep struct {
	Step    string `json:"step"`
	Service string `json:"service"`
}

// traceCausality reconstructs the likely chain of steps behind an event.
// It only covers the well-known failure shapes a single host exhibits;
// anything else returns nil and the trace carries no chain.
func traceCausality(event store.LogEvent) *causality {
	lower := strings.ToLower(event.Message)
	svc := event.Service
	if svc == "" {
		svc = "ssh"
	}

	switch {
	case event.Action == "ban" && event.Source == "fail2ban":
		return &causality{
			Trigger:   "repeated_failed_logins",
			RootCause: "brute_force_attempt",
			Chain: []chainStep{
				{Step: "initial_failed_authentication", Service: "ssh"},
				{Step: "repeated_failures_detected", Service: "fail2ban"},
				{Step: "ip_banned", Service: "fail2ban"},
			},
		}
	case event.Action == "failed_login":
		return &causality{
			Trigger:   "authentication_failure",
			RootCause: "invalid_credentials",
			Chain: []chainStep{
				{Step: "connection_established", Service: svc},
				{Step: "authentication_attempted", Service: svc},
				{Step: "authentication_failed", Service: svc},
			},
		}
	case event.Level == "ERROR" && strings.Contains(lower, "connection"):
		if strings.Contains(lower, "timeout") {
			return &causality{
				Trigger:   "connection_timeout",
				RootCause: "network_latency_or_service_unresponsive",
				Chain: []chainStep{
					{Step: "connection_attempt", Service: event.Service},
					{Step: "waiting_for_response", Service: event.Service},
					{Step: "timeout_reached", Service: event.Service},
				},
			}
		}
		if strings.Contains(lower, "refused") {
			return &causality{
				Trigger:   "connection_refused",
				RootCause: "service_not_listening_or_firewall",
				Chain: []chainStep{
					{Step: "connection_attempt", Service: event.Service},
					{Step: "connection_refused", Service: event.Service},
				},
			}
		}
	case event.Level == "ERROR" || event.Level == "CRITICAL":
		if containsAny(lower, "memory", "oom", "out of memory") {
			return &causality{
				Trigger:   "memory_exhaustion",
				RootCause: "memory_leak_or_insufficient_resources",
				Chain: []chainStep{
					{Step: "memory_allocation_request", Service: event.Service},
					{Step: "insufficient_memory", Service: "system"},
					{Step: "oom_condition", Service: "system"},
				},
			}
		}
		if containsAny(lower, "disk", "no space") {
			return &causality{
				Trigger:   "disk_space_exhausted",
				RootCause: "disk_space_exhaustion",
				Chain: []chainStep{
					{Step: "write_operation_attempted", Service: event.Service},
					{Step: "insufficient_disk_space", Service: "system"},
					{Step: "operation_failed", Service: event.Service},
				},
			}
		}
	}
	return nil
}

func (c *causality) chainJSON() string {
	b, err := json.Marshal(c.Chain)
	if err != nil {
		return ""
	}
	return string(b)
}

func joinJSON(items []string) string {
	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(b)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var servicePatterns = map[string]*regexp.Regexp{
	"nginx":      regexp.MustCompile(`(?i)nginx(?:\[\d+\])?`),
	"apache":     regexp.MustCompile(`(?i)apache2?(?:\[\d+\])?`),
	"postgresql": regexp.MustCompile(`(?i)postgres(?:ql)?(?:\[\d+\])?`),
	"mysql":      regexp.MustCompile(`(?i)mysql(?:d)?(?:\[\d+\])?`),
	"redis":      regexp.MustCompile(`(?i)redis(?:-server)?(?:\[\d+\])?`),
	"ssh":        regexp.MustCompile(`(?i)sshd?(?:\[\d+\])?`),
	"fail2ban":   regexp.MustCompile(`(?i)fail2ban(?:-server)?(?:\[\d+\])?`),
	"systemd":    regexp.MustCompile(`(?i)systemd(?:\[\d+\])?`),
	"docker":     regexp.MustCompile(`(?i)docker(?:d)?(?:\[\d+\])?`),
}

var serviceNeighbors = map[string][]string{
	"fail2ban":   {"ssh", "nginx", "apache", "auth"},
	"nginx":      {"php-fpm"},
	"auth":       {"ssh", "fail2ban", "pam"},
	"postgresql": {"pgbouncer"},
	"docker":     {"nginx", "redis", "postgresql"},
}

// relatedServices names services plausibly involved in an event, from the
// source's known neighbors plus anything the message text mentions.
func relatedServices(event store.LogEvent) []string {
	seen := make(map[string]bool)
	for _, svc := range serviceNeighbors[event.Source] {
		seen[svc] = true
	}
	for name, pattern := range servicePatterns {
		if pattern.MatchString(event.Message) {
			seen[name] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}
	services := make([]string, 0, len(seen))
	for svc := range seen {
		services = append(services, svc)
	}
	sort.Strings(services)
	return services
}
