package analysis

import (
	"context"
	"testing"
	"time"
)

func TestAnalyzeHealthQuietHost(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	engine := NewEngine(NewDetector(st, Thresholds{}))

	report := engine.AnalyzeHealth(context.Background(), 24)
	if report.HealthScore != 100 || report.Status != "healthy" {
		t.Fatalf("quiet host report = %+v", report)
	}
	if report.TotalIssues != 0 || len(report.TopIssues) != 0 {
		t.Fatalf("issues on a quiet host: %+v", report)
	}
	if len(report.Recommendations) != 1 || report.Recommendations[0] != "no action needed" {
		t.Fatalf("recommendations = %v", report.Recommendations)
	}
}

func TestAnalyzeHealthUnderAttack(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	engine := NewEngine(NewDetector(st, Thresholds{}))
	now := time.Now().Unix()

	// Three distinct attackers, each a tight burst.
	insertFailedLogins(t, st, "203.0.113.7", 10, now-600, 10)
	insertFailedLogins(t, st, "203.0.113.8", 10, now-600, 10)
	insertFailedLogins(t, st, "203.0.113.9", 10, now-600, 10)

	report := engine.AnalyzeHealth(context.Background(), 24)
	if report.SecurityScore >= 70 {
		t.Fatalf("security score = %d under active brute force", report.SecurityScore)
	}
	if report.PerformanceScore != 100 || report.ErrorScore != 100 {
		t.Fatalf("unrelated components degraded: %+v", report)
	}
	if report.Status == "healthy" {
		t.Fatalf("status = %q with %d issues", report.Status, report.TotalIssues)
	}
	if report.CriticalIssues != 3 {
		t.Fatalf("critical issues = %d, want 3", report.CriticalIssues)
	}
	if len(report.TopIssues) != 3 {
		t.Fatalf("top issues = %d", len(report.TopIssues))
	}

	found := false
	for _, rec := range report.Recommendations {
		if rec == "review failed logins and consider blocking high threat IPs" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no security recommendation in %v", report.Recommendations)
	}
}

func TestComponentScore(t *testing.T) {
	t.Parallel()

	if got := componentScore(nil); got != 100 {
		t.Fatalf("empty score = %d", got)
	}
	if got := componentScore([]Issue{{Severity: 100}}); got != 80 {
		t.Fatalf("one critical = %d, want 80", got)
	}
	if got := componentScore([]Issue{{Severity: 100}, {Severity: 100}, {Severity: 100}, {Severity: 100}, {Severity: 100}}); got != 0 {
		t.Fatalf("five critical = %d, want 0", got)
	}
}
