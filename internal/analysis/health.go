package analysis

import (
	"context"
	"time"
)

// HealthReport is the rolled-up assessment over one time window. Component
// scores run 100 (perfect) down to 0; the overall score is their weighted
// average with security weighted heaviest.
type HealthReport struct {
	Timestamp        int64
	TimeWindowHours  int
	HealthScore      int
	Status           string
	SecurityScore    int
	PerformanceScore int
	ErrorScore       int
	TotalIssues      int
	CriticalIssues   int
	HighIssues       int
	MediumIssues     int
	LowIssues        int
	TopIssues        []Issue
	Recommendations  []string
}

type Engine struct {
	detector *Detector
}

func NewEngine(d *Detector) *Engine {
	return &Engine{detector: d}
}

// AnalyzeHealth runs every detector over the window and folds the findings
// into one report. Detector failures degrade the report rather than abort
// it; a half-empty picture still beats none during an incident.
func (e *Engine) AnalyzeHealth(ctx context.Context, hours int) HealthReport {
	var security, performance, errIssues []Issue

	if found, err := e.detector.FindBruteForce(ctx, hours); err == nil {
		security = append(security, found...)
	}
	if found, err := e.detector.FindSuspiciousIPs(ctx); err == nil {
		security = append(security, found...)
	}
	if found, err := e.detector.FindResourcePressure(ctx, hours); err == nil {
		performance = append(performance, found...)
	}
	if found, err := e.detector.FindErrorSpikes(ctx, hours); err == nil {
		errIssues = append(errIssues, found...)
	}

	all := make([]Issue, 0, len(security)+len(performance)+len(errIssues))
	all = append(all, security...)
	all = append(all, performance...)
	all = append(all, errIssues...)
	sortBySeverity(all)

	report := HealthReport{
		Timestamp:        time.Now().Unix(),
		TimeWindowHours:  hours,
		SecurityScore:    componentScore(security),
		PerformanceScore: componentScore(performance),
		ErrorScore:       componentScore(errIssues),
		TotalIssues:      len(all),
	}
	for _, issue := range all {
		switch {
		case issue.Severity >= 81:
			report.CriticalIssues++
		case issue.Severity >= 61:
			report.HighIssues++
		case issue.Severity >= 31:
			report.MediumIssues++
		default:
			report.LowIssues++
		}
	}

	report.HealthScore = int(float64(report.SecurityScore)*0.4 +
		float64(report.PerformanceScore)*0.3 +
		float64(report.ErrorScore)*0.3)
	switch {
	case report.HealthScore >= 80:
		report.Status = "healthy"
	case report.HealthScore >= 50:
		report.Status = "degraded"
	default:
		report.Status = "critical"
	}

	if len(all) > 5 {
		report.TopIssues = all[:5]
	} else {
		report.TopIssues = all
	}
	report.Recommendations = recommendations(report)
	return report
}

// componentScore folds issue severities into a 0..100 health number. Each
// fully critical issue costs twenty points.
func componentScore(issues []Issue) int {
	if len(issues) == 0 {
		return 100
	}
	total := 0
	for _, issue := range issues {
		total += issue.Severity
	}
	score := 100 - total/5
	if score < 0 {
		score = 0
	}
	return score
}

func recommendations(r HealthReport) []string {
	var recs []string
	if r.CriticalIssues > 0 {
		recs = append(recs, "address critical issues immediately")
	}
	if r.SecurityScore < 70 {
		recs = append(recs, "review failed logins and consider blocking high threat IPs")
	}
	if r.PerformanceScore < 70 {
		recs = append(recs, "investigate sustained resource pressure")
	}
	if r.ErrorScore < 70 {
		recs = append(recs, "inspect error spikes in recent hourly rollups")
	}
	if len(recs) == 0 {
		recs = append(recs, "no action needed")
	}
	return recs
}
