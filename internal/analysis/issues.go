// Package analysis turns stored telemetry into findings: security and
// resource issues, a weighted health score, and period summaries for
// reports. Everything reads through the storage engine; nothing here
// writes.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/loggard/loggard/internal/store"
)

// Issue is one detected problem, scored 0..100.
type Issue struct {
	Severity    int
	Category    string
	Title       string
	Description string
	FirstSeen   int64
	LastSeen    int64
	Count       int64
}

// Thresholds tune the detectors. Zero values fall back to defaults.
type Thresholds struct {
	FailedLoginCount int
	CPUPercent       float64
	MemoryPercent    float64
	DiskPercent      float64
	ErrorsPerHour    int64
	ThreatScore      int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		FailedLoginCount: 5,
		CPUPercent:       90,
		MemoryPercent:    90,
		DiskPercent:      85,
		ErrorsPerHour:    50,
		ThreatScore:      70,
	}
}

type Detector struct {
	store      *store.Store
	thresholds Thresholds
}

func NewDetector(st *store.Store, t Thresholds) *Detector {
	d := DefaultThresholds()
	if t.FailedLoginCount > 0 {
		d.FailedLoginCount = t.FailedLoginCount
	}
	if t.CPUPercent > 0 {
		d.CPUPercent = t.CPUPercent
	}
	if t.MemoryPercent > 0 {
		d.MemoryPercent = t.MemoryPercent
	}
	if t.DiskPercent > 0 {
		d.DiskPercent = t.DiskPercent
	}
	if t.ErrorsPerHour > 0 {
		d.ErrorsPerHour = t.ErrorsPerHour
	}
	if t.ThreatScore > 0 {
		d.ThreatScore = t.ThreatScore
	}
	return &Detector{store: st, thresholds: d}
}

func window(hours int) (start, end int64) {
	end = time.Now().Unix()
	return end - int64(hours)*3600, end
}

// FindBruteForce groups failed logins by source IP and flags addresses that
// cross the attempt threshold. Bursts compressed into under five minutes
// score higher.
func (d *Detector) FindBruteForce(ctx context.Context, hours int) ([]Issue, error) {
	start, end := window(hours)
	events, err := d.store.QueryLogEvents(ctx, start, end, store.EventFilter{}, 10000)
	if err != nil {
		return nil, err
	}

	type attempts struct {
		count     int64
		users     map[string]bool
		firstSeen int64
		lastSeen  int64
	}
	byIP := make(map[string]*attempts)
	for _, e := range events {
		if e.Action != "failed_login" || e.IPAddress == "" {
			continue
		}
		a := byIP[e.IPAddress]
		if a == nil {
			a = &attempts{users: make(map[string]bool), firstSeen: e.Timestamp}
			byIP[e.IPAddress] = a
		}
		a.count++
		a.users[e.User] = true
		if e.Timestamp < a.firstSeen {
			a.firstSeen = e.Timestamp
		}
		if e.Timestamp > a.lastSeen {
			a.lastSeen = e.Timestamp
		}
	}

	var issues []Issue
	for ip, a := range byIP {
		if a.count < int64(d.thresholds.FailedLoginCount) {
			continue
		}
		severity := 50 + int(a.count-int64(d.thresholds.FailedLoginCount))*5
		if a.lastSeen-a.firstSeen < 300 {
			severity += 20
		}
		if severity > 100 {
			severity = 100
		}
		issues = append(issues, Issue{
			Severity: severity,
			Category: "security",
			Title:    fmt.Sprintf("Brute force attack from %s", ip),
			Description: fmt.Sprintf("%d failed login attempts from %s targeting %d user(s)",
				a.count, ip, len(a.users)),
			FirstSeen: a.firstSeen,
			LastSeen:  a.lastSeen,
			Count:     a.count,
		})
	}
	sortBySeverity(issues)
	return issues, nil
}

// FindSuspiciousIPs surfaces reputation profiles at or above the threat
// threshold.
func (d *Detector) FindSuspiciousIPs(ctx context.Context) ([]Issue, error) {
	reps, err := d.store.HighThreatIPs(ctx, d.thresholds.ThreatScore)
	if err != nil {
		return nil, err
	}
	var issues []Issue
	for _, r := range reps {
		issues = append(issues, Issue{
			Severity: r.ThreatScore,
			Category: "security",
			Title:    fmt.Sprintf("High threat IP %s", r.IP),
			Description: fmt.Sprintf("threat score %d, %d failed logins, %d bans",
				r.ThreatScore, r.FailedLoginCount, r.BannedCount),
			FirstSeen: r.FirstSeen,
			LastSeen:  r.LastSeen,
			Count:     r.TotalEvents,
		})
	}
	sortBySeverity(issues)
	return issues, nil
}

// FindResourcePressure scans raw system samples for sustained high CPU,
// memory or disk readings.
func (d *Detector) FindResourcePressure(ctx context.Context, hours int) ([]Issue, error) {
	start, end := window(hours)
	samples, err := d.store.QuerySystemSamples(ctx, start, end, 0)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	issues = appendPressure(issues, samples, "cpu", d.thresholds.CPUPercent,
		func(s store.SystemSample) float64 { return s.CPUPercent })
	issues = appendPressure(issues, samples, "memory", d.thresholds.MemoryPercent,
		func(s store.SystemSample) float64 { return s.MemoryPercent })
	issues = appendPressure(issues, samples, "disk", d.thresholds.DiskPercent,
		func(s store.SystemSample) float64 { return s.DiskPercent })
	sortBySeverity(issues)
	return issues, nil
}

func appendPressure(issues []Issue, samples []store.SystemSample, resource string, threshold float64, value func(store.SystemSample) float64) []Issue {
	var count int64
	var peak float64
	var firstSeen, lastSeen int64
	for _, s := range samples {
		v := value(s)
		if v < threshold {
			continue
		}
		count++
		if v > peak {
			peak = v
		}
		if firstSeen == 0 {
			firstSeen = s.Timestamp
		}
		lastSeen = s.Timestamp
	}
	if count == 0 {
		return issues
	}
	severity := 40 + int((peak-threshold)*2)
	if severity > 100 {
		severity = 100
	}
	return append(issues, Issue{
		Severity: severity,
		Category: "performance",
		Title:    fmt.Sprintf("High %s usage", resource),
		Description: fmt.Sprintf("%d samples above %.0f%%, peak %.1f%%",
			count, threshold, peak),
		FirstSeen: firstSeen,
		LastSeen:  lastSeen,
		Count:     count,
	})
}

// FindErrorSpikes compares per-hour error counts against the configured
// rate using the hourly rollups.
func (d *Detector) FindErrorSpikes(ctx context.Context, hours int) ([]Issue, error) {
	start, end := window(hours)
	aggs, err := d.store.HourlyAggregates(ctx, start, end)
	if err != nil {
		return nil, err
	}
	var issues []Issue
	for _, a := range aggs {
		if a.ErrorCount < d.thresholds.ErrorsPerHour {
			continue
		}
		severity := 50 + int((a.ErrorCount-d.thresholds.ErrorsPerHour)/10)
		if severity > 100 {
			severity = 100
		}
		issues = append(issues, Issue{
			Severity:    severity,
			Category:    "errors",
			Title:       "Error rate spike",
			Description: fmt.Sprintf("%d errors in hour starting %d", a.ErrorCount, a.HourTimestamp),
			FirstSeen:   a.HourTimestamp,
			LastSeen:    a.HourTimestamp + 3599,
			Count:       a.ErrorCount,
		})
	}
	sortBySeverity(issues)
	return issues, nil
}

func sortBySeverity(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool { return issues[i].Severity > issues[j].Severity })
}
