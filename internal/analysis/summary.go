package analysis

import (
	"context"
	"sort"

	"github.com/loggard/loggard/internal/store"
)

// Summary holds descriptive statistics for one window: event volumes by
// level, the busiest sources and remote addresses, and resource averages.
type Summary struct {
	StartTime     int64
	EndTime       int64
	TotalEvents   int64
	EventsByLevel map[string]int64
	TopSources    []NameCount
	TopIPs        []NameCount
	AvgCPUPercent float64
	MaxCPUPercent float64
	AvgMemPercent float64
}

type NameCount struct {
	Name  string
	Count int64
}

const topN = 5

// Summarize computes the window summary straight from raw rows. Intended for
// report generation, not for hot paths.
func (d *Detector) Summarize(ctx context.Context, start, end int64) (Summary, error) {
	s := Summary{
		StartTime:     start,
		EndTime:       end,
		EventsByLevel: make(map[string]int64),
	}

	events, err := d.store.QueryLogEvents(ctx, start, end, store.EventFilter{}, 0)
	if err != nil {
		return Summary{}, err
	}
	sources := make(map[string]int64)
	ips := make(map[string]int64)
	for _, e := range events {
		s.TotalEvents++
		s.EventsByLevel[e.Level]++
		sources[e.Source]++
		if e.IPAddress != "" {
			ips[e.IPAddress]++
		}
	}
	s.TopSources = topCounts(sources)
	s.TopIPs = topCounts(ips)

	samples, err := d.store.QuerySystemSamples(ctx, start, end, 0)
	if err != nil {
		return Summary{}, err
	}
	if len(samples) > 0 {
		var sumCPU, sumMem float64
		for _, sample := range samples {
			sumCPU += sample.CPUPercent
			sumMem += sample.MemoryPercent
			if sample.CPUPercent > s.MaxCPUPercent {
				s.MaxCPUPercent = sample.CPUPercent
			}
		}
		s.AvgCPUPercent = sumCPU / float64(len(samples))
		s.AvgMemPercent = sumMem / float64(len(samples))
	}
	return s, nil
}

func topCounts(counts map[string]int64) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
