// Package trace enriches significant log events with the live host context
// around them: severity scoring, causality reconstruction, process and
// connection snapshots, error classification and the per-IP reputation
// delta. The storage engine persists the result atomically.
package trace

import (
	"log/slog"
	"time"

	"github.com/loggard/loggard/internal/store"
)

type Enricher struct {
	procRoot  string
	threshold int
	logger    *slog.Logger

	// addrTypes caches IP classification; address type never changes for
	// a given address.
	addrTypes map[string]string
}

// NewEnricher builds an enricher reading procRoot (normally "/proc").
// Events scoring below threshold are not considered significant.
func NewEnricher(procRoot string, threshold int, logger *slog.Logger) *Enricher {
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &Enricher{
		procRoot:  procRoot,
		threshold: threshold,
		logger:    logger,
		addrTypes: make(map[string]string),
	}
}

// Significant reports whether an event clears the severity threshold and
// deserves a full trace.
func (e *Enricher) Significant(event store.LogEvent) bool {
	return Severity(event) >= e.threshold
}

// AddressType classifies ip, memoizing the answer.
func (e *Enricher) AddressType(ip string) string {
	if t, ok := e.addrTypes[ip]; ok {
		return t
	}
	t := ClassifyIP(ip)
	e.addrTypes[ip] = t
	return t
}

// Enrich assembles the full trace for one event. Snapshot collection is
// best-effort: a process that exited or an unreadable proc file shrinks the
// trace, it does not fail it.
func (e *Enricher) Enrich(event store.LogEvent) store.EnrichedEvent {
	enriched := store.EnrichedEvent{
		Trace: store.EventTrace{
			Timestamp:     event.Timestamp,
			Source:        event.Source,
			Level:         event.Level,
			SeverityScore: Severity(event),
			Message:       event.Message,
			Action:        event.Action,
			Service:       event.Service,
			User:          event.User,
			IPAddress:     event.IPAddress,
			TracedAt:      time.Now().Unix(),
		},
	}

	if c := traceCausality(event); c != nil {
		enriched.Trace.TriggerEvent = c.Trigger
		enriched.Trace.RootCause = c.RootCause
		enriched.Trace.CausalityChain = c.chainJSON()
	}
	if related := relatedServices(event); related != nil {
		enriched.Trace.RelatedServices = joinJSON(related)
	}

	enriched.Processes = e.snapshotProcessesByName(event.Service)
	enriched.Network = e.connectionsByIP(event.IPAddress)

	if event.Level == "ERROR" || event.Level == "CRITICAL" {
		et := classifyError(event)
		enriched.Error = &et
	}

	if event.IPAddress != "" {
		enriched.Reputation = &store.ReputationDelta{
			IP:          event.IPAddress,
			AddressType: e.AddressType(event.IPAddress),
			Action:      event.Action,
		}
	}
	return enriched
}
