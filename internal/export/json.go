package export

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/loggard/loggard/internal/store"
)

// envelope is the common JSON export frame: a generation timestamp, the
// requested window and the record payload.
type envelope struct {
	GeneratedAt string `json:"generated_at"`
	StartTime   int64  `json:"start_time"`
	EndTime     int64  `json:"end_time"`
	Count       int    `json:"count"`
	Records     any    `json:"records"`
}

func writeEnvelope(w io.Writer, start, end int64, count int, records any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		StartTime:   start,
		EndTime:     end,
		Count:       count,
		Records:     records,
	})
}

// WriteSystemJSON exports system samples in [start, end) as a JSON document.
func WriteSystemJSON(ctx context.Context, st *store.Store, w io.Writer, start, end int64) (int, error) {
	samples, err := st.QuerySystemSamples(ctx, start, end, 0)
	if err != nil {
		return 0, err
	}
	return len(samples), writeEnvelope(w, start, end, len(samples), samples)
}

// WriteNetworkJSON exports network samples in [start, end) as a JSON document.
func WriteNetworkJSON(ctx context.Context, st *store.Store, w io.Writer, start, end int64) (int, error) {
	samples, err := st.QueryNetworkSamples(ctx, start, end, 0)
	if err != nil {
		return 0, err
	}
	return len(samples), writeEnvelope(w, start, end, len(samples), samples)
}

// WriteLogEventsJSON exports log events in [start, end) as a JSON document.
func WriteLogEventsJSON(ctx context.Context, st *store.Store, w io.Writer, start, end int64, filter store.EventFilter) (int, error) {
	events, err := st.QueryLogEvents(ctx, start, end, filter, 0)
	if err != nil {
		return 0, err
	}
	return len(events), writeEnvelope(w, start, end, len(events), events)
}
