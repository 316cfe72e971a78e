package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/loggard/loggard/internal/store"
)

type HealthResponse struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Version       string           `json:"version"`
	InstanceID    string           `json:"instance_id"`
	DBStatus      string           `json:"db_status"`
	DBSizeBytes   int64            `json:"db_size_bytes"`
	WALSizeBytes  int64            `json:"wal_size_bytes"`
	RowCounts     map[string]int64 `json:"row_counts"`
	GeneratedAt   string           `json:"generated_at"`
}

type HealthHandler struct {
	store     *store.Store
	startTime time.Time
	version   string
}

func NewHealthHandler(st *store.Store, start time.Time, version string) *HealthHandler {
	return &HealthHandler{store: st, startTime: start, version: version}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats(r.Context())
	instanceID, _ := h.store.MetadataValue(r.Context(), "instance_id")

	resp := HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Version:       h.version,
		InstanceID:    instanceID,
		DBStatus:      stats.DBStatus,
		DBSizeBytes:   stats.DBSizeBytes,
		WALSizeBytes:  stats.WALSize,
		RowCounts:     stats.RowCounts,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if resp.DBStatus != "ok" {
		resp.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
