// Package server exposes the local status surface: a JSON health summary
// and the Prometheus metrics endpoint. It binds loopback-style addresses
// only; nothing here is an ingest path.
package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func New(addr string, health *HealthHandler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /health", health)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
