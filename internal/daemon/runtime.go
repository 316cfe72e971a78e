// Package daemon wires the subsystems together and owns process lifecycle:
// open the datastore, register the scheduled jobs, serve the status
// endpoints, and unwind everything in order on shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loggard/loggard/internal/aggregator"
	"github.com/loggard/loggard/internal/collect"
	"github.com/loggard/loggard/internal/config"
	"github.com/loggard/loggard/internal/metrics"
	"github.com/loggard/loggard/internal/scheduler"
	"github.com/loggard/loggard/internal/server"
	"github.com/loggard/loggard/internal/store"
	"github.com/loggard/loggard/internal/trace"
)

type Runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	version   string
	startedAt time.Time

	store      *store.Store
	sched      *scheduler.Scheduler
	httpServer *http.Server

	systemCol  *collect.SystemCollector
	networkCol *collect.NetworkCollector
	logCol     *collect.LogCollector
	enricher   *trace.Enricher
	agg        *aggregator.Aggregator
}

func New(cfg *config.Config, logger *slog.Logger, version string) *Runtime {
	return &Runtime{
		cfg:       cfg,
		logger:    logger,
		version:   version,
		startedAt: time.Now(),
	}
}

// Run starts the daemon and blocks until ctx is cancelled or the status
// server fails. Datastore open failure is the only fatal storage error;
// everything later is contained at job boundaries.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	r.buildComponents()
	r.registerJobs()

	healthHandler := server.NewHealthHandler(r.store, r.startedAt, r.version)
	r.httpServer = server.New(r.cfg.ServerAddr, healthHandler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("status server listening", "addr", r.cfg.ServerAddr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})

	r.sched.Start(gctx)

	g.Go(func() error {
		<-gctx.Done()
		r.logger.Info("shutting down")
		return r.shutdown()
	})

	return g.Wait()
}

// RunOnce executes every job a single time and exits. Used by the --once
// flag for cron-style operation and smoke testing.
func (r *Runtime) RunOnce(ctx context.Context) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	r.buildComponents()
	r.registerJobs()
	r.sched.RunOnce(ctx)
	return r.shutdown()
}

func (r *Runtime) open(ctx context.Context) error {
	st, err := store.Open(r.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open datastore: %w", err)
	}
	r.store = st
	st.SetReputationPolicy(store.ReputationPolicy{
		PublicBaseScore:    r.cfg.Reputation.PublicBaseScore,
		FailedLoginWeight:  r.cfg.Reputation.FailedLoginWeight,
		FailedLoginCap:     r.cfg.Reputation.FailedLoginCap,
		BanWeight:          r.cfg.Reputation.BanWeight,
		BanCap:             r.cfg.Reputation.BanCap,
		BlacklistThreshold: r.cfg.Reputation.BlacklistThreshold,
	})

	journalMode, busyTimeout, err := st.Pragmas(ctx)
	if err != nil {
		return fmt.Errorf("query sqlite pragmas: %w", err)
	}
	instanceID, _ := st.MetadataValue(ctx, "instance_id")
	r.logger.Info("datastore opened",
		"path", r.cfg.DBPath,
		"journal_mode", journalMode,
		"busy_timeout", busyTimeout,
		"instance_id", instanceID,
	)
	return nil
}

func (r *Runtime) buildComponents() {
	r.systemCol = collect.NewSystemCollector("", r.cfg.DBPath)
	r.networkCol = collect.NewNetworkCollector("")
	r.logCol = collect.NewLogCollector(r.cfg.LogSources, r.logger)
	r.enricher = trace.NewEnricher("", r.cfg.Trace.SeverityThreshold, r.logger)
	r.agg = aggregator.New(r.store, r.logger)
	r.sched = scheduler.New(r.logger)
}

func (r *Runtime) registerJobs() {
	r.sched.Every(r.cfg.Collection.SystemInterval.Std(), scheduler.Job{
		Name: "system_sample",
		Run:  r.collectSystem,
	})
	r.sched.Every(r.cfg.Collection.NetworkInterval.Std(), scheduler.Job{
		Name: "network_sample",
		Run:  r.collectNetwork,
	})
	r.sched.Every(r.cfg.Collection.LogInterval.Std(), scheduler.Job{
		Name: "log_parse",
		Run:  r.collectLogs,
	})
	r.sched.Every(r.cfg.Retention.CleanupInterval.Std(), scheduler.Job{
		Name: "retention_sweep",
		Run:  r.retentionSweep,
	})
	r.sched.Every(r.cfg.Retention.WALCheckpointEvery.Std(), scheduler.Job{
		Name: "housekeeping",
		Run:  r.housekeeping,
	})

	if r.cfg.Aggregation.Hourly {
		r.sched.HourlyEdge(scheduler.Job{
			Name: "hourly_aggregate",
			Run: func(ctx context.Context) error {
				return r.agg.RunHourly(ctx, time.Now())
			},
		})
	}
	if r.cfg.Aggregation.Daily {
		r.sched.DailyEdge(scheduler.Job{
			Name: "daily_aggregate",
			Run: func(ctx context.Context) error {
				return r.agg.RunDaily(ctx, time.Now())
			},
		})
	}
}

func (r *Runtime) collectSystem(ctx context.Context) error {
	sample, ok, err := r.systemCol.Collect()
	if err != nil {
		return fmt.Errorf("sample system state: %w", err)
	}
	if !ok {
		// Priming read; the CPU delta needs a previous sample.
		return nil
	}
	return r.store.InsertSystemSample(ctx, sample)
}

func (r *Runtime) collectNetwork(ctx context.Context) error {
	sample, err := r.networkCol.Collect()
	if err != nil {
		return fmt.Errorf("sample network state: %w", err)
	}
	return r.store.InsertNetworkSample(ctx, sample)
}

func (r *Runtime) collectLogs(ctx context.Context) error {
	events := r.logCol.Collect()
	if len(events) == 0 {
		return nil
	}

	inserted, corrupt, err := r.store.InsertLogEvents(ctx, events)
	if err != nil {
		return fmt.Errorf("persist log events: %w", err)
	}
	if corrupt > 0 {
		metrics.CorruptRecords.Add(float64(corrupt))
		r.logger.Warn("skipped corrupt log records", "count", corrupt)
	}
	bySource := make(map[string]int)
	for _, e := range events {
		bySource[e.Source]++
	}
	for source, n := range bySource {
		metrics.EventsIngested.WithLabelValues(source).Add(float64(n))
	}
	r.logger.Debug("log events persisted", "inserted", inserted, "corrupt", corrupt)

	if !r.cfg.Trace.Enabled {
		return nil
	}
	for _, event := range events {
		if !r.enricher.Significant(event) {
			continue
		}
		enriched := r.enricher.Enrich(event)
		traceID, err := r.store.RecordTrace(ctx, enriched)
		if err != nil {
			r.logger.Error("record trace failed", "source", event.Source, "error", err)
			continue
		}
		metrics.TracesRecorded.Inc()
		r.logger.Debug("trace recorded", "trace_id", traceID,
			"severity", enriched.Trace.SeverityScore, "source", event.Source)
	}
	return nil
}

func (r *Runtime) retentionSweep(ctx context.Context) error {
	deleted, err := r.store.Cleanup(ctx, r.cfg.Retention.Days)
	if err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}
	metrics.RetentionDeleted.Add(float64(deleted))
	r.logger.Info("retention sweep finished", "rows_deleted", deleted, "retention_days", r.cfg.Retention.Days)
	return nil
}

func (r *Runtime) housekeeping(ctx context.Context) error {
	restarted, err := r.store.CheckpointIfWALExceeds(ctx, r.cfg.Retention.WALCheckpointBytes)
	if err != nil {
		return err
	}
	if restarted {
		r.logger.Info("wal checkpoint restarted", "threshold_bytes", r.cfg.Retention.WALCheckpointBytes)
	}
	stats := r.store.Stats(ctx)
	metrics.UpdateProcessGauges(stats.DBSizeBytes, stats.WALSize)
	return nil
}

func (r *Runtime) shutdown() error {
	var joined error

	if r.sched != nil {
		r.sched.Stop()
	}

	if r.httpServer != nil {
		httpCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.httpServer.Shutdown(httpCtx); err != nil {
			joined = errors.Join(joined, fmt.Errorf("http shutdown: %w", err))
		}
	}

	if r.store != nil {
		cpCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.store.Checkpoint(cpCtx); err != nil {
			r.logger.Warn("final wal checkpoint failed", "error", err)
			joined = errors.Join(joined, fmt.Errorf("wal checkpoint: %w", err))
		}
		if err := r.store.Close(); err != nil {
			joined = errors.Join(joined, fmt.Errorf("datastore close: %w", err))
		}
	}

	r.logger.Info("shutdown complete", "uptime", time.Since(r.startedAt).String())
	return joined
}
