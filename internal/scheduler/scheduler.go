// Package scheduler drives the periodic work of the daemon: collection
// jobs on fixed intervals and aggregation jobs on clock-boundary edges.
// One goroutine ticks once a second; job work runs inline on that
// goroutine, so jobs never overlap and never race on the writer.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/loggard/loggard/internal/metrics"
)

// Job is a unit of periodic work. A returned error is contained at the job
// boundary: logged, counted, and the schedule carries on.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type intervalJob struct {
	job     Job
	every   time.Duration
	nextDue time.Time
}

// edgeJob fires when its bucket key changes between ticks, so an
// hour-boundary job fires once per wall-clock hour no matter how the ticks
// land inside it. The key observed at startup never fires.
type edgeJob struct {
	job     Job
	bucket  func(time.Time) string
	lastKey string
}

type Scheduler struct {
	logger   *slog.Logger
	tick     time.Duration
	stopWait time.Duration

	mu       sync.Mutex
	interval []*intervalJob
	edge     []*edgeJob
	running  bool
	stop     chan struct{}
	done     chan struct{}
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger, tick: time.Second, stopWait: 5 * time.Second}
}

// Every registers a fixed-interval job. The first run happens one full
// interval after Start, not immediately.
func (s *Scheduler) Every(every time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = append(s.interval, &intervalJob{job: job, every: every})
}

// HourlyEdge registers a job firing once whenever a new wall-clock hour
// begins.
func (s *Scheduler) HourlyEdge(job Job) {
	s.onEdge(job, func(t time.Time) string { return t.Format("2006-01-02T15") })
}

// DailyEdge registers a job firing once whenever a new calendar day begins.
func (s *Scheduler) DailyEdge(job Job) {
	s.onEdge(job, func(t time.Time) string { return t.Format("2006-01-02") })
}

func (s *Scheduler) onEdge(job Job, bucket func(time.Time) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edge = append(s.edge, &edgeJob{job: job, bucket: bucket})
}

// Start launches the tick loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	now := time.Now()
	for _, ij := range s.interval {
		ij.nextDue = now.Add(ij.every)
	}
	for _, ej := range s.edge {
		ej.lastKey = ej.bucket(now)
	}

	go s.loop(ctx)
	s.logger.Info("scheduler started",
		"interval_jobs", len(s.interval), "edge_jobs", len(s.edge))
}

// Stop halts the tick loop and waits up to stopWait for an in-flight job
// to finish, then returns either way so shutdown cannot hang on a stuck
// job. Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	wait := s.stopWait
	s.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-timer.C:
		s.logger.Warn("scheduler stop timed out with a job still running",
			"waited", wait)
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.runDue(ctx, now)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var due []Job
	for _, ij := range s.interval {
		if !now.Before(ij.nextDue) {
			due = append(due, ij.job)
			ij.nextDue = now.Add(ij.every)
		}
	}
	for _, ej := range s.edge {
		key := ej.bucket(now)
		if key != ej.lastKey {
			due = append(due, ej.job)
			ej.lastKey = key
		}
	}
	s.mu.Unlock()

	for _, job := range due {
		s.runJob(ctx, job)
	}
}

// RunOnce executes every registered job a single time, in registration
// order, interval jobs first. Used by the --once mode and by tests.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := make([]Job, 0, len(s.interval)+len(s.edge))
	for _, ij := range s.interval {
		jobs = append(jobs, ij.job)
	}
	for _, ej := range s.edge {
		jobs = append(jobs, ej.job)
	}
	s.mu.Unlock()

	for _, job := range jobs {
		s.runJob(ctx, job)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)
	metrics.JobDuration.WithLabelValues(job.Name).Observe(elapsed.Seconds())
	if err != nil {
		metrics.JobRuns.WithLabelValues(job.Name, "error").Inc()
		s.logger.Error("job failed", "job", job.Name, "elapsed", elapsed, "error", err)
		return
	}
	metrics.JobRuns.WithLabelValues(job.Name, "ok").Inc()
	s.logger.Debug("job finished", "job", job.Name, "elapsed", elapsed)
}
