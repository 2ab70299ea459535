// Package scheduler runs cron-scheduled sweeps that transpile every flow
// file in a directory and record runs whose source changed.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/rendis/flowscript/internal/logging"
	"github.com/rendis/flowscript/internal/metrics"
	"github.com/rendis/flowscript/internal/source"
	"github.com/rendis/flowscript/internal/store"
	"github.com/rendis/flowscript/internal/transpile"
	"github.com/rendis/flowscript/pkg/schema"
)

// DefaultInterval is how often the loop checks for due jobs.
const DefaultInterval = 60 * time.Second

// Transpiler is the subset of *transpile.Transpiler the scheduler needs.
type Transpiler interface {
	Transpile(ctx context.Context, flow *schema.Flow) (*transpile.Result, error)
}

// JobSpec configures one sweep: a directory and a five-field cron
// expression.
type JobSpec struct {
	Dir  string `json:"dir"`
	Cron string `json:"cron"`
}

// Job is a registered sweep and its last outcome.
type Job struct {
	ID            string     `json:"id"`
	Dir           string     `json:"dir"`
	Cron          string     `json:"cron"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
	LastRunStatus string     `json:"last_run_status,omitempty"`
	LastSweep     *Sweep     `json:"last_sweep,omitempty"`
}

// Sweep counts what one pass over a directory did.
type Sweep struct {
	Files     int `json:"files"`
	Saved     int `json:"saved"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Scheduler checks registered jobs on a ticker and runs those that are due.
type Scheduler struct {
	store    store.Store
	tr       Transpiler
	parser   cron.Parser
	logger   *slog.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex

	jobsMu sync.RWMutex
	jobs   map[string]*Job

	inflightMu sync.Mutex
	inflight   map[string]struct{} // job IDs currently executing (dedup)
}

// NewScheduler creates a Scheduler. A zero interval means DefaultInterval.
func NewScheduler(s store.Store, tr Transpiler, logger *slog.Logger, interval time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    s,
		tr:       tr,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:   logger,
		interval: interval,
		jobs:     make(map[string]*Job),
		inflight: make(map[string]struct{}),
	}
}

// AddJob registers a sweep. The job is due on the next tick.
func (s *Scheduler) AddJob(spec JobSpec) (*Job, error) {
	if spec.Dir == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "schedule: dir is required")
	}
	if _, err := s.parser.Parse(spec.Cron); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "schedule %s: invalid cron %q", spec.Dir, spec.Cron).WithCause(err)
	}
	info, err := os.Stat(spec.Dir)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "schedule: dir %s", spec.Dir).WithCause(err)
	}
	if !info.IsDir() {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "schedule: %s is not a directory", spec.Dir)
	}

	job := &Job{ID: uuid.New().String(), Dir: spec.Dir, Cron: spec.Cron}
	s.jobsMu.Lock()
	s.jobs[job.ID] = job
	n := len(s.jobs)
	s.jobsMu.Unlock()

	metrics.ScheduledJobs.Set(float64(n))
	s.logger.Info("sweep scheduled", slog.String("job_id", job.ID), slog.String("dir", job.Dir), slog.String("cron", job.Cron))
	cp := *job
	return &cp, nil
}

// RemoveJob unregisters a sweep.
func (s *Scheduler) RemoveJob(id string) error {
	s.jobsMu.Lock()
	_, ok := s.jobs[id]
	delete(s.jobs, id)
	n := len(s.jobs)
	s.jobsMu.Unlock()

	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "job %q not found", id)
	}
	metrics.ScheduledJobs.Set(float64(n))
	return nil
}

// Jobs returns a snapshot of the registered jobs ordered by directory.
func (s *Scheduler) Jobs() []Job {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Dir < out[k].Dir })
	return out
}

// Start launches the background scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run an initial tick immediately.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs every job whose next run time has passed.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()

	s.jobsMu.RLock()
	var due []string
	for id, job := range s.jobs {
		if job.NextRunAt == nil || !job.NextRunAt.After(now) {
			due = append(due, id)
		}
	}
	s.jobsMu.RUnlock()
	sort.Strings(due)

	for _, id := range due {
		if !s.tryAcquire(id) {
			continue // already running (dedup)
		}
		if err := s.RunJob(ctx, id, now); err != nil {
			s.logger.Error("failed to run scheduled sweep",
				slog.String("job_id", id),
				slog.String("error", err.Error()),
			)
		}
		s.releaseJob(id)
	}
}

// RunJob sweeps a job's directory now and schedules its next run.
func (s *Scheduler) RunJob(ctx context.Context, id string, now time.Time) error {
	s.jobsMu.RLock()
	job, ok := s.jobs[id]
	var dir, expr string
	if ok {
		dir, expr = job.Dir, job.Cron
	}
	s.jobsMu.RUnlock()
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "job %q not found", id)
	}

	s.logger.Info("running scheduled sweep", slog.String("job_id", id), slog.String("dir", dir))
	sweep, err := s.Sweep(ctx, dir)
	status := "success"
	switch {
	case err != nil:
		status = "error"
		s.logger.Error("sweep failed", slog.String("job_id", id), slog.String("error", err.Error()))
	case sweep.Failed > 0:
		status = "partial"
	}

	nextRun, nErr := s.CalculateNextRun(expr, now)
	if nErr != nil {
		return fmt.Errorf("calculate next run for job %q: %w", id, nErr)
	}

	s.jobsMu.Lock()
	if job, ok := s.jobs[id]; ok {
		job.LastRunAt = &now
		job.NextRunAt = &nextRun
		job.LastRunStatus = status
		job.LastSweep = sweep
	}
	s.jobsMu.Unlock()
	return err
}

// Sweep transpiles every flow file directly inside dir and saves a run for
// each file whose content hash differs from its latest stored run.
func (s *Scheduler) Sweep(ctx context.Context, dir string) (*Sweep, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	sweep := &Sweep{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return sweep, err
		}
		if entry.IsDir() || !source.IsFlowFile(entry.Name()) {
			continue
		}
		sweep.Files++

		path := filepath.Join(dir, entry.Name())
		saved, err := s.processFile(ctx, path)
		switch {
		case err != nil:
			sweep.Failed++
			s.logger.Warn("sweep file failed", slog.String("path", path), slog.String("error", err.Error()))
		case saved:
			sweep.Saved++
		default:
			sweep.Unchanged++
		}
	}

	s.logger.Info("sweep complete",
		slog.String("dir", dir),
		slog.Int("files", sweep.Files),
		slog.Int("saved", sweep.Saved),
		slog.Int("unchanged", sweep.Unchanged),
		slog.Int("failed", sweep.Failed),
	)
	return sweep, nil
}

// processFile reports whether a new run was saved for path.
func (s *Scheduler) processFile(ctx context.Context, path string) (bool, error) {
	doc, err := source.Load(path)
	if err != nil {
		return false, err
	}

	latest, err := s.store.LatestRun(ctx, path)
	if err != nil {
		return false, err
	}
	if latest != nil && latest.SourceHash == doc.Hash {
		return false, nil
	}

	ctx = logging.WithFlow(ctx, doc.Flow.Label)
	res, err := s.tr.Transpile(ctx, doc.Flow)
	metrics.ObserveTranspile(res, err)
	if err != nil {
		return false, err
	}

	run, err := store.NewRun(doc, res, store.TriggerScheduler)
	if err != nil {
		return false, err
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		return false, err
	}
	return true, nil
}

// tryAcquire returns true and marks the job as in-flight if it is not already running.
func (s *Scheduler) tryAcquire(jobID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[jobID]; ok {
		return false
	}
	s.inflight[jobID] = struct{}{}
	return true
}

// releaseJob removes the job from the in-flight set.
func (s *Scheduler) releaseJob(jobID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, jobID)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}
