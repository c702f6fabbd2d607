// Package scheduler issues job ids for migrations, runs them and keeps their
// results for status lookups.
//
// Schedule runs a migration synchronously. Submit queues it on a bounded
// worker pool and returns at once; the job is visible as "pending" and then
// "running" until its result is stored. Results are kept for the lifetime
// of the Scheduler.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ajitpratap0/nebula-migrate/internal/migration"
	"github.com/ajitpratap0/nebula-migrate/pkg/logger"
	"github.com/ajitpratap0/nebula-migrate/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job statuses in addition to migration.StatusCompleted and StatusFailed
const (
	StatusPending  = string(migration.StatePending)
	StatusRunning  = "running"
	StatusNotFound = "not_found"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
)

// JobStatus is the externally visible state of a job. Result is set once
// the job reached a terminal status.
type JobStatus struct {
	JobID       string            `json:"job_id,omitempty"`
	Status      string            `json:"status"`
	Result      *migration.Result `json:"result,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at,omitempty"`
}

// Terminal reports whether the job finished
func (s JobStatus) Terminal() bool {
	return s.Status == migration.StatusCompleted || s.Status == migration.StatusFailed
}

type job struct {
	id          string
	cfg         migration.Config
	ctx         context.Context
	cancel      context.CancelFunc
	status      string
	result      *migration.Result
	submittedAt time.Time
}

func (j *job) snapshot() JobStatus {
	return JobStatus{
		JobID:       j.id,
		Status:      j.status,
		Result:      j.result,
		SubmittedAt: j.submittedAt,
	}
}

// Scheduler owns the job store and the async worker pool
type Scheduler struct {
	engine *migration.Engine
	logger *zap.Logger

	mu    sync.RWMutex
	jobs  map[string]*job
	order []string

	workers   int
	queueSize int
	queue     chan *job
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup

	// submitMu orders sends on queue before its close
	submitMu sync.RWMutex
	closed   bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithEngine sets the engine used for every job
func WithEngine(e *migration.Engine) Option {
	return func(s *Scheduler) { s.engine = e }
}

// WithWorkers sets the number of async workers
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize bounds the number of submitted jobs waiting for a worker
func WithQueueSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// New creates a scheduler. Workers start on the first Submit.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:    logger.Get().With(zap.String("component", "scheduler")),
		jobs:      make(map[string]*job),
		workers:   defaultWorkers,
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = migration.NewEngine()
	}
	s.queue = make(chan *job, s.queueSize)
	return s
}

// Schedule runs cfg to completion and returns the new job id. It never
// fails; inspect Status for the outcome.
func (s *Scheduler) Schedule(ctx context.Context, cfg migration.Config) string {
	j := s.newJob(ctx, cfg, StatusRunning)
	s.execute(j)
	return j.id
}

// Submit queues cfg and returns the new job id without waiting for the run.
// It blocks while the queue is full. Configs that fail validation are
// recorded as failed immediately.
func (s *Scheduler) Submit(ctx context.Context, cfg migration.Config) string {
	if err := cfg.Validate(); err != nil {
		return s.Schedule(ctx, cfg)
	}

	j := s.newJob(ctx, cfg, StatusPending)

	s.submitMu.RLock()
	defer s.submitMu.RUnlock()
	if s.closed {
		s.finish(j, failedResult("scheduler is closed"))
		return j.id
	}

	s.startOnce.Do(s.startWorkers)
	metrics.JobsQueued.Inc()
	select {
	case s.queue <- j:
	case <-ctx.Done():
		metrics.JobsQueued.Dec()
		s.finish(j, failedResult("submit cancelled: "+ctx.Err().Error()))
	}
	return j.id
}

// Status returns the job's status, or StatusNotFound for unknown ids
func (s *Scheduler) Status(id string) JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return JobStatus{Status: StatusNotFound}
	}
	return j.snapshot()
}

// List returns every known job in submission order
func (s *Scheduler) List() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id].snapshot())
	}
	return out
}

// Cancel stops a pending or running job. It returns false when the job is
// unknown or already finished.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return false
	}

	switch j.status {
	case StatusPending:
		j.cancel()
		j.status = migration.StatusFailed
		j.result = failedResult("job cancelled before start")
		metrics.MigrationRuns.WithLabelValues(migration.StatusFailed).Inc()
	case StatusRunning:
		j.cancel()
	default:
		return false
	}

	s.logger.Info("job cancelled", zap.String("job_id", id), zap.String("status", j.status))
	return true
}

// Close stops accepting submissions and waits for queued and running jobs
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		s.submitMu.Lock()
		s.closed = true
		s.submitMu.Unlock()

		close(s.queue)
		s.wg.Wait()
	})
}

func (s *Scheduler) newJob(ctx context.Context, cfg migration.Config, status string) *job {
	id := uuid.New().String()
	parent := logger.ContextWithJobID(ctx, id)
	if status == StatusPending {
		// queued jobs outlive the submitting request
		parent = context.WithoutCancel(parent)
	}
	jobCtx, cancel := context.WithCancel(parent)

	j := &job{
		id:          id,
		cfg:         cfg,
		ctx:         jobCtx,
		cancel:      cancel,
		status:      status,
		submittedAt: time.Now(),
	}

	s.mu.Lock()
	s.jobs[id] = j
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.logger.Debug("job created", zap.String("job_id", id), zap.String("status", status))
	return j
}

func (s *Scheduler) execute(j *job) {
	defer j.cancel()
	result := s.engine.Run(j.ctx, j.cfg)
	s.finish(j, result)
}

func (s *Scheduler) finish(j *job, result *migration.Result) {
	s.mu.Lock()
	j.status = result.Status
	j.result = result
	s.mu.Unlock()

	s.logger.Info("job finished",
		zap.String("job_id", j.id),
		zap.String("status", result.Status),
		zap.Int("processed_records", result.ProcessedRecords))
}

func (s *Scheduler) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for j := range s.queue {
		metrics.JobsQueued.Dec()

		s.mu.Lock()
		if j.status != StatusPending {
			// cancelled while queued
			s.mu.Unlock()
			continue
		}
		j.status = StatusRunning
		s.mu.Unlock()

		s.execute(j)
	}
}

func failedResult(msg string) *migration.Result {
	now := time.Now()
	return &migration.Result{
		Status:      migration.StatusFailed,
		Error:       msg,
		State:       migration.StateFailed,
		FailedStage: migration.StatePending,
		StartedAt:   now,
		CompletedAt: now,
	}
}
