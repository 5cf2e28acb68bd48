package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"github.com/cloudmesh/orchestrator/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// recoverScanLimit bounds how many pending jobs one startup re-scan loads
const recoverScanLimit = 10000

// Pool manages the fixed set of worker goroutines draining the dispatch
// queue
type Pool struct {
	size       int
	queue      ports.DispatchQueue
	jobs       ports.JobStore
	subs       ports.SubscriptionStore
	bus        ports.EventBus
	local      ports.Strategy
	intercloud ports.Strategy
	metrics    ports.MetricsCollector
	logger     *zap.Logger
	health     *HealthMonitor

	strategyTimeout time.Duration

	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(
	size int,
	queue ports.DispatchQueue,
	jobs ports.JobStore,
	subs ports.SubscriptionStore,
	bus ports.EventBus,
	local ports.Strategy,
	intercloud ports.Strategy,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	strategyTimeout time.Duration,
	healthCheckInterval time.Duration,
) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:            size,
		queue:           queue,
		jobs:            jobs,
		subs:            subs,
		bus:             bus,
		local:           local,
		intercloud:      intercloud,
		metrics:         metrics,
		logger:          logger,
		strategyTimeout: strategyTimeout,
		workers:         make([]*worker, size),
		ctx:             ctx,
		cancel:          cancel,
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Start starts the worker pool
func (p *Pool) Start() error {
	p.logger.Info("starting dispatch worker pool", zap.Int("size", p.size))

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(p.ctx)
	}

	p.health.Start()

	p.logger.Info("dispatch worker pool started", zap.Int("workers", p.size))
	return nil
}

// RecoverPending re-enqueues still-pending push jobs found in the store.
// The store is authoritative; a queue lost to a restart is rebuilt here.
func (p *Pool) RecoverPending(ctx context.Context) error {
	page, err := p.jobs.Query(ctx, domain.JobFilter{
		Types:    []domain.JobType{domain.JobTypePush},
		Statuses: []domain.JobStatus{domain.JobStatusPending},
	}, domain.PageRequest{Size: recoverScanLimit})
	if err != nil {
		return fmt.Errorf("failed to scan pending jobs: %w", err)
	}

	recovered := 0
	for _, job := range page.Items {
		if err := p.queue.Enqueue(ctx, job.ID); err != nil {
			p.logger.Warn("failed to re-enqueue pending job",
				zap.String("job_id", job.ID),
				zap.Error(err))
			continue
		}
		recovered++
	}

	if recovered > 0 {
		p.logger.Info("recovered pending push jobs", zap.Int("count", recovered))
	}
	return nil
}

// Shutdown gracefully shuts down the worker pool
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down dispatch worker pool")

	p.health.Stop()
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("dispatch worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// workerCounts tallies the workers by their current status
func (p *Pool) workerCounts() (idle, busy, stopped int) {
	for _, w := range p.workers {
		if w == nil {
			// Not yet started.
			continue
		}
		w.mu.RLock()
		status := w.status
		w.mu.RUnlock()

		switch status {
		case WorkerStatusIdle:
			idle++
		case WorkerStatusBusy:
			busy++
		case WorkerStatusStopped:
			stopped++
		}
	}
	return idle, busy, stopped
}

// run is the main worker loop
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Info("worker started", zap.String("worker_id", w.id))

	for {
		jobID, err := w.pool.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrQueueClosed) {
				break
			}
			w.pool.logger.Error("failed to dequeue job",
				zap.String("worker_id", w.id),
				zap.Error(err))
			continue
		}

		w.processJob(ctx, jobID)
	}

	w.mu.Lock()
	w.status = WorkerStatusStopped
	w.mu.Unlock()
	w.pool.logger.Info("worker stopped", zap.String("worker_id", w.id))
}

// processJob runs one push job end to end. The worker claims the job by
// moving it to IN_PROGRESS; the strategy owns the terminal transition.
func (w *worker) processJob(ctx context.Context, jobID string) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.status = WorkerStatusIdle
		w.mu.Unlock()
	}()

	jobs, err := w.pool.jobs.Get(ctx, []string{jobID})
	if err != nil {
		w.pool.logger.Error("failed to load job",
			zap.String("worker_id", w.id),
			zap.String("job_id", jobID),
			zap.Error(err))
		return
	}
	if len(jobs) == 0 {
		w.pool.logger.Warn("queued job no longer exists",
			zap.String("worker_id", w.id),
			zap.String("job_id", jobID))
		return
	}

	job := jobs[0]
	if job.Status != domain.JobStatusPending {
		// Already picked up elsewhere or processed before a restart.
		return
	}

	if err := w.pool.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusInProgress, ""); err != nil {
		w.pool.logger.Error("failed to claim job",
			zap.String("worker_id", w.id),
			zap.String("job_id", job.ID),
			zap.Error(err))
		return
	}
	w.publishEvent(ctx, domain.EventTypeJobInProgress, &job)

	form, err := w.resolveForm(ctx, &job)
	if err != nil {
		w.fail(ctx, &job, err)
		return
	}

	strategy := w.pool.local
	if form.InterCloudOnly {
		strategy = w.pool.intercloud
	}

	runCtx, cancel := context.WithTimeout(ctx, w.pool.strategyTimeout)
	defer cancel()

	start := time.Now()
	result, err := strategy.Run(runCtx, job.ID, form)
	duration := time.Since(start)

	if err != nil {
		w.pool.metrics.RecordJobCompleted(string(domain.JobStatusError), duration)
		w.pool.logger.Error("push job failed",
			zap.String("worker_id", w.id),
			zap.String("job_id", job.ID),
			zap.String("subscription_id", job.SubscriptionID),
			zap.Duration("duration", duration),
			zap.Error(err))
		return
	}

	w.pool.metrics.RecordJobCompleted(string(domain.JobStatusDone), duration)
	w.pool.logger.Info("push job completed",
		zap.String("worker_id", w.id),
		zap.String("job_id", job.ID),
		zap.String("subscription_id", job.SubscriptionID),
		zap.Int("matches", len(result.Matches)),
		zap.Duration("duration", duration))
}

// resolveForm rebuilds the orchestration form from the subscription's
// requirement snapshot
func (w *worker) resolveForm(ctx context.Context, job *domain.Job) (*domain.OrchestrationForm, error) {
	subs, err := w.pool.subs.Get(ctx, []string{job.SubscriptionID})
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("subscription no longer exists: %s", job.SubscriptionID)
	}

	var form domain.OrchestrationForm
	if err := json.Unmarshal([]byte(subs[0].RequirementSnapshot), &form); err != nil {
		return nil, fmt.Errorf("invalid requirement snapshot: %w", err)
	}
	return &form, nil
}

// fail moves a job to ERROR for failures before the strategy ran
func (w *worker) fail(ctx context.Context, job *domain.Job, cause error) {
	if err := w.pool.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusError, cause.Error()); err != nil {
		w.pool.logger.Error("failed to mark job as errored",
			zap.String("worker_id", w.id),
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
	w.publishEvent(ctx, domain.EventTypeJobError, job)
	w.pool.metrics.RecordJobCompleted(string(domain.JobStatusError), 0)
	w.pool.logger.Error("push job rejected before dispatch",
		zap.String("worker_id", w.id),
		zap.String("job_id", job.ID),
		zap.Error(cause))
}

// publishEvent publishes a job lifecycle event
func (w *worker) publishEvent(ctx context.Context, eventType domain.EventType, job *domain.Job) {
	event := domain.Event{
		ID:             uuid.New().String(),
		Type:           eventType,
		JobID:          job.ID,
		SubscriptionID: job.SubscriptionID,
		Timestamp:      time.Now(),
	}
	if err := w.pool.bus.Publish(ctx, "job.events", event); err != nil {
		w.pool.logger.Warn("failed to publish job event",
			zap.String("worker_id", w.id),
			zap.String("job_id", job.ID),
			zap.String("type", string(eventType)),
			zap.Error(err))
	}
}
