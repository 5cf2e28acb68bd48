package dispatch

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor periodically samples the pool and reports its state to
// the log and the metrics collector
type HealthMonitor struct {
	pool     *Pool
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// HealthStatus is one sample of the pool's state. The pool counts as
// healthy while at least one worker is idle and none has stopped.
type HealthStatus struct {
	TotalWorkers   int
	IdleWorkers    int
	BusyWorkers    int
	StoppedWorkers int
	QueueDepth     int
	Healthy        bool
	Timestamp      time.Time
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(pool *Pool, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		pool:     pool,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the periodic sampling loop
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true

	go h.run()
}

// Stop stops the sampling loop
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false

	close(h.stopCh)
}

func (h *HealthMonitor) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.report()
		}
	}
}

// report publishes one sample to the metrics collector and the log
func (h *HealthMonitor) report() {
	status := h.GetStatus()

	h.pool.metrics.RecordWorkerPoolStatus(
		status.IdleWorkers,
		status.BusyWorkers,
		status.StoppedWorkers,
	)

	fields := []zap.Field{
		zap.Int("total", status.TotalWorkers),
		zap.Int("idle", status.IdleWorkers),
		zap.Int("busy", status.BusyWorkers),
		zap.Int("stopped", status.StoppedWorkers),
		zap.Int("queue_depth", status.QueueDepth),
	}
	if !status.Healthy {
		h.logger.Warn("dispatch pool is unhealthy", fields...)
		return
	}
	h.logger.Info("dispatch pool health check", fields...)
}

// GetStatus returns the current health status
func (h *HealthMonitor) GetStatus() *HealthStatus {
	idle, busy, stopped := h.pool.workerCounts()

	return &HealthStatus{
		TotalWorkers:   idle + busy + stopped,
		IdleWorkers:    idle,
		BusyWorkers:    busy,
		StoppedWorkers: stopped,
		QueueDepth:     h.pool.queue.Depth(),
		Healthy:        idle > 0 && stopped == 0,
		Timestamp:      time.Now(),
	}
}

// IsHealthy reports whether the pool can currently accept work
func (h *HealthMonitor) IsHealthy() bool {
	return h.GetStatus().Healthy
}

// Health exposes the pool's health monitor
func (p *Pool) Health() *HealthMonitor {
	return p.health
}
