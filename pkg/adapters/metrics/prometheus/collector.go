package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	jobsCreated          *prometheus.CounterVec
	jobsCompleted        *prometheus.CounterVec
	jobDuration          *prometheus.HistogramVec
	locksAcquired        prometheus.Counter
	lockConflicts        prometheus.Counter
	locksReleased        prometheus.Counter
	subscriptionsCreated prometheus.Counter
	subscriptionsDeleted prometheus.Counter
	pushTriggersCreated  prometheus.Counter
	pushTriggersExisting prometheus.Counter
	queueDepth           prometheus.Gauge
	workerPoolIdle       prometheus.Gauge
	workerPoolBusy       prometheus.Gauge
	workerPoolStopped    prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		jobsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orch_jobs_created_total",
				Help: "Total number of orchestration jobs created",
			},
			[]string{"type"},
		),
		jobsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orch_jobs_completed_total",
				Help: "Total number of orchestration jobs completed",
			},
			[]string{"status"},
		),
		jobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orch_job_duration_seconds",
				Help:    "Job processing duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"status"},
		),
		locksAcquired: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orch_locks_acquired_total",
				Help: "Total number of service instance locks acquired",
			},
		),
		lockConflicts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orch_lock_conflicts_total",
				Help: "Total number of refused lock acquisitions",
			},
		),
		locksReleased: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orch_locks_released_total",
				Help: "Total number of service instance locks released",
			},
		),
		subscriptionsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orch_subscriptions_created_total",
				Help: "Total number of push subscriptions created",
			},
		),
		subscriptionsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orch_subscriptions_deleted_total",
				Help: "Total number of push subscriptions deleted",
			},
		),
		pushTriggersCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orch_push_trigger_jobs_created_total",
				Help: "Total number of push jobs created by triggers",
			},
		),
		pushTriggersExisting: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "orch_push_trigger_jobs_deduplicated_total",
				Help: "Total number of trigger requests answered by an in-flight job",
			},
		),
		queueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "orch_dispatch_queue_depth",
				Help: "Current depth of the dispatch queue",
			},
		),
		workerPoolIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "orch_worker_pool_idle",
				Help: "Number of idle dispatch workers",
			},
		),
		workerPoolBusy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "orch_worker_pool_busy",
				Help: "Number of busy dispatch workers",
			},
		),
		workerPoolStopped: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "orch_worker_pool_stopped",
				Help: "Number of stopped dispatch workers",
			},
		),
	}
}

// RecordJobCreated records a job creation
func (c *Collector) RecordJobCreated(jobType string) {
	c.jobsCreated.WithLabelValues(jobType).Inc()
}

// RecordJobCompleted records a job reaching a terminal status
func (c *Collector) RecordJobCompleted(status string, duration time.Duration) {
	c.jobsCompleted.WithLabelValues(status).Inc()
	c.jobDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordLockAcquired records granted locks
func (c *Collector) RecordLockAcquired(count int) {
	c.locksAcquired.Add(float64(count))
}

// RecordLockConflict records a refused acquire batch
func (c *Collector) RecordLockConflict() {
	c.lockConflicts.Inc()
}

// RecordLockReleased records released locks
func (c *Collector) RecordLockReleased(count int) {
	c.locksReleased.Add(float64(count))
}

// RecordSubscriptionCreated records a subscription creation
func (c *Collector) RecordSubscriptionCreated() {
	c.subscriptionsCreated.Inc()
}

// RecordSubscriptionDeleted records a subscription deletion
func (c *Collector) RecordSubscriptionDeleted() {
	c.subscriptionsDeleted.Inc()
}

// RecordPushTrigger records the outcome split of one bulk trigger
func (c *Collector) RecordPushTrigger(created, existing int) {
	c.pushTriggersCreated.Add(float64(created))
	c.pushTriggersExisting.Add(float64(existing))
}

// SetQueueDepth sets the current dispatch queue depth
func (c *Collector) SetQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
