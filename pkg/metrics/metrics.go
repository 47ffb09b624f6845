// Package metrics provides Prometheus instrumentation for priority worker pools.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "prioritypool"
	subsystem = "worker_pool"
)

// Registry holds all metric instances for pools sharing one registerer.
// Every vector is labelled by pool name; task vectors also by priority.
type Registry struct {
	TasksSubmitted *prometheus.CounterVec
	TasksRejected  *prometheus.CounterVec
	TasksCompleted *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TasksAbandoned *prometheus.CounterVec

	TaskWaitDuration      *prometheus.HistogramVec
	TaskExecutionDuration *prometheus.HistogramVec

	PoolSize     *prometheus.GaugeVec
	ActiveWorker *prometheus.GaugeVec
	QueuedTasks  *prometheus.GaugeVec
	RunningTasks *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_submitted_total",
				Help:      "Total number of tasks admitted into the pool",
			},
			[]string{"pool", "priority"},
		),

		TasksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_rejected_total",
				Help:      "Total number of tasks refused because the pool was stopping",
			},
			[]string{"pool", "priority"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_completed_total",
				Help:      "Total number of tasks that finished without error",
			},
			[]string{"pool", "priority"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that returned an error or panicked",
			},
			[]string{"pool", "priority"},
		),

		TasksAbandoned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_abandoned_total",
				Help:      "Total number of queued tasks dropped by an abrupt close",
			},
			[]string{"pool"},
		),

		TaskWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "task_wait_duration_seconds",
				Help:      "Time a task spends queued before a worker starts it",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool", "priority"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "task_execution_duration_seconds",
				Help:      "Time spent running task bodies",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool", "priority"},
		),

		PoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "size",
				Help:      "Number of workers in the pool",
			},
			[]string{"pool"},
		),

		ActiveWorker: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "active_workers",
				Help:      "Number of workers assigned or executing a task",
			},
			[]string{"pool"},
		),

		QueuedTasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "queued_tasks",
				Help:      "Number of admitted tasks not yet dispatched",
			},
			[]string{"pool", "priority"},
		),

		RunningTasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "running_tasks",
				Help:      "Number of tasks currently running",
			},
			[]string{"pool", "priority"},
		),
	}
}

// Recorder binds a Registry to one pool name. A nil *Recorder discards everything.
type Recorder struct {
	registry *Registry
	pool     string
}

// NewRecorder returns a recorder for the named pool, or nil when registry is nil.
func NewRecorder(registry *Registry, pool string) *Recorder {
	if registry == nil {
		return nil
	}
	return &Recorder{registry: registry, pool: pool}
}

// SetPoolSize records the fixed worker count.
func (r *Recorder) SetPoolSize(n int) {
	if r == nil {
		return
	}
	r.registry.PoolSize.WithLabelValues(r.pool).Set(float64(n))
}

// Submitted records an admitted task.
func (r *Recorder) Submitted(priority string) {
	if r == nil {
		return
	}
	r.registry.TasksSubmitted.WithLabelValues(r.pool, priority).Inc()
	r.registry.QueuedTasks.WithLabelValues(r.pool, priority).Inc()
}

// Rejected records a task refused by a stopping pool.
func (r *Recorder) Rejected(priority string) {
	if r == nil {
		return
	}
	r.registry.TasksRejected.WithLabelValues(r.pool, priority).Inc()
}

// Started records the dispatch of a task after it waited for wait.
func (r *Recorder) Started(priority string, wait time.Duration) {
	if r == nil {
		return
	}
	r.registry.QueuedTasks.WithLabelValues(r.pool, priority).Dec()
	r.registry.RunningTasks.WithLabelValues(r.pool, priority).Inc()
	r.registry.TaskWaitDuration.WithLabelValues(r.pool, priority).Observe(wait.Seconds())
}

// Finished records the end of a task body.
func (r *Recorder) Finished(priority string, took time.Duration, failed bool) {
	if r == nil {
		return
	}
	r.registry.RunningTasks.WithLabelValues(r.pool, priority).Dec()
	r.registry.TaskExecutionDuration.WithLabelValues(r.pool, priority).Observe(took.Seconds())
	if failed {
		r.registry.TasksFailed.WithLabelValues(r.pool, priority).Inc()
	} else {
		r.registry.TasksCompleted.WithLabelValues(r.pool, priority).Inc()
	}
}

// Abandoned records queued tasks dropped by Close.
func (r *Recorder) Abandoned(priority string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.registry.TasksAbandoned.WithLabelValues(r.pool).Add(float64(n))
	r.registry.QueuedTasks.WithLabelValues(r.pool, priority).Sub(float64(n))
}

// SetActiveWorkers records the number of busy workers.
func (r *Recorder) SetActiveWorkers(n int) {
	if r == nil {
		return
	}
	r.registry.ActiveWorker.WithLabelValues(r.pool).Set(float64(n))
}
