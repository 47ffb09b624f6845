// Package types defines core interfaces and types for the priority pool
package types

import (
	"context"
	"time"
)

// WorkerPool defines the worker pool interface
type WorkerPool[T any] interface {
	// Execute queues a task. It returns false when the pool is stopping.
	Execute(task T) (bool, error)

	// ExecuteRange queues every task and reports whether all were accepted
	ExecuteRange(tasks []T) (bool, error)

	// Stop rejects new tasks, waits for queued and running tasks, then releases resources
	Stop() error

	// Shutdown is Stop bounded by ctx
	Shutdown(ctx context.Context) error

	// Close releases resources without draining
	Close() error

	// Size returns the number of workers
	Size() int

	// Stats returns worker pool statistics
	Stats() WorkerPoolStats
}

// WorkerPoolStats defines basic statistics for worker pools
type WorkerPoolStats struct {
	// PoolSize is the size of the pool
	PoolSize int

	// ActiveWorkers is the number of workers assigned or executing a task
	ActiveWorkers int

	// QueueSize is the number of admitted tasks, waiting and running
	QueueSize int

	// WaitingTasks is the number of admitted tasks not yet dispatched
	WaitingTasks int

	// TotalSubmitted is the number of admitted tasks since creation
	TotalSubmitted int64

	// TotalRejected is the number of tasks refused because the pool was stopping
	TotalRejected int64

	// TotalCompleted is the number of tasks whose body returned without error
	TotalCompleted int64

	// TotalFailed is the number of tasks whose body returned an error or panicked
	TotalFailed int64
}

// ErrorHandler receives task failures. The returned error is logged, not propagated.
type ErrorHandler func(error) error

// PriorityStats defines per-priority statistics
type PriorityStats struct {
	// WaitingByPriority is the number of queued, not running, tasks per level
	WaitingByPriority map[Priority]int

	// RunningByPriority is the number of running tasks per level
	RunningByPriority map[Priority]int

	// CompletedByPriority is the number of finished tasks per level, failures included
	CompletedByPriority map[Priority]int64

	// Task waiting time statistics
	AverageWaitTime time.Duration
	MaxWaitTime     time.Duration
}
