// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrInvalidWorkerCount indicates a non-positive worker count
	ErrInvalidWorkerCount = errors.New("worker count must be positive")

	// ErrNilTask indicates a nil task was submitted
	ErrNilTask = errors.New("task cannot be nil")

	// ErrTaskAlreadySubmitted indicates a task was admitted to a pool before
	ErrTaskAlreadySubmitted = errors.New("task was already submitted")

	// ErrInvalidPriority indicates an unknown priority level
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrNoExecutionFunction indicates a task without a body
	ErrNoExecutionFunction = errors.New("task has no execution function")

	// ErrTaskExited is the cause of a TaskError for a body that called runtime.Goexit
	ErrTaskExited = errors.New("task exited its goroutine")

	// ErrTaskAlreadyExecuted indicates a second attempt to run a task body
	ErrTaskAlreadyExecuted = errors.New("task was already executed")

	// ErrPoolClosed indicates the pool resources were already released
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrTaskPanicked is the cause of a TaskError built from a recovered panic
	ErrTaskPanicked = errors.New("task panicked")
)

// TaskError represents a failure of a task body inside a worker
type TaskError struct {
	// TaskID is the ID of the failed task
	TaskID string

	// Priority is the priority of the failed task
	Priority Priority

	// WorkerID identifies the worker that ran the task
	WorkerID int

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// NewTaskError creates a new task error
func NewTaskError(taskID string, priority Priority, workerID int, cause error) *TaskError {
	return &TaskError{
		TaskID:   taskID,
		Priority: priority,
		WorkerID: workerID,
		Cause:    cause,
		Context:  make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s (%s) failed on worker %d: %v", e.TaskID, e.Priority, e.WorkerID, e.Cause)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *TaskError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// WithContext adds error context
func (e *TaskError) WithContext(key string, value interface{}) *TaskError {
	e.Context[key] = value
	return e
}

// Panicked reports whether the failure came from a recovered panic
func (e *TaskError) Panicked() bool {
	return errors.Is(e.Cause, ErrTaskPanicked)
}

// Stack returns the captured stack trace, if any
func (e *TaskError) Stack() string {
	if s, ok := e.Context["stack_trace"].(string); ok {
		return s
	}
	return ""
}
