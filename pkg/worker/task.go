// Package worker provides worker pool implementations
package worker

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jzx17/prioritypool/pkg/types"
)

// Task is a priority-tagged unit of work whose body runs at most once
type Task struct {
	id       string
	priority types.Priority
	work     func() error

	// running flips to true when the task is handed to a worker and never resets
	running atomic.Bool
	// executed guards the body against a second invocation
	executed atomic.Bool
	// admitted is set once the task enters a pool queue
	admitted atomic.Bool

	// submitTime is written at admission, under the queue lock
	submitTime time.Time
}

// NewTask creates a task with normal priority
func NewTask(work func() error) *Task {
	return NewTaskWithPriority(work, types.PriorityNormal)
}

// NewTaskWithPriority creates a task with the given priority
func NewTaskWithPriority(work func() error, priority types.Priority) *Task {
	return NewTaskWithID(uuid.NewString(), work, priority)
}

// NewTaskWithID creates a task with a caller supplied ID
func NewTaskWithID(id string, work func() error, priority types.Priority) *Task {
	return &Task{
		id:       id,
		priority: priority,
		work:     work,
	}
}

// Action adapts a function without a result to a task body
func Action(fn func()) func() error {
	if fn == nil {
		return nil
	}
	return func() error {
		fn()
		return nil
	}
}

// ID returns the task ID
func (t *Task) ID() string {
	return t.id
}

// Priority returns the task priority, fixed at creation
func (t *Task) Priority() types.Priority {
	return t.priority
}

// IsRunning reports whether the task was handed to a worker
func (t *Task) IsRunning() bool {
	return t.running.Load()
}

// Execute marks the task running and invokes its body synchronously.
// Errors and panics from the body are not intercepted.
func (t *Task) Execute() error {
	t.markRunning()

	if !t.executed.CompareAndSwap(false, true) {
		return fmt.Errorf("task %s: %w", t.id, types.ErrTaskAlreadyExecuted)
	}
	if t.work == nil {
		return fmt.Errorf("task %s: %w", t.id, types.ErrNoExecutionFunction)
	}
	return t.work()
}

// String implements fmt.Stringer
func (t *Task) String() string {
	return fmt.Sprintf("%s(%s)", t.id, t.priority)
}

// markRunning sets the running flag, reporting whether this call set it
func (t *Task) markRunning() bool {
	return t.running.CompareAndSwap(false, true)
}
