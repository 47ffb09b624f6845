package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jzx17/prioritypool/pkg/types"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateIdle represents idle worker state
	WorkerStateIdle WorkerState = iota
	// WorkerStateAssigned represents a worker woken by the scheduler that has not started a task
	WorkerStateAssigned
	// WorkerStateWorking represents working worker state
	WorkerStateWorking
	// WorkerStateStopped represents stopped worker state
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateAssigned:
		return "assigned"
	case WorkerStateWorking:
		return "working"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker represents a single worker goroutine
type Worker struct {
	id    int
	state int32 // atomic state

	// wake carries at most one pending dispatch from the scheduler
	wake chan struct{}

	// statistics
	totalProcessed int64
	totalFailed    int64
	lastTaskTime   int64 // Unix nanosecond timestamp

	// time operations
	clock types.Clock
}

func newWorker(id int, clock types.Clock) *Worker {
	return &Worker{
		id:    id,
		state: int32(WorkerStateIdle),
		wake:  make(chan struct{}, 1),
		clock: clock,
	}
}

// ID returns the Worker ID
func (w *Worker) ID() int {
	return w.id
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

func (w *Worker) setState(state WorkerState) {
	atomic.StoreInt32(&w.state, int32(state))
}

// tryAssign moves an idle worker to assigned and wakes it.
// It reports false if the worker was not idle.
func (w *Worker) tryAssign() bool {
	if !atomic.CompareAndSwapInt32(&w.state, int32(WorkerStateIdle), int32(WorkerStateAssigned)) {
		return false
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// run is the worker loop: wait for a wake, claim one task, run it, report completion
func (w *Worker) run(ctx context.Context, p *PriorityWorkerPool) error {
	for {
		select {
		case <-ctx.Done():
			w.setState(WorkerStateStopped)
			return nil
		case <-w.wake:
		}
		if ctx.Err() != nil {
			w.setState(WorkerStateStopped)
			return nil
		}

		task, wait, more := p.queue.claim(p.clock.Now())
		if task == nil {
			// lost the race; recheck so a task admitted meanwhile is not stranded
			w.setState(WorkerStateIdle)
			p.updateActiveWorkers()
			p.rescheduleIfRunnable()
			continue
		}
		if more {
			p.signalSchedule()
		}

		w.runTask(ctx, p, task, wait)
	}
}

// runTask runs a claimed task and removes it from the queue.
// If the body calls runtime.Goexit the task is still accounted for
// and a new goroutine takes over the worker.
func (w *Worker) runTask(ctx context.Context, p *PriorityWorkerPool, task *Task, wait time.Duration) {
	returned := false
	defer func() {
		if !returned {
			atomic.AddInt64(&w.totalFailed, 1)
			p.taskFinished(task, 0, true)
			p.reportFailure(ctx, types.NewTaskError(task.ID(), task.Priority(), w.id, types.ErrTaskExited), 0)
		}

		remaining := p.queue.remove(task)
		w.setState(WorkerStateIdle)
		p.taskRemoved(remaining)

		if !returned {
			p.group.Go(func() error {
				return w.run(ctx, p)
			})
		}
	}()

	w.setState(WorkerStateWorking)
	p.taskStarted(task, wait)
	w.processTask(ctx, p, task)
	returned = true
}

// processTask processes a single task
func (w *Worker) processTask(ctx context.Context, p *PriorityWorkerPool, task *Task) {
	startTime := w.clock.Now()
	atomic.StoreInt64(&w.lastTaskTime, startTime.UnixNano())

	spanCtx, span := p.tracer.Start(ctx, "prioritypool.execute",
		trace.WithAttributes(
			attribute.String("task.id", task.ID()),
			attribute.String("task.priority", task.Priority().String()),
			attribute.Int("worker.id", w.id),
		),
	)
	defer span.End()

	taskErr := w.executeTask(task)
	executionTime := w.clock.Since(startTime)

	failed := taskErr != nil
	if failed {
		atomic.AddInt64(&w.totalFailed, 1)
		span.RecordError(taskErr)
		span.SetStatus(codes.Error, "task failed")
		p.reportFailure(spanCtx, taskErr, executionTime)
	} else {
		atomic.AddInt64(&w.totalProcessed, 1)
	}

	p.taskFinished(task, executionTime, failed)
}

// executeTask executes a task with panic recovery support
func (w *Worker) executeTask(task *Task) (taskErr *types.TaskError) {
	defer func() {
		if r := recover(); r != nil {
			// record panic information
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			var cause error
			switch v := r.(type) {
			case error:
				cause = fmt.Errorf("%w: %w", types.ErrTaskPanicked, v)
			default:
				cause = fmt.Errorf("%w: %v", types.ErrTaskPanicked, v)
			}

			taskErr = types.NewTaskError(task.ID(), task.Priority(), w.id, cause).
				WithContext("stack_trace", string(buf[:n]))
		}
	}()

	if err := task.Execute(); err != nil {
		return types.NewTaskError(task.ID(), task.Priority(), w.id, err)
	}
	return nil
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	var last time.Time
	if ns := atomic.LoadInt64(&w.lastTaskTime); ns != 0 {
		last = time.Unix(0, ns)
	}
	return WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TotalProcessed: atomic.LoadInt64(&w.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
		LastTaskTime:   last,
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID             int
	State          WorkerState
	TotalProcessed int64
	TotalFailed    int64
	LastTaskTime   time.Time
}

// IsActive checks if Worker is assigned or running a task
func (ws WorkerStats) IsActive() bool {
	return ws.State == WorkerStateAssigned || ws.State == WorkerStateWorking
}

// IsIdle checks if Worker is idle
func (ws WorkerStats) IsIdle() bool {
	return ws.State == WorkerStateIdle
}

// GetSuccessRate gets the success rate
func (ws WorkerStats) GetSuccessRate() float64 {
	total := ws.TotalProcessed + ws.TotalFailed
	if total == 0 {
		return 0
	}
	return float64(ws.TotalProcessed) / float64(total)
}

// GetErrorRate gets the error rate
func (ws WorkerStats) GetErrorRate() float64 {
	total := ws.TotalProcessed + ws.TotalFailed
	if total == 0 {
		return 0
	}
	return float64(ws.TotalFailed) / float64(total)
}
