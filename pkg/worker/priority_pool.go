// Package worker provides priority worker pool implementation
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	perrors "github.com/jzx17/prioritypool/internal/errors"
	"github.com/jzx17/prioritypool/pkg/metrics"
	"github.com/jzx17/prioritypool/pkg/types"
)

// PriorityWorkerPoolConfig contains configuration for priority worker pool
type PriorityWorkerPoolConfig struct {
	// PoolSize is the number of workers in the pool
	PoolSize int

	// Name identifies the pool in logs and metric labels
	Name string

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger receives lifecycle events and task failures (optional)
	Logger *zap.Logger

	// Tracer starts one span per task execution (optional)
	Tracer trace.Tracer

	// Metrics records pool instrumentation (optional)
	Metrics *metrics.Registry

	// ErrorHandler is called with every task failure
	ErrorHandler types.ErrorHandler

	// FailureLogCapacity bounds the failures kept for Failures and Err
	FailureLogCapacity int
}

// DefaultPriorityWorkerPoolConfig returns default configuration
func DefaultPriorityWorkerPoolConfig() *PriorityWorkerPoolConfig {
	return &PriorityWorkerPoolConfig{
		PoolSize:           runtime.NumCPU(),
		Name:               "default",
		Clock:              types.NewRealClock(),
		Logger:             zap.NewNop(),
		Tracer:             noop.NewTracerProvider().Tracer(""),
		FailureLogCapacity: perrors.DefaultFailureLogCapacity,
	}
}

// PriorityWorkerPool runs tasks on a fixed set of workers, highest priority first.
// With four or more workers, running high tasks are held to about three per
// running normal task while normal tasks wait.
type PriorityWorkerPool struct {
	config  PriorityWorkerPoolConfig
	workers []*Worker
	queue   *taskQueue

	clock   types.Clock
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *metrics.Recorder

	failures   *perrors.CollectingHandler
	errorChain *perrors.HandlerChain

	// schedule is the coalescing schedule-pending flag
	schedule chan struct{}
	// drained is raised when the last task leaves the queue of a stopping pool
	drained chan struct{}

	stopMu   sync.Mutex
	stopping bool

	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
	closed    chan struct{}
	// abrupt is set before closed is closed when Close did the release
	abrupt bool

	// activeMu serializes counting and publishing the active worker gauge
	activeMu sync.Mutex

	// statistics
	totalSubmitted      int64
	totalRejected       int64
	totalCompleted      int64
	totalFailed         int64
	completedByPriority [3]int64
}

// NewPriorityWorkerPool creates a priority worker pool and starts its workers
func NewPriorityWorkerPool(config *PriorityWorkerPoolConfig) (*PriorityWorkerPool, error) {
	defaults := DefaultPriorityWorkerPoolConfig()
	if config == nil {
		config = defaults
	}

	// Validate parameters
	if config.PoolSize <= 0 {
		return nil, fmt.Errorf("%w, got %d", types.ErrInvalidWorkerCount, config.PoolSize)
	}

	cfg := *config
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.Clock == nil {
		cfg.Clock = defaults.Clock
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}
	if cfg.Tracer == nil {
		cfg.Tracer = defaults.Tracer
	}

	logger := cfg.Logger.Named("prioritypool").With(zap.String("pool", cfg.Name))
	failures := perrors.NewCollectingHandler(cfg.FailureLogCapacity)

	pool := &PriorityWorkerPool{
		config:   cfg,
		workers:  make([]*Worker, cfg.PoolSize),
		queue:    newTaskQueue(cfg.PoolSize),
		clock:    cfg.Clock,
		logger:   logger,
		tracer:   cfg.Tracer,
		metrics:  metrics.NewRecorder(cfg.Metrics, cfg.Name),
		failures: failures,
		errorChain: perrors.NewHandlerChain(
			perrors.NewLoggingHandler(logger),
			failures,
			perrors.NewCallbackHandler(cfg.ErrorHandler),
		),
		schedule: make(chan struct{}, 1),
		drained:  make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool.group, pool.ctx = errgroup.WithContext(ctx)
	pool.cancel = cancel

	for i := range pool.workers {
		w := newWorker(i, cfg.Clock)
		pool.workers[i] = w
		pool.group.Go(func() error {
			return w.run(pool.ctx, pool)
		})
	}
	pool.group.Go(func() error {
		return pool.runScheduler(pool.ctx)
	})

	pool.metrics.SetPoolSize(cfg.PoolSize)
	logger.Info("worker pool started", zap.Int("pool_size", cfg.PoolSize))

	return pool, nil
}

// Execute admits a task. It returns false with a nil error when the pool is stopping.
func (p *PriorityWorkerPool) Execute(task *Task) (bool, error) {
	if task == nil {
		return false, types.ErrNilTask
	}
	if !task.Priority().Valid() {
		return false, fmt.Errorf("%w: %d", types.ErrInvalidPriority, task.Priority())
	}

	p.stopMu.Lock()
	defer p.stopMu.Unlock()

	if p.stopping {
		atomic.AddInt64(&p.totalRejected, 1)
		p.metrics.Rejected(task.Priority().String())
		p.logger.Debug("task rejected, pool is stopping", zap.String("task_id", task.ID()))
		return false, nil
	}
	if !task.admitted.CompareAndSwap(false, true) {
		return false, fmt.Errorf("%w: %s", types.ErrTaskAlreadySubmitted, task.ID())
	}

	p.metrics.Submitted(task.Priority().String())
	p.queue.add(task, p.clock.Now())
	atomic.AddInt64(&p.totalSubmitted, 1)
	p.signalSchedule()

	return true, nil
}

// ExecuteRange admits every task in order and reports whether all were admitted.
// It is not transactional: a rejected task does not stop the rest from being tried.
func (p *PriorityWorkerPool) ExecuteRange(tasks []*Task) (bool, error) {
	all := true
	var errs error
	for i, task := range tasks {
		ok, err := p.Execute(task)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("task %d: %w", i, err))
		}
		if !ok {
			all = false
		}
	}
	return all, errs
}

// Stop rejects new tasks, waits until every admitted task has finished, then releases workers
func (p *PriorityWorkerPool) Stop() error {
	return p.Shutdown(context.Background())
}

// Shutdown is Stop bounded by ctx. If ctx ends first the pool stays stopping
// and keeps draining; a later Stop or Close finishes the teardown.
func (p *PriorityWorkerPool) Shutdown(ctx context.Context) error {
	if p.markStopping() {
		p.logger.Info("worker pool stopping", zap.Int("queued", p.queue.len()))
	}

	for p.queue.len() > 0 {
		select {
		case <-p.drained:
		case <-ctx.Done():
			// the drain may have finished at the same moment
			if p.queue.len() > 0 {
				return ctx.Err()
			}
		case <-p.closed:
			// another caller released the pool; only Close abandons the drain
			if p.abrupt {
				return types.ErrPoolClosed
			}
			return nil
		}
	}

	p.release(false)
	return nil
}

// Close stops the pool without draining. Running tasks finish; waiting tasks are abandoned.
func (p *PriorityWorkerPool) Close() error {
	p.markStopping()
	p.release(true)
	return nil
}

// markStopping sets the stopping flag and reports whether this call set it
func (p *PriorityWorkerPool) markStopping() bool {
	p.stopMu.Lock()
	defer p.stopMu.Unlock()

	if p.stopping {
		return false
	}
	p.stopping = true
	return true
}

// release tears the pool down exactly once. abrupt marks a release by Close.
func (p *PriorityWorkerPool) release(abrupt bool) {
	p.closeOnce.Do(func() {
		p.abrupt = abrupt
		p.cancel()
		if err := p.group.Wait(); err != nil {
			p.logger.Error("worker pool goroutine failed", zap.Error(err))
		}
		p.updateActiveWorkers()

		abandoned := p.queue.abandon()
		if len(abandoned) > 0 {
			byPriority := make(map[types.Priority]int, len(types.Priorities))
			for _, t := range abandoned {
				byPriority[t.Priority()]++
			}
			for priority, n := range byPriority {
				p.metrics.Abandoned(priority.String(), n)
			}
			p.logger.Warn("worker pool closed with queued tasks", zap.Int("abandoned", len(abandoned)))
		}

		close(p.closed)
		p.logger.Info("worker pool stopped",
			zap.Int64("completed", atomic.LoadInt64(&p.totalCompleted)),
			zap.Int64("failed", atomic.LoadInt64(&p.totalFailed)),
		)
	})
}

// taskStarted records the dispatch of a claimed task
func (p *PriorityWorkerPool) taskStarted(task *Task, wait time.Duration) {
	p.metrics.Started(task.Priority().String(), wait)
	p.updateActiveWorkers()
}

// taskFinished records the end of a task body
func (p *PriorityWorkerPool) taskFinished(task *Task, took time.Duration, failed bool) {
	if failed {
		atomic.AddInt64(&p.totalFailed, 1)
	} else {
		atomic.AddInt64(&p.totalCompleted, 1)
	}
	atomic.AddInt64(&p.completedByPriority[task.Priority()], 1)
	p.metrics.Finished(task.Priority().String(), took, failed)
}

// taskRemoved runs after a finished task left the queue and its worker went idle
func (p *PriorityWorkerPool) taskRemoved(remaining int) {
	p.updateActiveWorkers()
	p.rescheduleIfRunnable()

	if remaining == 0 && p.IsStopping() {
		select {
		case p.drained <- struct{}{}:
		default:
		}
	}
}

// reportFailure passes a task failure through the handler chain
func (p *PriorityWorkerPool) reportFailure(ctx context.Context, taskErr *types.TaskError, took time.Duration) {
	errCtx := perrors.NewErrorContext(taskErr, p.clock.Now(), took)
	if err := p.errorChain.HandleError(ctx, errCtx); err != nil {
		p.logger.Warn("error handler failed", zap.String("task_id", taskErr.TaskID), zap.Error(err))
	}
}

// Size returns the number of workers
func (p *PriorityWorkerPool) Size() int {
	return len(p.workers)
}

// QueueLength returns the number of admitted tasks that have not finished
func (p *PriorityWorkerPool) QueueLength() int {
	return p.queue.len()
}

// IsStopping reports whether Stop, Shutdown or Close was called
func (p *PriorityWorkerPool) IsStopping() bool {
	p.stopMu.Lock()
	defer p.stopMu.Unlock()
	return p.stopping
}

// IsClosed reports whether the pool resources were released
func (p *PriorityWorkerPool) IsClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// Stats returns worker pool statistics
func (p *PriorityWorkerPool) Stats() types.WorkerPoolStats {
	snapshot := p.queue.snapshot()

	waiting := 0
	for _, n := range snapshot.waiting {
		waiting += n
	}

	return types.WorkerPoolStats{
		PoolSize:       len(p.workers),
		ActiveWorkers:  p.activeWorkers(),
		QueueSize:      snapshot.length,
		WaitingTasks:   waiting,
		TotalSubmitted: atomic.LoadInt64(&p.totalSubmitted),
		TotalRejected:  atomic.LoadInt64(&p.totalRejected),
		TotalCompleted: atomic.LoadInt64(&p.totalCompleted),
		TotalFailed:    atomic.LoadInt64(&p.totalFailed),
	}
}

// GetPriorityStats returns per-priority statistics
func (p *PriorityWorkerPool) GetPriorityStats() types.PriorityStats {
	snapshot := p.queue.snapshot()

	completed := make(map[types.Priority]int64, len(types.Priorities))
	for _, priority := range types.Priorities {
		completed[priority] = atomic.LoadInt64(&p.completedByPriority[priority])
	}

	var avg time.Duration
	if snapshot.dispatched > 0 {
		avg = snapshot.totalWait / time.Duration(snapshot.dispatched)
	}

	return types.PriorityStats{
		WaitingByPriority:   snapshot.waiting,
		RunningByPriority:   snapshot.running,
		CompletedByPriority: completed,
		AverageWaitTime:     avg,
		MaxWaitTime:         snapshot.maxWait,
	}
}

// GetWorkerStats returns the statistics of every worker, by index
func (p *PriorityWorkerPool) GetWorkerStats() []WorkerStats {
	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Stats()
	}
	return stats
}

// Failures returns the most recent task failures, oldest first
func (p *PriorityWorkerPool) Failures() []*types.TaskError {
	return p.failures.Failures()
}

// Err combines the recorded task failures, nil when none failed
func (p *PriorityWorkerPool) Err() error {
	return p.failures.Err()
}

var _ types.WorkerPool[*Task] = (*PriorityWorkerPool)(nil)
