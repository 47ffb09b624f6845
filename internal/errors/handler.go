// Package errors provides the task failure reporting chain used by worker pools
package errors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jzx17/prioritypool/pkg/types"
)

// DefaultFailureLogCapacity bounds how many failures a CollectingHandler keeps
const DefaultFailureLogCapacity = 1024

// ErrorHandler defines a task failure handling interface
type ErrorHandler interface {
	// HandleError handles the failure, returns an error if the handler itself failed
	HandleError(ctx context.Context, errCtx *ErrorContext) error

	// Name returns the name of the error handler
	Name() string
}

// ErrorContext defines context information when a task fails
type ErrorContext struct {
	// Error that occurred, usually a *types.TaskError
	Error error

	// TaskID of the failed task
	TaskID string

	// Priority of the failed task
	Priority types.Priority

	// WorkerID of the worker that ran the task
	WorkerID int

	// Timestamp when the failure was observed
	Timestamp time.Time

	// Duration the body ran before failing
	Duration time.Duration
}

// NewErrorContext creates a new error context from a task error
func NewErrorContext(taskErr *types.TaskError, timestamp time.Time, duration time.Duration) *ErrorContext {
	return &ErrorContext{
		Error:     taskErr,
		TaskID:    taskErr.TaskID,
		Priority:  taskErr.Priority,
		WorkerID:  taskErr.WorkerID,
		Timestamp: timestamp,
		Duration:  duration,
	}
}

// LoggingHandler writes every failure to a zap logger
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a logging handler, nil logger discards output
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingHandler{logger: logger}
}

// HandleError implements the ErrorHandler interface
func (h *LoggingHandler) HandleError(ctx context.Context, errCtx *ErrorContext) error {
	fields := []zap.Field{
		zap.String("task_id", errCtx.TaskID),
		zap.Stringer("priority", errCtx.Priority),
		zap.Int("worker_id", errCtx.WorkerID),
		zap.Duration("duration", errCtx.Duration),
		zap.Error(errCtx.Error),
	}

	if taskErr, ok := errCtx.Error.(*types.TaskError); ok && taskErr.Panicked() {
		fields = append(fields, zap.String("stack_trace", taskErr.Stack()))
		h.logger.Error("task panicked", fields...)
		return nil
	}

	h.logger.Warn("task failed", fields...)
	return nil
}

// Name returns the handler name
func (h *LoggingHandler) Name() string {
	return "Logging"
}

// CollectingHandler keeps the most recent failures in memory
type CollectingHandler struct {
	capacity int
	dropped  int64
	failures []*types.TaskError
	mu       sync.RWMutex
}

// NewCollectingHandler creates a collecting handler holding at most capacity failures.
// A non-positive capacity selects DefaultFailureLogCapacity.
func NewCollectingHandler(capacity int) *CollectingHandler {
	if capacity <= 0 {
		capacity = DefaultFailureLogCapacity
	}
	return &CollectingHandler{capacity: capacity}
}

// HandleError implements the ErrorHandler interface
func (h *CollectingHandler) HandleError(ctx context.Context, errCtx *ErrorContext) error {
	taskErr, ok := errCtx.Error.(*types.TaskError)
	if !ok {
		taskErr = types.NewTaskError(errCtx.TaskID, errCtx.Priority, errCtx.WorkerID, errCtx.Error)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.failures) == h.capacity {
		// oldest entry goes first
		copy(h.failures, h.failures[1:])
		h.failures = h.failures[:len(h.failures)-1]
		h.dropped++
	}
	h.failures = append(h.failures, taskErr)
	return nil
}

// Name returns the handler name
func (h *CollectingHandler) Name() string {
	return "Collecting"
}

// Failures returns a copy of the collected failures, oldest first
func (h *CollectingHandler) Failures() []*types.TaskError {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*types.TaskError, len(h.failures))
	copy(out, h.failures)
	return out
}

// Dropped returns how many failures were evicted to respect the capacity
func (h *CollectingHandler) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Err combines the collected failures, nil when there are none
func (h *CollectingHandler) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var err error
	for _, f := range h.failures {
		err = multierr.Append(err, f)
	}
	return err
}

// CallbackHandler adapts a types.ErrorHandler function
type CallbackHandler struct {
	fn types.ErrorHandler
}

// NewCallbackHandler wraps fn; a nil fn yields a handler that does nothing
func NewCallbackHandler(fn types.ErrorHandler) *CallbackHandler {
	return &CallbackHandler{fn: fn}
}

// HandleError implements the ErrorHandler interface
func (h *CallbackHandler) HandleError(ctx context.Context, errCtx *ErrorContext) (err error) {
	if h.fn == nil {
		return nil
	}

	// a panicking callback must not take the worker down with it
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error callback panicked: %v", r)
		}
	}()

	return h.fn(errCtx.Error)
}

// Name returns the handler name
func (h *CallbackHandler) Name() string {
	return "Callback"
}

// HandlerChain runs every handler in order
type HandlerChain struct {
	handlers []ErrorHandler
}

// NewHandlerChain creates a chain, nil handlers are skipped
func NewHandlerChain(handlers ...ErrorHandler) *HandlerChain {
	chain := &HandlerChain{}
	for _, h := range handlers {
		if h != nil {
			chain.handlers = append(chain.handlers, h)
		}
	}
	return chain
}

// HandleError runs all handlers and combines their errors.
// Every handler sees the failure even if an earlier one fails.
func (c *HandlerChain) HandleError(ctx context.Context, errCtx *ErrorContext) error {
	var err error
	for _, h := range c.handlers {
		if herr := h.HandleError(ctx, errCtx); herr != nil {
			err = multierr.Append(err, fmt.Errorf("handler %s: %w", h.Name(), herr))
		}
	}
	return err
}

// Name returns the handler name
func (c *HandlerChain) Name() string {
	return "Chain"
}

// Len returns the number of handlers in the chain
func (c *HandlerChain) Len() int {
	return len(c.handlers)
}
