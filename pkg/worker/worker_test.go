package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/prioritypool/internal/testutils"
	"github.com/jzx17/prioritypool/pkg/types"
)

func TestNewWorker(t *testing.T) {
	w := newWorker(1, testutils.NewMockClock(t))
	assert.Equal(t, 1, w.ID())
	assert.Equal(t, WorkerStateIdle, w.State())
}

func TestWorkerState(t *testing.T) {
	tests := []struct {
		state    WorkerState
		expected string
	}{
		{WorkerStateIdle, "idle"},
		{WorkerStateAssigned, "assigned"},
		{WorkerStateWorking, "working"},
		{WorkerStateStopped, "stopped"},
		{WorkerState(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestWorker_TryAssign(t *testing.T) {
	w := newWorker(0, testutils.NewMockClock(t))

	require.True(t, w.tryAssign())
	assert.Equal(t, WorkerStateAssigned, w.State())
	assert.Len(t, w.wake, 1)

	assert.False(t, w.tryAssign(), "an assigned worker cannot be assigned again")
	assert.Len(t, w.wake, 1)

	w.setState(WorkerStateWorking)
	assert.False(t, w.tryAssign())
}

func TestWorker_ExecuteTask(t *testing.T) {
	w := newWorker(3, testutils.NewMockClock(t))

	t.Run("Success", func(t *testing.T) {
		taskErr := w.executeTask(NewTask(func() error { return nil }))
		assert.Nil(t, taskErr)
	})

	t.Run("ReturnedError", func(t *testing.T) {
		cause := errors.New("task error")
		task := NewTaskWithID("failing", func() error { return cause }, types.PriorityHigh)

		taskErr := w.executeTask(task)
		require.NotNil(t, taskErr)
		assert.ErrorIs(t, taskErr, cause)
		assert.Equal(t, "failing", taskErr.TaskID)
		assert.Equal(t, types.PriorityHigh, taskErr.Priority)
		assert.Equal(t, 3, taskErr.WorkerID)
		assert.False(t, taskErr.Panicked())
	})

	t.Run("PanicString", func(t *testing.T) {
		taskErr := w.executeTask(NewTask(func() error { panic("test panic") }))
		require.NotNil(t, taskErr)
		assert.True(t, taskErr.Panicked())
		assert.Contains(t, taskErr.Error(), "test panic")
		assert.NotEmpty(t, taskErr.Stack())
	})

	t.Run("PanicError", func(t *testing.T) {
		cause := errors.New("panic value")
		taskErr := w.executeTask(NewTask(func() error { panic(cause) }))
		require.NotNil(t, taskErr)
		assert.True(t, taskErr.Panicked())
		assert.ErrorIs(t, taskErr, cause)
	})
}

func TestWorkerStats(t *testing.T) {
	stats := WorkerStats{
		ID:             1,
		State:          WorkerStateWorking,
		TotalProcessed: 8,
		TotalFailed:    2,
		LastTaskTime:   time.Now(),
	}

	assert.True(t, stats.IsActive())
	assert.False(t, stats.IsIdle())
	assert.InDelta(t, 0.8, stats.GetSuccessRate(), 0.001)
	assert.InDelta(t, 0.2, stats.GetErrorRate(), 0.001)

	empty := WorkerStats{State: WorkerStateIdle}
	assert.True(t, empty.IsIdle())
	assert.Zero(t, empty.GetSuccessRate())
	assert.Zero(t, empty.GetErrorRate())
	assert.True(t, newWorker(0, testutils.NewMockClock(t)).Stats().LastTaskTime.IsZero())
}
