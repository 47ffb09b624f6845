package worker

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/prioritypool/pkg/types"
)

func TestNewTask(t *testing.T) {
	called := false
	task := NewTask(func() error {
		called = true
		return nil
	})

	_, err := uuid.Parse(task.ID())
	assert.NoError(t, err, "default task ids are uuids")
	assert.Equal(t, types.PriorityNormal, task.Priority())
	assert.False(t, task.IsRunning())

	// Execute task
	err = task.Execute()
	assert.NoError(t, err)
	assert.True(t, called)
	assert.True(t, task.IsRunning())
}

func TestNewTaskWithPriority(t *testing.T) {
	task := NewTaskWithPriority(func() error { return nil }, types.PriorityHigh)

	assert.NotEmpty(t, task.ID())
	assert.Equal(t, types.PriorityHigh, task.Priority())
}

func TestNewTaskWithID(t *testing.T) {
	customID := "custom-task-123"
	task := NewTaskWithID(customID, func() error { return nil }, types.PriorityLow)

	assert.Equal(t, customID, task.ID())
	assert.Equal(t, types.PriorityLow, task.Priority())
	assert.Equal(t, "custom-task-123(low)", task.String())
}

func TestTaskIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewTask(nil).ID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestTask_Execute(t *testing.T) {
	bodyErr := fmt.Errorf("task failed")

	tests := []struct {
		name      string
		fn        func() error
		expectErr error
	}{
		{
			name:      "successful execution",
			fn:        func() error { return nil },
			expectErr: nil,
		},
		{
			name:      "failed execution",
			fn:        func() error { return bodyErr },
			expectErr: bodyErr,
		},
		{
			name:      "nil function",
			fn:        nil,
			expectErr: types.ErrNoExecutionFunction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask(tt.fn)
			err := task.Execute()

			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, task.IsRunning(), "running is set even when the body fails")
		})
	}
}

func TestTask_ExecuteRunsBodyOnce(t *testing.T) {
	var calls int32
	task := NewTask(func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	require.NoError(t, task.Execute())
	err := task.Execute()

	assert.ErrorIs(t, err, types.ErrTaskAlreadyExecuted)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTask_RunningVisibleInsideBody(t *testing.T) {
	var task *Task
	var runningInBody bool
	task = NewTask(func() error {
		runningInBody = task.IsRunning()
		return nil
	})

	require.NoError(t, task.Execute())
	assert.True(t, runningInBody)
}

func TestTask_ExecuteDoesNotRecoverPanics(t *testing.T) {
	task := NewTask(func() error { panic("boom") })

	assert.PanicsWithValue(t, "boom", func() { _ = task.Execute() })
	assert.True(t, task.IsRunning())
}

func TestAction(t *testing.T) {
	called := false
	work := Action(func() { called = true })

	require.NotNil(t, work)
	assert.NoError(t, work())
	assert.True(t, called)

	assert.Nil(t, Action(nil))
	err := NewTask(Action(nil)).Execute()
	assert.True(t, errors.Is(err, types.ErrNoExecutionFunction))
}
