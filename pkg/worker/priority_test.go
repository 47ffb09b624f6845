package worker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/prioritypool/pkg/types"
)

func newTestTask(id string, priority types.Priority) *Task {
	return NewTaskWithID(id, func() error { return nil }, priority)
}

// drainSelection claims tasks one by one without finishing any, returning the IDs in order
func drainSelection(q *taskQueue) []string {
	var order []string
	for {
		task, _, _ := q.claim(time.Now())
		if task == nil {
			return order
		}
		order = append(order, task.ID())
	}
}

// TestSelectTask tests the priority selector
func TestSelectTask(t *testing.T) {
	t.Run("EmptyQueue", func(t *testing.T) {
		assert.Nil(t, selectTask(nil, 4))
	})

	t.Run("AllRunning", func(t *testing.T) {
		task := newTestTask("h", types.PriorityHigh)
		task.markRunning()
		assert.Nil(t, selectTask([]*Task{task}, 4))
	})

	t.Run("HighBeforeNormalBeforeLow", func(t *testing.T) {
		tasks := []*Task{
			newTestTask("low", types.PriorityLow),
			newTestTask("normal", types.PriorityNormal),
			newTestTask("high", types.PriorityHigh),
		}
		assert.Equal(t, "high", selectTask(tasks, 1).ID())
	})

	t.Run("AdmissionOrderWithinClass", func(t *testing.T) {
		tasks := []*Task{
			newTestTask("n1", types.PriorityNormal),
			newTestTask("n2", types.PriorityNormal),
		}
		assert.Equal(t, "n1", selectTask(tasks, 4).ID())
	})

	t.Run("LowSkipsRunning", func(t *testing.T) {
		running := newTestTask("l1", types.PriorityLow)
		running.markRunning()
		tasks := []*Task{running, newTestTask("l2", types.PriorityLow)}
		assert.Equal(t, "l2", selectTask(tasks, 2).ID())
	})

	t.Run("ThrottleDisabledBelowFourWorkers", func(t *testing.T) {
		var tasks []*Task
		for i := 0; i < 3; i++ {
			h := newTestTask(fmt.Sprintf("running-h%d", i), types.PriorityHigh)
			h.markRunning()
			tasks = append(tasks, h)
		}
		tasks = append(tasks, newTestTask("n", types.PriorityNormal), newTestTask("h", types.PriorityHigh))
		assert.Equal(t, "h", selectTask(tasks, 3).ID())
	})

	t.Run("ThrottlePrefersNormal", func(t *testing.T) {
		var tasks []*Task
		for i := 0; i < 3; i++ {
			h := newTestTask(fmt.Sprintf("running-h%d", i), types.PriorityHigh)
			h.markRunning()
			tasks = append(tasks, h)
		}
		tasks = append(tasks, newTestTask("h", types.PriorityHigh), newTestTask("n", types.PriorityNormal))
		assert.Equal(t, "n", selectTask(tasks, 4).ID())
	})

	t.Run("ThrottleFallsBackToHighWithoutNormal", func(t *testing.T) {
		var tasks []*Task
		for i := 0; i < 3; i++ {
			h := newTestTask(fmt.Sprintf("running-h%d", i), types.PriorityHigh)
			h.markRunning()
			tasks = append(tasks, h)
		}
		tasks = append(tasks, newTestTask("h", types.PriorityHigh), newTestTask("l", types.PriorityLow))
		assert.Equal(t, "h", selectTask(tasks, 4).ID())
	})
}

func TestHighAllowed(t *testing.T) {
	tests := []struct {
		runningHigh   int
		runningNormal int
		expected      bool
	}{
		{0, 0, true},
		{2, 0, true},
		{3, 0, false},
		{3, 1, true},
		{5, 1, true},
		{6, 1, false},
		{8, 2, true},
		{9, 2, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dH_%dN", tt.runningHigh, tt.runningNormal), func(t *testing.T) {
			assert.Equal(t, tt.expected, highAllowed(tt.runningHigh, tt.runningNormal))
		})
	}
}

// TestSelectionScenarios tests selection sequences with tasks held running
func TestSelectionScenarios(t *testing.T) {
	t.Run("FourWorkersMixed", func(t *testing.T) {
		q := newTaskQueue(4)
		for _, task := range []*Task{
			newTestTask("H1", types.PriorityHigh),
			newTestTask("H2", types.PriorityHigh),
			newTestTask("H3", types.PriorityHigh),
			newTestTask("H4", types.PriorityHigh),
			newTestTask("N1", types.PriorityNormal),
			newTestTask("L1", types.PriorityLow),
		} {
			q.add(task, time.Now())
		}

		assert.Equal(t, []string{"H1", "H2", "H3", "N1", "H4", "L1"}, drainSelection(q))
	})

	t.Run("TwoWorkersHighThenLow", func(t *testing.T) {
		q := newTaskQueue(2)
		q.add(newTestTask("H", types.PriorityHigh), time.Now())
		q.add(newTestTask("L", types.PriorityLow), time.Now())

		assert.Equal(t, []string{"H", "L"}, drainSelection(q))
	})

	t.Run("RatioHeldWhileNormalWaits", func(t *testing.T) {
		q := newTaskQueue(8)
		for i := 0; i < 12; i++ {
			q.add(newTestTask(fmt.Sprintf("H%d", i), types.PriorityHigh), time.Now())
		}
		for i := 0; i < 4; i++ {
			q.add(newTestTask(fmt.Sprintf("N%d", i), types.PriorityNormal), time.Now())
		}

		runningHigh, runningNormal := 0, 0
		for i := 0; i < 16; i++ {
			task, _, _ := q.claim(time.Now())
			require.NotNil(t, task)
			if task.Priority() == types.PriorityHigh {
				runningHigh++
			} else {
				runningNormal++
			}
			if runningNormal < 4 {
				assert.LessOrEqual(t, runningHigh, 3*(runningNormal+1))
			}
		}
	})
}

// TestTaskQueue tests queue bookkeeping
func TestTaskQueue(t *testing.T) {
	t.Run("ClaimReportsMore", func(t *testing.T) {
		q := newTaskQueue(2)
		q.add(newTestTask("a", types.PriorityNormal), time.Now())
		q.add(newTestTask("b", types.PriorityNormal), time.Now())

		task, _, more := q.claim(time.Now())
		require.NotNil(t, task)
		assert.True(t, task.IsRunning())
		assert.True(t, more)

		_, _, more = q.claim(time.Now())
		assert.False(t, more)
		assert.False(t, q.hasRunnable())
		assert.Equal(t, 2, q.len(), "running tasks stay queued until removed")
	})

	t.Run("RemoveReturnsRemaining", func(t *testing.T) {
		q := newTaskQueue(1)
		a := newTestTask("a", types.PriorityNormal)
		b := newTestTask("b", types.PriorityNormal)
		q.add(a, time.Now())
		q.add(b, time.Now())

		assert.Equal(t, 1, q.remove(a))
		assert.Equal(t, 1, q.remove(a), "removing twice is harmless")
		assert.Equal(t, 0, q.remove(b))
	})

	t.Run("WaitStatistics", func(t *testing.T) {
		q := newTaskQueue(1)
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		q.add(newTestTask("a", types.PriorityNormal), start)
		q.add(newTestTask("b", types.PriorityNormal), start)

		q.claim(start.Add(10 * time.Millisecond))
		q.claim(start.Add(30 * time.Millisecond))

		s := q.snapshot()
		assert.Equal(t, int64(2), s.dispatched)
		assert.Equal(t, 40*time.Millisecond, s.totalWait)
		assert.Equal(t, 30*time.Millisecond, s.maxWait)
	})

	t.Run("Snapshot", func(t *testing.T) {
		q := newTaskQueue(4)
		q.add(newTestTask("h", types.PriorityHigh), time.Now())
		q.add(newTestTask("n", types.PriorityNormal), time.Now())
		q.add(newTestTask("l", types.PriorityLow), time.Now())
		q.claim(time.Now())

		s := q.snapshot()
		assert.Equal(t, 3, s.length)
		assert.Equal(t, 1, s.running[types.PriorityHigh])
		assert.Equal(t, 0, s.waiting[types.PriorityHigh])
		assert.Equal(t, 1, s.waiting[types.PriorityNormal])
		assert.Equal(t, 1, s.waiting[types.PriorityLow])
	})

	t.Run("AbandonKeepsRunning", func(t *testing.T) {
		q := newTaskQueue(1)
		q.add(newTestTask("a", types.PriorityNormal), time.Now())
		q.add(newTestTask("b", types.PriorityLow), time.Now())
		q.claim(time.Now())

		dropped := q.abandon()
		require.Len(t, dropped, 1)
		assert.Equal(t, "b", dropped[0].ID())
		assert.Equal(t, 1, q.len())
	})
}
