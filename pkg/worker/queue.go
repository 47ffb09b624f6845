package worker

import (
	"sync"
	"time"

	"github.com/jzx17/prioritypool/pkg/types"
)

// taskQueue holds admitted tasks in admission order until they finish.
// Running tasks stay in the queue so the selector can see the running mix.
type taskQueue struct {
	mu          sync.Mutex
	tasks       []*Task
	workerCount int

	// wait statistics, updated on claim
	dispatched int64
	totalWait  time.Duration
	maxWait    time.Duration
}

func newTaskQueue(workerCount int) *taskQueue {
	return &taskQueue{
		tasks:       make([]*Task, 0, workerCount),
		workerCount: workerCount,
	}
}

// add appends an admitted task
func (q *taskQueue) add(task *Task, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task.submitTime = now
	q.tasks = append(q.tasks, task)
}

// claim selects the next task and marks it running in one critical section.
// It returns nil when nothing is runnable; more reports whether runnable tasks remain.
func (q *taskQueue) claim(now time.Time) (task *Task, wait time.Duration, more bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task = selectTask(q.tasks, q.workerCount)
	if task == nil {
		return nil, 0, false
	}
	task.markRunning()

	wait = now.Sub(task.submitTime)
	if wait < 0 {
		wait = 0
	}
	q.dispatched++
	q.totalWait += wait
	if wait > q.maxWait {
		q.maxWait = wait
	}

	return task, wait, q.hasRunnableLocked()
}

// remove deletes a finished task and returns the remaining queue length
func (q *taskQueue) remove(task *Task) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, t := range q.tasks {
		if t == task {
			copy(q.tasks[i:], q.tasks[i+1:])
			q.tasks[len(q.tasks)-1] = nil
			q.tasks = q.tasks[:len(q.tasks)-1]
			break
		}
	}
	return len(q.tasks)
}

// abandon removes every waiting task and returns them
func (q *taskQueue) abandon() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dropped []*Task
	kept := q.tasks[:0]
	for _, t := range q.tasks {
		if t.IsRunning() {
			kept = append(kept, t)
		} else {
			dropped = append(dropped, t)
		}
	}
	for i := len(kept); i < len(q.tasks); i++ {
		q.tasks[i] = nil
	}
	q.tasks = kept
	return dropped
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *taskQueue) hasRunnable() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hasRunnableLocked()
}

func (q *taskQueue) hasRunnableLocked() bool {
	return selectTask(q.tasks, q.workerCount) != nil
}

// queueSnapshot is a point-in-time view of the queue
type queueSnapshot struct {
	length     int
	waiting    map[types.Priority]int
	running    map[types.Priority]int
	dispatched int64
	totalWait  time.Duration
	maxWait    time.Duration
}

func (q *taskQueue) snapshot() queueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := queueSnapshot{
		length:     len(q.tasks),
		waiting:    make(map[types.Priority]int, len(types.Priorities)),
		running:    make(map[types.Priority]int, len(types.Priorities)),
		dispatched: q.dispatched,
		totalWait:  q.totalWait,
		maxWait:    q.maxWait,
	}
	for _, p := range types.Priorities {
		s.waiting[p] = 0
		s.running[p] = 0
	}
	for _, t := range q.tasks {
		if t.IsRunning() {
			s.running[t.priority]++
		} else {
			s.waiting[t.priority]++
		}
	}
	return s
}
