package worker

import "github.com/jzx17/prioritypool/pkg/types"

const (
	// throttleMinWorkers is the smallest pool size that applies the high/normal ratio
	throttleMinWorkers = 4

	// throttleRatio is the number of running high tasks allowed per running normal task
	throttleRatio = 3
)

// selectTask picks the next task to run from tasks, in admission order.
//
// High goes first, except that in pools of at least throttleMinWorkers workers
// a waiting normal task is preferred once running high tasks reach
// throttleRatio times (running normal + 1). Normal goes next, then low.
// Returns nil when no waiting task exists.
func selectTask(tasks []*Task, workerCount int) *Task {
	var firstHigh, firstNormal, firstLow *Task
	var runningHigh, runningNormal int

	for _, t := range tasks {
		if t.IsRunning() {
			switch t.priority {
			case types.PriorityHigh:
				runningHigh++
			case types.PriorityNormal:
				runningNormal++
			}
			continue
		}

		switch t.priority {
		case types.PriorityHigh:
			if firstHigh == nil {
				firstHigh = t
			}
		case types.PriorityNormal:
			if firstNormal == nil {
				firstNormal = t
			}
		case types.PriorityLow:
			if firstLow == nil {
				firstLow = t
			}
		}
	}

	if firstHigh != nil {
		if workerCount >= throttleMinWorkers && firstNormal != nil && !highAllowed(runningHigh, runningNormal) {
			return firstNormal
		}
		return firstHigh
	}
	if firstNormal != nil {
		return firstNormal
	}
	return firstLow
}

// highAllowed reports whether another high task fits under the ratio
func highAllowed(runningHigh, runningNormal int) bool {
	return runningHigh < throttleRatio*(runningNormal+1)
}
