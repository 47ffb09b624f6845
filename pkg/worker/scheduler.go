package worker

import "context"

// runScheduler wakes one idle worker per schedule signal until ctx is done
func (p *PriorityWorkerPool) runScheduler(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.schedule:
		}
		p.dispatch()
	}
}

// dispatch assigns the first idle worker in index order.
// It reports false when every worker is busy.
func (p *PriorityWorkerPool) dispatch() bool {
	for _, w := range p.workers {
		if w.tryAssign() {
			p.updateActiveWorkers()
			return true
		}
	}
	return false
}

// signalSchedule raises the schedule-pending flag. Signals coalesce.
func (p *PriorityWorkerPool) signalSchedule() {
	select {
	case p.schedule <- struct{}{}:
	default:
	}
}

// rescheduleIfRunnable raises the schedule-pending flag when a waiting task can start
func (p *PriorityWorkerPool) rescheduleIfRunnable() {
	if p.queue.hasRunnable() {
		p.signalSchedule()
	}
}

// updateActiveWorkers publishes the active worker count. Counting and setting happen
// under one lock so the last update after a state change always wins.
func (p *PriorityWorkerPool) updateActiveWorkers() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	p.metrics.SetActiveWorkers(p.activeWorkers())
}

func (p *PriorityWorkerPool) activeWorkers() int {
	n := 0
	for _, w := range p.workers {
		switch w.State() {
		case WorkerStateAssigned, WorkerStateWorking:
			n++
		}
	}
	return n
}
