/*
Package worker provides a fixed-size priority worker pool.

# Overview

A PriorityWorkerPool owns a fixed number of worker goroutines and one scheduler
goroutine. Tasks carry one of three priorities (low, normal, high) and are kept in
admission order until they finish. Workers pull the next task from the queue when
the scheduler wakes them.

# Core Components

## Task

A unit of work with an ID, a priority fixed at creation and a body that runs at most
once. IsRunning becomes true before the body starts and never resets.

## Selector

Chooses the next task:
  - High first, in admission order
  - With four or more workers, a waiting normal task is chosen instead once running
    high tasks reach three times (running normal + 1)
  - Normal next, then low

## Scheduler

Waits on a coalescing schedule-pending signal and wakes at most one idle worker per
signal. Workers re-raise the signal after claiming a task while more are runnable, and
after finishing a task, so no admitted task is left waiting while a worker is idle.

## Worker

Claims a task, runs it, removes it from the queue and goes back to idle. Errors and
panics from task bodies are recovered into *types.TaskError and reported to the
configured error handler, the logger, the failure log, the metrics registry and the
trace span. A worker never exits because of a task failure.

# Lifecycle

Workers start in NewPriorityWorkerPool. Stop rejects new tasks, waits until every
admitted task has finished, then releases the goroutines. Close releases them without
draining: running tasks finish, waiting tasks are abandoned. Teardown happens once;
further Stop and Close calls return immediately. Stop and Close must not be called
from inside a task body.

# Usage Examples

Basic usage:

	pool, err := worker.NewPriorityWorkerPool(&worker.PriorityWorkerPoolConfig{
		PoolSize: 4,
		Logger:   logger,
	})
	if err != nil {
		log.Fatal(err)
	}

	task := worker.NewTaskWithPriority(func() error {
		return process()
	}, types.PriorityHigh)

	if ok, err := pool.Execute(task); err != nil || !ok {
		log.Printf("task not admitted: %v", err)
	}

	if err := pool.Stop(); err != nil {
		log.Print(err)
	}
	if err := pool.Err(); err != nil {
		log.Printf("some tasks failed: %v", err)
	}
*/
package worker
