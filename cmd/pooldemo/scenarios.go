package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jzx17/prioritypool/pkg/types"
	"github.com/jzx17/prioritypool/pkg/worker"
)

// poolFactory creates a fresh pool for a scenario
type poolFactory func(name string) (*worker.PriorityWorkerPool, error)

// scenario runs one workload and stops its pool
type scenario struct {
	name string
	run  func(ctx context.Context, d *demo) error
}

var scenarios = []scenario{
	{name: "sequential", run: runSequential},
	{name: "priorities", run: runPriorities},
	{name: "range", run: runRange},
}

// demo carries what the scenarios share
type demo struct {
	cfg     *demoConfig
	out     *lockedWriter
	logger  *zap.Logger
	newPool poolFactory
}

// lockedWriter serializes writes from concurrent task bodies
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format+"\n", args...)
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runSequential submits same-priority tasks one interval apart
func runSequential(ctx context.Context, d *demo) error {
	priority, err := types.ParsePriority(d.cfg.Priority)
	if err != nil {
		return err
	}

	pool, err := d.newPool("sequential")
	if err != nil {
		return err
	}
	defer pool.Close()

	for i := 0; i < d.cfg.Tasks; i++ {
		if err := sleep(ctx, d.cfg.Interval); err != nil {
			return err
		}

		id := uuid.NewString()
		task := worker.NewTaskWithID(id, func() error {
			time.Sleep(d.cfg.TaskDuration)
			d.out.printf("Task %s (%s)", id, time.Now().Format("15:04:05.000"))
			return nil
		}, priority)

		added, err := pool.Execute(task)
		if err != nil {
			return err
		}
		d.out.printf("%d: %t (%s)", i, added, id)
	}

	return stopPool(ctx, d, pool)
}

type labelled struct {
	label    string
	priority types.Priority
}

var (
	firstWave = []labelled{
		{"Normal 1", types.PriorityNormal},
		{"High 1", types.PriorityHigh},
		{"Low 1", types.PriorityLow},
		{"High 2", types.PriorityHigh},
	}
	secondWave = []labelled{
		{"Low 2", types.PriorityLow},
		{"Low 3", types.PriorityLow},
		{"High 3", types.PriorityHigh},
		{"High 4", types.PriorityHigh},
	}
)

func (d *demo) printTasks(wave []labelled) []*worker.Task {
	tasks := make([]*worker.Task, len(wave))
	for i, l := range wave {
		label := l.label
		tasks[i] = worker.NewTaskWithPriority(worker.Action(func() { d.out.printf("%s", label) }), l.priority)
	}
	return tasks
}

// runPriorities submits two waves of mixed-priority tasks one by one
func runPriorities(ctx context.Context, d *demo) error {
	pool, err := d.newPool("priorities")
	if err != nil {
		return err
	}
	defer pool.Close()

	for i, wave := range [][]labelled{firstWave, secondWave} {
		if i > 0 {
			if err := sleep(ctx, d.cfg.Pause); err != nil {
				return err
			}
			d.out.printf("------------------------")
		}
		for _, task := range d.printTasks(wave) {
			if _, err := pool.Execute(task); err != nil {
				return err
			}
		}
	}

	return stopPool(ctx, d, pool)
}

// runRange submits the same two waves through ExecuteRange
func runRange(ctx context.Context, d *demo) error {
	pool, err := d.newPool("range")
	if err != nil {
		return err
	}
	defer pool.Close()

	for i, wave := range [][]labelled{firstWave, secondWave} {
		if i > 0 {
			if err := sleep(ctx, d.cfg.Pause); err != nil {
				return err
			}
			d.out.printf("------------------------")
		}
		if _, err := pool.ExecuteRange(d.printTasks(wave)); err != nil {
			return err
		}
	}

	return stopPool(ctx, d, pool)
}

func stopPool(ctx context.Context, d *demo, pool *worker.PriorityWorkerPool) error {
	if err := pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("stopping pool: %w", err)
	}

	stats := pool.Stats()
	d.logger.Info("scenario finished",
		zap.Int64("completed", stats.TotalCompleted),
		zap.Int64("failed", stats.TotalFailed),
		zap.Int64("rejected", stats.TotalRejected),
	)
	d.out.printf("")
	return pool.Err()
}
