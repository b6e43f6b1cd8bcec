package app

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is a background loop that runs until its context is canceled.
type Task struct {
	Name string
	Run  func(context.Context) error
}

// Start runs tasks in their own goroutines. The returned context is canceled
// when stop is called or when a task fails. stop blocks until every task has
// returned, so sources may be closed safely afterwards.
func Start(parent context.Context, logger *zap.SugaredLogger, tasks ...Task) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)

	var wg sync.WaitGroup
	for _, task := range tasks {
		if task.Run == nil {
			continue
		}

		wg.Add(1)
		go func(task Task) {
			defer wg.Done()

			if err := task.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Errorw("task stopped", "task", task.Name, "error", err)
				cancel()
			}
		}(task)
	}

	return ctx, func() {
		cancel()
		wg.Wait()
	}
}
