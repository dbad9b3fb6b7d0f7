package scheduler

import (
	"context"
	"time"

	"gigmaps-engine/internal/logger"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on each tick until ctx is done.
// Task errors are logged and never stop the loop.
func Every(ctx context.Context, interval time.Duration, name string, log logger.Logger, task Task) {
	t := time.NewTicker(interval)
	defer t.Stop()

	run := func() {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			log.Warn("scheduled task failed", logger.String("task", name), logger.Error(err))
		}
	}

	// run immediately
	go run()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
