package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerFn handles task index. It runs on one of the pool's goroutines.
type WorkerFn func(ctx context.Context, index int) error

// ForEach runs fn for every index in [0, tasks) on at most concurrency
// goroutines. The first error cancels ctx for the remaining tasks and is
// returned. Cancelling the parent ctx is reported only when it left tasks
// unscheduled.
func ForEach(ctx context.Context, concurrency int, tasks int, fn WorkerFn) error {
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	scheduled := 0
	for ; scheduled < tasks; scheduled++ {
		if gctx.Err() != nil {
			break
		}
		idx := scheduled
		g.Go(func() error {
			return fn(gctx, idx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if scheduled < tasks {
		return ctx.Err()
	}
	return nil
}
