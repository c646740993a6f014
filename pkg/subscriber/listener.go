package subscriber

import (
	"context"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	listenPollInterval = 20 * time.Millisecond
	defaultWorkers     = 4
)

// Listen takes samples in a loop and dispatches each to handler on a
// worker pool until ctx is done. The sample is released after the handler
// returns; an early Release inside the handler is fine.
func (s *Subscriber[T]) Listen(ctx context.Context, workers int, handler func(*Sample[T])) error {
	if workers <= 0 {
		workers = defaultWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		smp, ok := s.TakeTimeout(listenPollInterval)
		if !ok {
			continue
		}
		task := smp
		if err := pool.Submit(func() {
			defer task.Release()
			handler(task)
		}); err != nil {
			// Pool already released; drop the reference instead of leaking.
			task.Release()
			return err
		}
	}
}
