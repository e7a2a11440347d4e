package pipe

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RunBounded applies fn to every item received from in, running at most limit
// calls at the same time. Results are handed to sink one at a time, in the
// order the calls complete.
//
// Once ctx is done no further items are started; calls already running are
// waited for and their results still reach sink.
func RunBounded[T, R any](ctx context.Context, in <-chan T, limit int, fn func(T) R, sink func(R)) {
	if limit < 1 {
		limit = 1
	}
	slots := semaphore.NewWeighted(int64(limit))
	var group errgroup.Group
	var sinkMu sync.Mutex

	for {
		if err := slots.Acquire(ctx, 1); err != nil {
			break
		}

		var item T
		var ok bool
		select {
		case item, ok = <-in:
		case <-ctx.Done():
		}
		if !ok || ctx.Err() != nil {
			slots.Release(1)
			break
		}

		group.Go(func() error {
			defer slots.Release(1)
			result := fn(item)

			sinkMu.Lock()
			defer sinkMu.Unlock()
			sink(result)
			return nil
		})
	}

	_ = group.Wait()
}
