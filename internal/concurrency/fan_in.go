package concurrency

import (
	"context"
)

// FanInChannels merges chans into one channel that is closed once every input
// channel is closed. Values that cannot be forwarded because ctx is done are
// passed to onFail, if set. The inputs are always read to the end.
func FanInChannels[T any](ctx context.Context, chans []<-chan T, onFail func(T)) <-chan T {
	limit := len(chans)

	out := make(chan T, limit)

	if limit == 0 {
		close(out)
		return out
	}

	pool := NewPool(ctx, limit, nil)

	for _, c := range chans {
		pool.Go(func(ctx context.Context) error {
			for v := range c {
				if !TrySendThroughChannel(ctx, v, out) && onFail != nil {
					onFail(v)
				}
			}
			return nil
		})
	}

	go func() {
		// consumers block until out is closed
		_ = pool.Wait()
		close(out)
	}()

	return out
}
