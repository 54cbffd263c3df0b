// Package concurrency holds the goroutine pool helpers shared by the
// document map stages.
package concurrency

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// Pool runs tasks on a bounded number of goroutines. The first task error
// cancels the tasks' shared context and is also passed to the parent cancel
// function, if one was given, so that stages outside the pool stop without
// waiting for every task to return.
type Pool struct {
	tasks  *pool.ContextPool
	parent context.CancelCauseFunc
}

// NewPool returns a pool of at most maxGoroutines workers. parent may be nil.
func NewPool(ctx context.Context, maxGoroutines int, parent context.CancelCauseFunc) *Pool {
	return &Pool{
		tasks: pool.New().
			WithContext(ctx).
			WithCancelOnError().
			WithFirstError().
			WithMaxGoroutines(maxGoroutines),
		parent: parent,
	}
}

// Go submits a task, blocking while every goroutine is busy.
func (p *Pool) Go(task func(ctx context.Context) error) {
	p.tasks.Go(func(ctx context.Context) error {
		err := task(ctx)
		if err != nil && p.parent != nil {
			p.parent(err)
		}
		return err
	})
}

// Wait blocks until every task has returned and reports the first error.
func (p *Pool) Wait() error {
	return p.tasks.Wait()
}

// TrySendThroughChannel sends msg unless ctx is done first. It reports
// whether msg was sent.
func TrySendThroughChannel[T any](ctx context.Context, msg T, channel chan<- T) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	select {
	case <-ctx.Done():
		return false
	case channel <- msg:
		return true
	}
}
