package executor

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/joeycumines/dfk"
)

// Local runs tasks as goroutines on the local machine, bounded by a
// weighted semaphore rather than a fixed-size worker pool: each submitted
// task gets its own goroutine, which waits on the semaphore for a slot
// before running fn.
type Local struct {
	sem *semaphore.Weighted
	cap int64

	mu       sync.Mutex
	inFlight sync.WaitGroup
	shutdown bool
}

// NewLocal constructs a Local executor that runs at most maxWorkers tasks
// concurrently. maxWorkers <= 0 means unbounded.
func NewLocal(maxWorkers int) *Local {
	l := &Local{}
	if maxWorkers > 0 {
		l.cap = int64(maxWorkers)
		l.sem = semaphore.NewWeighted(l.cap)
	}
	return l
}

// Submit runs fn on a new goroutine once a concurrency slot is available,
// and returns immediately with a handle that settles when fn returns.
func (l *Local) Submit(ctx context.Context, fn dfk.TaskFunc, args []any, kwargs map[string]any) (*dfk.Handle, error) {
	l.mu.Lock()
	if l.shutdown {
		l.mu.Unlock()
		return nil, ErrShutdown
	}
	l.inFlight.Add(1)
	l.mu.Unlock()

	handle := dfk.NewExecHandle(0)

	go func() {
		defer l.inFlight.Done()

		if l.sem != nil {
			if err := l.sem.Acquire(ctx, 1); err != nil {
				handle.Settle(nil, err)
				return
			}
			defer l.sem.Release(1)
		}

		value, err := fn(args, kwargs)
		handle.Settle(value, err)
	}()

	return handle, nil
}

// ScalingEnabled reports false: the local executor runs on the calling
// process and has no elastic resource pool to scale.
func (l *Local) ScalingEnabled() bool { return false }

// ScaleIn is a no-op for the local executor.
func (l *Local) ScaleIn(n int) error { return nil }

// Resources reports nil: the local executor has no managed resource pool,
// and ScalingEnabled being false means Cleanup never consults this anyway.
func (l *Local) Resources() []string { return nil }

// Shutdown marks the executor closed to new submissions and waits for
// in-flight tasks to finish, or ctx to be done, whichever comes first.
func (l *Local) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.shutdown = true
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("executor: shutdown: %w", ctx.Err())
	}
}
