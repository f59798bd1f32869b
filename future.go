package rtb

import (
	"context"
	"sync"
)

// Future is a one-shot asynchronous result.
//
// The first Resolve or Reject wins; later calls report false.
// Future is safe for concurrent use.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// NewFuture creates a pending future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve completes the future with v.
func (f *Future[T]) Resolve(v T) bool {
	ok := false
	f.once.Do(func() {
		f.val = v
		close(f.done)
		ok = true
	})
	return ok
}

// Reject completes the future with err.
func (f *Future[T]) Reject(err error) bool {
	ok := false
	f.once.Do(func() {
		f.err = err
		close(f.done)
		ok = true
	})
	return ok
}

// Done is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Completed reports whether the future has completed.
func (f *Future[T]) Completed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future completes or ctx is done.
//
// Do not Wait on the UI goroutine for a capture: completion is delivered
// through the UI dispatcher and would never run.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// PixelsOperation is the pending result of a pixel readback.
type PixelsOperation = Future[[]byte]

// NewPixelsOperation creates a pending readback operation.
func NewPixelsOperation() *PixelsOperation {
	return NewFuture[[]byte]()
}
