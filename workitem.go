package rtb

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gogpu/rtb/internal/parallel"
)

// poolFactory creates work items backed by the manager's own WorkerPool.
type poolFactory struct {
	pool *parallel.WorkerPool
	log  *slog.Logger
}

type poolItem struct {
	pool *parallel.WorkerPool
	fn   func(ctx context.Context) error
	f    *poolFactory
}

func (f *poolFactory) CreateWorkItem(fn func(ctx context.Context) error) (WorkItem, error) {
	if fn == nil {
		return nil, errors.New("rtb: nil work item function")
	}
	if !f.pool.IsRunning() {
		return nil, ErrClosed
	}
	return &poolItem{pool: f.pool, fn: fn, f: f}, nil
}

func (it *poolItem) Submit() error {
	err := it.pool.Submit(func(ctx context.Context) {
		if err := it.fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			it.f.log.Warn("rtb: work item failed", "err", err)
		}
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, parallel.ErrQueueFull):
		return ErrQueueFull
	case errors.Is(err, parallel.ErrPoolClosed):
		return ErrClosed
	default:
		return err
	}
}
