package rtb

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// lifeline lets background waiters find their manager without keeping it
// alive. Close severs it; waiters then exit on their next wake.
type lifeline struct {
	mu sync.RWMutex
	m  *Manager
}

func (l *lifeline) manager() *Manager {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.m
}

func (l *lifeline) sever() {
	l.mu.Lock()
	l.m = nil
	l.mu.Unlock()
}

// waiter is the worker-side half shared by both executors: it blocks on a
// handle in poll-sized slices and hands off to the UI dispatcher.
type waiter struct {
	life       *lifeline
	handle     WaitHandle
	dispatcher Dispatcher
	poll       time.Duration
	log        *slog.Logger
}

func (m *Manager) newWaiter(h WaitHandle) waiter {
	return waiter{
		life:       m.life,
		handle:     h,
		dispatcher: m.dispatcher,
		poll:       m.poll,
		log:        m.log,
	}
}

// tornDown reports whether the manager or its core is gone.
func (w *waiter) tornDown() bool {
	m := w.life.manager()
	return m == nil || m.core.IsDestroying()
}

// wait returns true once the handle is signaled, false if the manager was
// torn down first.
func (w *waiter) wait(ctx context.Context) (bool, error) {
	for {
		if w.tornDown() {
			return false, nil
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
		signaled, err := w.handle.Wait(w.poll)
		if err != nil {
			return false, err
		}
		if signaled {
			return !w.tornDown(), nil
		}
	}
}

// WaitExecutor waits for a PreCommit completion event and reports the draw
// completion to the manager on the UI goroutine.
type WaitExecutor struct {
	waiter
}

func newWaitExecutor(m *Manager, h WaitHandle) *WaitExecutor {
	return &WaitExecutor{waiter: m.newWaiter(h)}
}

// WaitAndExecuteOnUIThread blocks on a worker until the event fires, then
// dispatches Execute. It returns early, closing the handle, when the
// manager is torn down or ctx is canceled.
func (e *WaitExecutor) WaitAndExecuteOnUIThread(ctx context.Context) error {
	ok, err := e.wait(ctx)
	if !ok {
		_ = e.handle.Close()
		return err
	}
	err = e.dispatcher.Dispatch(func() {
		if err := e.Execute(); err != nil {
			e.log.Warn("rtb: draw completion failed", "err", err)
		}
	}, true)
	if err != nil {
		_ = e.handle.Close()
	}
	return err
}

// Execute reports completion of the handle's batch. UI goroutine only.
func (e *WaitExecutor) Execute() error {
	defer func() { _ = e.handle.Close() }()
	m := e.life.manager()
	if m == nil {
		return nil
	}
	return m.NotifyDrawCompleted(e.handle)
}

// PixelWaitExecutor waits until the device has flushed a capture and then
// reads its pixels into a PixelsOperation on the UI goroutine.
type PixelWaitExecutor struct {
	waiter
	device  Device
	surface ByteSurface

	mu      sync.Mutex
	op      *PixelsOperation
	control ExecutorControl
}

func newPixelWaitExecutor(m *Manager, h WaitHandle, s ByteSurface, op *PixelsOperation, c ExecutorControl) *PixelWaitExecutor {
	return &PixelWaitExecutor{
		waiter:  m.newWaiter(h),
		device:  m.device,
		surface: s,
		op:      op,
		control: c,
	}
}

// WaitAndExecuteOnUIThread blocks on a worker until the device flush
// completes, then dispatches Execute. On teardown the operation is
// rejected.
func (e *PixelWaitExecutor) WaitAndExecuteOnUIThread(ctx context.Context) error {
	ok, err := e.wait(ctx)
	if !ok {
		if IsDeviceLost(err) {
			e.reject(newError(KindDeviceLost, "GetPixels", err))
		}
		e.Release()
		return err
	}
	err = e.dispatcher.Dispatch(func() {
		if err := e.Execute(); err != nil {
			e.log.Warn("rtb: pixel readback failed", "err", err)
		}
	}, true)
	if err != nil {
		e.Release()
	}
	return err
}

// Execute reads the surface and completes the operation. Readback
// failures go to the operation only. UI goroutine only.
func (e *PixelWaitExecutor) Execute() error {
	defer e.Release()

	if e.pending() == nil {
		return nil
	}

	lost, err := e.device.IsLost()
	if err != nil {
		e.reject(newError(KindReadback, "GetPixels", err))
		return nil
	}
	if lost || !e.surface.Valid() {
		e.reject(newError(KindDeviceLost, "GetPixels", nil))
		return nil
	}

	pix, err := e.surface.ReadBytes()
	if err != nil {
		if IsDeviceLost(err) {
			if confirmed, _ := e.device.IsLost(); !confirmed {
				e.log.Warn("rtb: readback reported device loss the device did not confirm", "err", err)
			}
			e.reject(newError(KindDeviceLost, "GetPixels", err))
			return nil
		}
		e.reject(newError(KindReadback, "GetPixels", err))
		return nil
	}

	e.mu.Lock()
	op := e.op
	e.op = nil
	e.mu.Unlock()
	if op != nil {
		op.Resolve(pix)
		if m := e.life.manager(); m != nil {
			m.stats.Readbacks++
		}
	}
	return nil
}

// fail rejects the operation with err and releases the executor.
func (e *PixelWaitExecutor) fail(err error) error {
	e.reject(err)
	e.Release()
	return err
}

// Surface returns the surface the executor reads.
func (e *PixelWaitExecutor) Surface() ByteSurface { return e.surface }

func (e *PixelWaitExecutor) pending() *PixelsOperation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.op
}

func (e *PixelWaitExecutor) reject(err error) {
	e.mu.Lock()
	op := e.op
	e.op = nil
	e.mu.Unlock()
	if op != nil {
		op.Reject(err)
	}
}

// Abort rejects the operation with err without unregistering from the
// control. Controls call it while aborting all their readbacks.
func (e *PixelWaitExecutor) Abort(err error) {
	e.mu.Lock()
	e.control = nil
	e.mu.Unlock()
	e.reject(err)
}

// Release drops the operation, rejecting it if still pending, and
// unregisters from the control. Release is idempotent.
func (e *PixelWaitExecutor) Release() {
	e.mu.Lock()
	op, control := e.op, e.control
	e.op, e.control = nil, nil
	e.mu.Unlock()

	if op != nil {
		op.Reject(newError(KindReadback, "GetPixels", ErrClosed))
	}
	if control != nil {
		control.RemovePixelWaitExecutor(e)
	}
	_ = e.handle.Close()
}
