package rtb

import "errors"

// SubmitGetPixelsWorkItem queues a readback of s that completes op once the
// device has flushed every command submitted so far. The executor is
// registered with c so the element can abort it.
func (m *Manager) SubmitGetPixelsWorkItem(s ByteSurface, op *PixelsOperation, c ExecutorControl) error {
	if m.closed {
		return ErrClosed
	}
	if s == nil || op == nil || c == nil {
		return errors.New("rtb: SubmitGetPixelsWorkItem: nil argument")
	}

	h, err := m.device.CreateEventAndEnqueueWait()
	if err != nil {
		if IsDeviceLost(err) {
			return err
		}
		return newError(KindFatal, "GetPixels", err)
	}

	// Registered before submission: a worker that gives up early
	// unregisters through Release.
	ex := newPixelWaitExecutor(m, h, s, op, c)
	if err := c.AddPixelWaitExecutor(ex); err != nil {
		ex.Abort(err)
		_ = h.Close()
		return err
	}
	item, err := m.factory.CreateWorkItem(ex.WaitAndExecuteOnUIThread)
	if err != nil {
		return ex.fail(newError(KindFatal, "GetPixels", err))
	}
	if err := item.Submit(); err != nil {
		return ex.fail(newError(KindFatal, "GetPixels", err))
	}
	return nil
}
