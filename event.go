package rtb

import (
	"sync"
	"time"
)

// Event is an auto-reset, initially non-signaled WaitHandle.
//
// Signal wakes exactly one Wait; signals that arrive while the event is
// already signaled coalesce. Event is safe for concurrent use.
type Event struct {
	signal    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewEvent creates a non-signaled event.
func NewEvent() *Event {
	return &Event{
		signal: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Signal sets the event. Signaling a closed event is a no-op.
func (e *Event) Signal() {
	select {
	case <-e.closed:
		return
	default:
	}
	select {
	case e.signal <- struct{}{}:
	default:
	}
}

// Wait blocks for at most timeout and consumes the signal.
// A timeout of zero or less polls without blocking.
func (e *Event) Wait(timeout time.Duration) (bool, error) {
	select {
	case <-e.closed:
		return false, ErrHandleClosed
	default:
	}

	if timeout <= 0 {
		select {
		case <-e.signal:
			return true, nil
		default:
			return false, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.signal:
		return true, nil
	case <-e.closed:
		return false, ErrHandleClosed
	case <-timer.C:
		return false, nil
	}
}

// Close releases the event. Pending and future waits fail with
// ErrHandleClosed.
func (e *Event) Close() error {
	e.closeOnce.Do(func() { close(e.closed) })
	return nil
}

var _ WaitHandle = (*Event)(nil)
