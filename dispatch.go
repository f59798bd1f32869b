package rtb

import "sync"

// Dispatcher marshals work back onto the UI goroutine.
type Dispatcher interface {
	// Dispatch queues fn for the UI goroutine. When allowReentrancy is true
	// fn may run while the UI goroutine is already inside another
	// dispatched callback, so fn must be reentrant-safe.
	Dispatch(fn func(), allowReentrancy bool) error
}

type queuedTask struct {
	fn        func()
	reentrant bool
}

// Queue is the reference Dispatcher: any goroutine may Dispatch, the UI
// goroutine runs the callbacks with Drain.
type Queue struct {
	mu     sync.Mutex
	tasks  []queuedTask
	closed bool
	ready  chan struct{}

	// depth counts nested Drain calls. Only the UI goroutine touches it.
	depth int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Dispatch queues fn. It never blocks.
func (q *Queue) Dispatch(fn func(), allowReentrancy bool) error {
	if fn == nil {
		return nil
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.tasks = append(q.tasks, queuedTask{fn: fn, reentrant: allowReentrancy})
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Ready receives a value after Dispatch queued work. UI loops select on it
// to wake up and call Drain.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued callbacks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain runs queued callbacks on the calling goroutine until none is
// eligible and returns how many ran. Called from inside a callback it only
// runs callbacks dispatched with reentrancy allowed; the others stay queued
// in order for the outer Drain.
func (q *Queue) Drain() int {
	ran := 0
	for {
		task, ok := q.next(q.depth > 0)
		if !ok {
			return ran
		}
		q.depth++
		task.fn()
		q.depth--
		ran++
	}
}

// next pops the first eligible task.
func (q *Queue) next(nested bool) (queuedTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.tasks {
		if nested && !t.reentrant {
			continue
		}
		q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
		return t, true
	}
	return queuedTask{}, false
}

// Close rejects further Dispatch calls. Callbacks already queued can still
// be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

var _ Dispatcher = (*Queue)(nil)
