// Package parallel provides the worker pool that runs blocking capture waits
// off the UI goroutine.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrPoolClosed is returned by Submit after Close.
	ErrPoolClosed = errors.New("parallel: pool closed")

	// ErrQueueFull is returned by Submit when every worker queue is full.
	ErrQueueFull = errors.New("parallel: queue full")
)

// Task is a unit of work. The context is canceled when the pool closes;
// long-running tasks must observe it.
type Task func(ctx context.Context)

// WorkerPool is a pool of goroutines for blocking waits.
//
// The pool distributes tasks across workers, each with its own queue.
// Workers steal from other queues when their own queue is empty, so a
// worker parked on a slow wait does not strand the tasks queued behind it.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	// workers is the number of worker goroutines.
	workers int

	// workQueues holds per-worker task queues.
	workQueues []chan Task

	// ctx is passed to every task and canceled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// submitMu orders Submit against Close so no task is queued after
	// the workers drained.
	submitMu sync.RWMutex

	// running indicates whether the pool is accepting work.
	running atomic.Bool

	// onPanic receives values recovered from panicking tasks.
	onPanic atomic.Pointer[func(any)]
}

// NewWorkerPool creates a pool with the given number of workers and a
// per-worker queue of queueSize tasks.
// If workers is 0 or negative, GOMAXPROCS is used. If queueSize is less than
// 1, four slots per worker are used.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueSize < 1 {
		queueSize = 4
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		workers:    workers,
		workQueues: make([]chan Task, workers),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan Task, queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// SetPanicHandler installs fn to receive values recovered from panicking
// tasks. A nil fn restores the default, which drops the value.
func (p *WorkerPool) SetPanicHandler(fn func(any)) {
	if fn == nil {
		p.onPanic.Store(nil)
		return
	}
	p.onPanic.Store(&fn)
}

// worker is the main loop for each worker goroutine.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return

		case task := <-myQueue:
			p.run(task)

		default:
			if stolen := p.steal(id); stolen != nil {
				p.run(stolen)
				continue
			}
			select {
			case <-p.done:
				p.drainQueue(myQueue)
				return
			case task := <-myQueue:
				p.run(task)
			}
		}
	}
}

// run executes one task, containing panics.
func (p *WorkerPool) run(task Task) {
	if task == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if fn := p.onPanic.Load(); fn != nil {
				(*fn)(r)
			}
		}
	}()
	task(p.ctx)
}

// drainQueue executes all remaining tasks in a queue. The pool context is
// already canceled, so blocking tasks return promptly.
func (p *WorkerPool) drainQueue(queue chan Task) {
	for {
		select {
		case task := <-queue:
			p.run(task)
		default:
			return
		}
	}
}

// steal attempts to take a task from another worker's queue.
// Returns nil if no work is available.
func (p *WorkerPool) steal(myID int) Task {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case task := <-p.workQueues[i]:
			return task
		default:
		}
	}
	return nil
}

// Submit queues a single task without blocking.
// The task goes to the worker with the shortest queue; if that queue is
// full the remaining queues are tried in order.
func (p *WorkerPool) Submit(task Task) error {
	if task == nil {
		return nil
	}

	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if !p.running.Load() {
		return ErrPoolClosed
	}

	minLen := len(p.workQueues[0])
	minIdx := 0
	for i := 1; i < p.workers; i++ {
		if qLen := len(p.workQueues[i]); qLen < minLen {
			minLen = qLen
			minIdx = i
		}
	}

	for i := range p.workers {
		idx := (minIdx + i) % p.workers
		select {
		case p.workQueues[idx] <- task:
			return nil
		default:
		}
	}
	return ErrQueueFull
}

// Close stops accepting tasks, cancels the task context, runs whatever is
// still queued and waits for the workers to exit.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.submitMu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.submitMu.Unlock()
		return
	}
	p.submitMu.Unlock()

	p.cancel()
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns the total number of tasks currently queued.
// This is an approximation as queues can change while iterating.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.workQueues {
		total += len(q)
	}
	return total
}
