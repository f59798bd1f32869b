package rtb

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/rtb/internal/parallel"
	"github.com/gogpu/rtb/internal/seq"
)

// Manager schedules asynchronous captures across UI frames.
//
// Every Manager method must be called on the UI goroutine. Background
// workers only wait on completion handles; results come back through the
// Dispatcher.
type Manager struct {
	core       Core
	device     Device
	factory    WorkItemFactory
	pool       *parallel.WorkerPool // owned; nil with WithWorkItemFactory
	scheduler  FrameScheduler
	dispatcher Dispatcher
	queue      *Queue // owned; nil with WithDispatcher
	poll       time.Duration
	shared     bool
	log        *slog.Logger

	life *lifeline

	idle      *seq.List[Element] // Idle with hardware resources
	pending   *seq.List[Element] // Preparing
	rendering *seq.List[Element] // Rendering, Rendered, Committed
	drawing   *seq.List[Element] // Drawing
	waits     *seq.List[*waitData]

	// commits maps Committed elements to the handle their batch waits on.
	commits map[Element]WaitHandle

	// deferred holds completions that arrived before their batch reached
	// the drawing list.
	deferred []WaitHandle

	needsSurfaceContentsLost bool
	frame                    uint64
	closed                   bool
	stats                    Stats
}

// New creates a manager for core. WithDevice is required.
func New(core Core, opts ...Option) (*Manager, error) {
	if core == nil {
		return nil, errors.New("rtb: nil core")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.device == nil {
		return nil, errors.New("rtb: no device (use WithDevice)")
	}

	m := &Manager{
		core:       core,
		device:     o.device,
		factory:    o.factory,
		scheduler:  o.scheduler,
		dispatcher: o.dispatcher,
		poll:       o.poll,
		shared:     o.shared,
		log:        o.logger,
		idle:       seq.New[Element](),
		pending:    seq.New[Element](),
		rendering:  seq.New[Element](),
		drawing:    seq.New[Element](),
		waits:      seq.New[*waitData](),
		commits:    make(map[Element]WaitHandle),
	}
	if m.log == nil {
		m.log = Logger()
	}
	m.life = &lifeline{m: m}

	if m.factory == nil {
		m.pool = parallel.NewWorkerPool(o.workers, o.queueSize)
		m.pool.SetPanicHandler(func(v any) {
			m.log.Error("rtb: wait loop panicked", "panic", v)
		})
		m.factory = &poolFactory{pool: m.pool, log: m.log}
	}
	if m.dispatcher == nil {
		m.queue = NewQueue()
		m.dispatcher = m.queue
	}

	m.log.Info("rtb: manager created",
		"shared_completion", m.shared,
		"poll", m.poll,
		"owned_pool", m.pool != nil)
	return m, nil
}

// Queue returns the manager's own dispatch queue, or nil when a
// Dispatcher was supplied. The UI loop drains it.
func (m *Manager) Queue() *Queue { return m.queue }

// Device returns the manager's device.
func (m *Manager) Device() Device { return m.device }

// OnSetCurrentState moves e to the list matching its new state. Elements
// call it from SetState after storing the state.
func (m *Manager) OnSetCurrentState(e Element) error {
	if e == nil {
		return nil
	}
	s := e.State()
	if m.closed && s != StateIdle {
		return newError(KindFatal, "OnSetCurrentState", ErrClosed)
	}

	switch s {
	case StateIdle:
		m.remove(e)
		if e.HasHardwareResources() {
			m.idle.PushBack(e)
		}

	case StatePreparing:
		m.remove(e)
		m.pending.PushBack(e)

	case StateRendering:
		if !m.pending.Contains(e) && !m.rendering.Contains(e) {
			return m.invalid(e, s)
		}
		m.pending.Remove(e)
		m.rendering.PushBack(e)

	case StateRendered, StateCommitted:
		if !m.rendering.Contains(e) {
			return m.invalid(e, s)
		}

	case StateDrawing:
		if m.drawing.Contains(e) {
			return nil
		}
		if !m.rendering.Remove(e) {
			return m.invalid(e, s)
		}
		delete(m.commits, e)
		m.drawing.PushBack(e)

	default:
		return m.invalid(e, s)
	}
	return nil
}

func (m *Manager) invalid(e Element, s State) error {
	m.log.Error("rtb: element state does not match its list", "state", s)
	return newError(KindFatal, "OnSetCurrentState", fmt.Errorf("%w: to %v", ErrInvalidTransition, s))
}

// RemoveRenderTargetElement removes e from every list. Owners must call it
// before dropping an element.
func (m *Manager) RemoveRenderTargetElement(e Element) error {
	if e == nil {
		return nil
	}
	m.remove(e)
	return nil
}

func (m *Manager) remove(e Element) {
	m.idle.Remove(e)
	m.removeFromDrawingLists(e)
	m.rendering.Remove(e)
	m.pending.Remove(e)
}

// CountElementJobs counts pending, rendering and drawing requests whose
// render root is v.
func (m *Manager) CountElementJobs(v Visual) int {
	n := 0
	for _, l := range []*seq.List[Element]{m.pending, m.rendering, m.drawing} {
		for _, e := range l.Snapshot() {
			if d := e.Data(); d != nil && d.RenderRoot() == v {
				n++
			}
		}
	}
	return n
}

// UpdateMetrics refreshes metrics of every pending request.
func (m *Manager) UpdateMetrics() error {
	for _, e := range m.pending.Snapshot() {
		d := e.Data()
		if d == nil {
			continue
		}
		if err := d.UpdateMetrics(); err != nil {
			return err
		}
	}
	return nil
}

// NeedsSurfaceContentsLost reports whether cached captures were lost since
// the last ClearSurfaceContentsLost.
func (m *Manager) NeedsSurfaceContentsLost() bool { return m.needsSurfaceContentsLost }

// ClearSurfaceContentsLost acknowledges a contents-lost notification.
func (m *Manager) ClearSurfaceContentsLost() { m.needsSurfaceContentsLost = false }

// Close tears the manager down. Background waiters observe it on their
// next wake and exit; an owned pool is closed and waited for. Elements are
// detached without state changes. Close is idempotent.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.life.sever()

	if m.pool != nil {
		m.pool.Close()
	}
	if m.queue != nil {
		m.queue.Close()
	}

	m.idle.Clear()
	m.pending.Clear()
	m.rendering.Clear()
	m.drawing.Clear()
	m.waits.Clear()
	clear(m.commits)
	m.deferred = nil

	m.log.Info("rtb: manager closed", "frames", m.frame)
}
