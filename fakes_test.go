package rtb

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
)

// fakeVisual is a scene-graph node.
type fakeVisual struct {
	parent   *fakeVisual
	inactive bool
	hidden   bool
	kind     VisualKind
	notReady bool
	readyErr error
}

func (v *fakeVisual) Parent() Visual {
	if v.parent == nil {
		return nil
	}
	return v.parent
}
func (v *fakeVisual) IsActive() bool   { return !v.inactive && v.kind != KindRoot }
func (v *fakeVisual) IsVisible() bool  { return !v.hidden }
func (v *fakeVisual) Kind() VisualKind { return v.kind }
func (v *fakeVisual) ReadyForCapture() (bool, error) {
	return !v.notReady, v.readyErr
}

// newTree returns a main root and an element attached to it.
func newTree() (root, leaf *fakeVisual) {
	root = &fakeVisual{kind: KindRoot}
	leaf = &fakeVisual{parent: root}
	return root, leaf
}

type fakeData struct {
	root           Visual
	resets         int
	deviceCleanups int
	metrics        int
	metricsErr     error
}

func (d *fakeData) RenderRoot() Visual      { return d.root }
func (d *fakeData) ResetState()             { d.resets++ }
func (d *fakeData) CleanupDeviceResources() { d.deviceCleanups++ }
func (d *fakeData) UpdateMetrics() error {
	d.metrics++
	return d.metricsErr
}

// fakeElement records every call the manager makes.
type fakeElement struct {
	m     *Manager
	name  string
	state State
	data  *fakeData

	hasRes  bool
	lostRes bool
	notify  bool

	preCommitErr error
	events       []*Event
	postDraws    int
	failed       []error
	cleanups     []bool
	aborted      []error
	states       []State

	// order, when set, receives the element name on PostDraw.
	order *[]string
}

func newElement(m *Manager, name string, root Visual) *fakeElement {
	return &fakeElement{m: m, name: name, data: &fakeData{root: root}}
}

func (e *fakeElement) State() State { return e.state }
func (e *fakeElement) SetState(s State) error {
	e.state = s
	e.states = append(e.states, s)
	return e.m.OnSetCurrentState(e)
}
func (e *fakeElement) HasHardwareResources() bool             { return e.hasRes }
func (e *fakeElement) HasLostHardwareResources() bool         { return e.lostRes }
func (e *fakeElement) RequiresContentsLostNotification() bool { return e.notify }
func (e *fakeElement) PreCommit(_ Frame, ev *Event) error {
	if e.preCommitErr != nil {
		return e.preCommitErr
	}
	e.events = append(e.events, ev)
	return nil
}
func (e *fakeElement) PostDraw() error {
	e.postDraws++
	e.hasRes = true
	if e.order != nil {
		*e.order = append(*e.order, e.name)
	}
	return e.SetState(StateIdle)
}
func (e *fakeElement) FailRender(err error) {
	e.failed = append(e.failed, err)
	_ = e.SetState(StateIdle)
}
func (e *fakeElement) CleanupHardwareResources(comp bool) {
	e.cleanups = append(e.cleanups, comp)
	e.hasRes = false
}
func (e *fakeElement) AbortPixelWaits(err error) { e.aborted = append(e.aborted, err) }
func (e *fakeElement) Data() ElementData {
	if e.data == nil {
		return nil
	}
	return e.data
}

type fakeCore struct {
	main        Visual
	settingRoot bool
	background  bool
	decodes     int
	flushes     int
	destroying  atomic.Bool
}

func (c *fakeCore) MainRoot() Visual          { return c.main }
func (c *fakeCore) IsSettingRootVisual() bool { return c.settingRoot }
func (c *fakeCore) IsBackgroundTask() bool    { return c.background }
func (c *fakeCore) PendingDecodeCount() int   { return c.decodes }
func (c *fakeCore) FlushDecodeRequests() error {
	c.flushes++
	return nil
}
func (c *fakeCore) IsDestroying() bool { return c.destroying.Load() }

type fakeDevice struct {
	mu        sync.Mutex
	lost      bool
	lostErr   error
	createErr error
	commits   int
	scratch   int
	handles   []*Event
}

func (d *fakeDevice) CreateEventAndEnqueueWait() (WaitHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return nil, d.createErr
	}
	ev := NewEvent()
	ev.Signal()
	d.handles = append(d.handles, ev)
	return ev, nil
}
func (d *fakeDevice) ReleaseScratchResources() error {
	d.mu.Lock()
	d.scratch++
	d.mu.Unlock()
	return nil
}
func (d *fakeDevice) Commit() error {
	d.mu.Lock()
	d.commits++
	d.mu.Unlock()
	return nil
}
func (d *fakeDevice) IsLost() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost, d.lostErr
}
func (d *fakeDevice) setLost(v bool) {
	d.mu.Lock()
	d.lost = v
	d.mu.Unlock()
}

type fakeScheduler struct {
	reasons []FrameReason
}

func (s *fakeScheduler) RequestAdditionalFrame(_ time.Duration, r FrameReason) error {
	s.reasons = append(s.reasons, r)
	return nil
}

// manualFactory collects work items; tests run them with runAll. With
// inline set, Submit runs the item at once instead.
type manualFactory struct {
	mu        sync.Mutex
	items     []func(ctx context.Context) error
	submitErr error
	inline    bool
}

type manualItem struct {
	f  *manualFactory
	fn func(ctx context.Context) error
}

func (f *manualFactory) CreateWorkItem(fn func(ctx context.Context) error) (WorkItem, error) {
	return &manualItem{f: f, fn: fn}, nil
}

func (it *manualItem) Submit() error {
	it.f.mu.Lock()
	if it.f.submitErr != nil {
		it.f.mu.Unlock()
		return it.f.submitErr
	}
	if it.f.inline {
		it.f.mu.Unlock()
		_ = it.fn(context.Background())
		return nil
	}
	it.f.items = append(it.f.items, it.fn)
	it.f.mu.Unlock()
	return nil
}

func (f *manualFactory) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// runAll runs every queued item on the calling goroutine. Handles must
// already be signaled.
func (f *manualFactory) runAll(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	items := f.items
	f.items = nil
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, fn := range items {
		if err := fn(ctx); err != nil {
			t.Fatalf("work item: %v", err)
		}
	}
}

type fakeSurface struct {
	pix     []byte
	invalid bool
	readErr error
}

func (s *fakeSurface) Width() int                     { return 1 }
func (s *fakeSurface) Height() int                    { return 1 }
func (s *fakeSurface) Format() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }
func (s *fakeSurface) Valid() bool                    { return !s.invalid }
func (s *fakeSurface) ReadBytes() ([]byte, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return append([]byte(nil), s.pix...), nil
}

type fakeControl struct {
	mu      sync.Mutex
	set     map[*PixelWaitExecutor]bool
	addErr  error
	removed int
}

func newFakeControl() *fakeControl {
	return &fakeControl{set: make(map[*PixelWaitExecutor]bool)}
}

func (c *fakeControl) AddPixelWaitExecutor(e *PixelWaitExecutor) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addErr != nil {
		return c.addErr
	}
	c.set[e] = true
	return nil
}

func (c *fakeControl) RemovePixelWaitExecutor(e *PixelWaitExecutor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.set, e)
	c.removed++
}

func (c *fakeControl) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.set)
}

type harness struct {
	m       *Manager
	core    *fakeCore
	dev     *fakeDevice
	factory *manualFactory
	sched   *fakeScheduler
	root    *fakeVisual
	leaf    *fakeVisual
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	root, leaf := newTree()
	h := &harness{
		core:    &fakeCore{main: root},
		dev:     &fakeDevice{},
		factory: &manualFactory{},
		sched:   &fakeScheduler{},
		root:    root,
		leaf:    leaf,
	}
	all := append([]Option{
		WithDevice(h.dev),
		WithWorkItemFactory(h.factory),
		WithFrameScheduler(h.sched),
		WithPollInterval(time.Millisecond),
	}, opts...)
	m, err := New(h.core, all...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(m.Close)
	h.m = m
	return h
}

// request queues a capture of the harness leaf.
func (h *harness) request(t *testing.T, name string) *fakeElement {
	t.Helper()
	e := newElement(h.m, name, h.leaf)
	if err := e.SetState(StatePreparing); err != nil {
		t.Fatalf("SetState(Preparing): %v", err)
	}
	return e
}

func (h *harness) tick(t *testing.T) bool {
	t.Helper()
	rendered, err := h.m.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	return rendered
}

// complete runs the queued waits and drains the UI queue.
func (h *harness) complete(t *testing.T) {
	t.Helper()
	h.factory.runAll(t)
	h.m.Queue().Drain()
}

// listOf names the manager list holding e.
func (h *harness) listOf(e Element) string {
	var found []string
	if h.m.idle.Contains(e) {
		found = append(found, "idle")
	}
	if h.m.pending.Contains(e) {
		found = append(found, "pending")
	}
	if h.m.rendering.Contains(e) {
		found = append(found, "rendering")
	}
	if h.m.drawing.Contains(e) {
		found = append(found, "drawing")
	}
	switch len(found) {
	case 0:
		return "none"
	case 1:
		return found[0]
	default:
		return "many"
	}
}

var errBoom = errors.New("boom")
