// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bitmap provides Bitmap, a capture request that renders a live
// visual subtree into pixels through an rtb.Manager.
//
// A Bitmap is driven entirely from the UI goroutine:
//
//	b := bitmap.New(m, device.NewSoftwareCapturer(dev))
//	done, _ := b.RenderAsync(root, 0, 0)
//	// ... run m.Tick and drain m.Queue() until done completes ...
//	pixels, _ := b.GetPixelsAsync()
//
// RenderAsync and GetPixelsAsync return futures; neither blocks.
package bitmap

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"sync"

	"github.com/gogpu/rtb"
)

// Capturer records a visual subtree for the frame f into a surface of
// width x height pixels. A non-positive size selects the natural size of
// root. The capturer signals done once the surface holds the pixels.
//
// device.SoftwareCapturer implements Capturer.
type Capturer interface {
	Capture(f rtb.Frame, root rtb.Visual, width, height int, done *rtb.Event) (rtb.ByteSurface, error)
}

// RenderOperation completes with the pixel size of the capture.
type RenderOperation = rtb.Future[image.Point]

var (
	// ErrBusy is returned by RenderAsync while a capture is past pickup.
	ErrBusy = errors.New("bitmap: capture in progress")

	// ErrSuperseded rejects a render replaced by a later RenderAsync call
	// before it was picked up.
	ErrSuperseded = errors.New("bitmap: render superseded")
)

// releaser is implemented by surfaces that return memory to their device.
type releaser interface {
	Release()
}

// Bitmap is a capture request. It implements rtb.Element and
// rtb.ExecutorControl.
type Bitmap struct {
	m        *rtb.Manager
	capturer Capturer
	log      *slog.Logger

	state    rtb.State
	data     renderData
	surface  rtb.ByteSurface
	inflight rtb.ByteSurface
	render   *RenderOperation
	released bool

	onContentsLost func()
	contentsLost   bool

	// mu guards executors and retired; readbacks unregister from worker
	// goroutines.
	mu        sync.Mutex
	executors map[*rtb.PixelWaitExecutor]struct{}
	// retired holds replaced captures that readbacks still read.
	retired []rtb.ByteSurface
}

// New creates an idle Bitmap served by m.
func New(m *rtb.Manager, c Capturer) *Bitmap {
	b := &Bitmap{
		m:         m,
		capturer:  c,
		log:       rtb.Logger(),
		executors: make(map[*rtb.PixelWaitExecutor]struct{}),
	}
	b.data.b = b
	return b
}

// RenderAsync requests a capture of root at width x height pixels. Zero
// sizes select the natural size of root. A request that has not been
// picked up yet is replaced and its operation fails with ErrSuperseded.
func (b *Bitmap) RenderAsync(root rtb.Visual, width, height int) (*RenderOperation, error) {
	if b.released {
		return nil, rtb.ErrClosed
	}
	if root == nil {
		return nil, errors.New("bitmap: nil root")
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("bitmap: invalid size %dx%d", width, height)
	}

	switch b.state {
	case rtb.StateIdle:
	case rtb.StatePreparing:
		if b.render != nil {
			b.render.Reject(ErrSuperseded)
		}
	default:
		return nil, ErrBusy
	}

	b.data.root = root
	b.data.width = width
	b.data.height = height
	if err := b.data.UpdateMetrics(); err != nil {
		return nil, err
	}
	op := rtb.NewFuture[image.Point]()
	b.render = op

	if b.state == rtb.StateIdle {
		if err := b.SetState(rtb.StatePreparing); err != nil {
			b.render = nil
			op.Reject(err)
			return nil, err
		}
	}
	return op, nil
}

// GetPixelsAsync reads the last capture back as tightly packed RGBA rows.
// It fails with rtb.ErrNotReady before the first capture completes.
func (b *Bitmap) GetPixelsAsync() (*rtb.PixelsOperation, error) {
	if b.released {
		return nil, rtb.ErrClosed
	}
	if b.surface == nil {
		return nil, &rtb.Error{Kind: rtb.KindNotReady, Op: "bitmap.GetPixels"}
	}
	op := rtb.NewPixelsOperation()
	if err := b.m.SubmitGetPixelsWorkItem(b.surface, op, b); err != nil {
		op.Reject(err)
		return nil, err
	}
	return op, nil
}

// PixelWidth returns the width of the last capture, or the expected width
// of the pending one.
func (b *Bitmap) PixelWidth() int {
	if b.surface != nil {
		return b.surface.Width()
	}
	return b.data.pixels.X
}

// PixelHeight returns the height of the last capture, or the expected
// height of the pending one.
func (b *Bitmap) PixelHeight() int {
	if b.surface != nil {
		return b.surface.Height()
	}
	return b.data.pixels.Y
}

// OnContentsLost registers fn to run from DispatchContentsLost after the
// device discarded a completed capture. A nil fn unregisters.
func (b *Bitmap) OnContentsLost(fn func()) {
	b.onContentsLost = fn
}

// DispatchContentsLost runs the contents-lost handler if a capture was
// discarded since the last call. The host calls it for its bitmaps when
// the manager reports NeedsSurfaceContentsLost.
func (b *Bitmap) DispatchContentsLost() bool {
	if !b.contentsLost {
		return false
	}
	b.contentsLost = false
	if b.onContentsLost != nil {
		b.onContentsLost()
	}
	return true
}

// Release cancels outstanding work and detaches b from its manager.
// Release is idempotent.
func (b *Bitmap) Release() error {
	if b.released {
		return nil
	}
	b.mu.Lock()
	b.released = true
	b.mu.Unlock()
	b.AbortPixelWaits(rtb.ErrClosed)
	if b.render != nil {
		b.render.Reject(rtb.ErrClosed)
		b.render = nil
	}
	err := b.m.RemoveRenderTargetElement(b)
	b.dropSurfaces()
	b.state = rtb.StateIdle
	return err
}

// State returns the capture state.
func (b *Bitmap) State() rtb.State { return b.state }

// SetState stores s and lets the manager move b to the matching list.
func (b *Bitmap) SetState(s rtb.State) error {
	b.state = s
	return b.m.OnSetCurrentState(b)
}

// HasHardwareResources reports whether a completed capture is cached.
func (b *Bitmap) HasHardwareResources() bool { return b.surface != nil }

// HasLostHardwareResources reports whether the cached capture was
// invalidated by the device.
func (b *Bitmap) HasLostHardwareResources() bool {
	return b.surface != nil && !b.surface.Valid()
}

// RequiresContentsLostNotification reports whether a contents-lost
// handler is registered.
func (b *Bitmap) RequiresContentsLostNotification() bool {
	return b.onContentsLost != nil
}

// PreCommit hands the subtree to the capturer.
func (b *Bitmap) PreCommit(f rtb.Frame, completion *rtb.Event) error {
	s, err := b.capturer.Capture(f, b.data.root, b.data.width, b.data.height, completion)
	if err != nil {
		return err
	}
	release(b.inflight)
	b.inflight = s
	return nil
}

// PostDraw promotes the drawn surface to the cached capture and completes
// the render operation.
func (b *Bitmap) PostDraw() error {
	if b.inflight != nil {
		b.retire(b.surface)
		b.surface = b.inflight
		b.inflight = nil
	}
	if err := b.SetState(rtb.StateIdle); err != nil {
		return err
	}
	if b.render != nil && b.surface != nil {
		b.render.Resolve(image.Pt(b.surface.Width(), b.surface.Height()))
		b.render = nil
	}
	return nil
}

// FailRender drops the in-flight capture and fails the render operation.
func (b *Bitmap) FailRender(err error) {
	release(b.inflight)
	b.inflight = nil
	if serr := b.SetState(rtb.StateIdle); serr != nil {
		b.log.Warn("bitmap: reset after failed render", "err", serr)
	}
	if b.render != nil {
		b.render.Reject(err)
		b.render = nil
	}
}

// CleanupHardwareResources drops every surface after device loss. Pending
// readbacks fail with rtb.ErrDeviceLost.
func (b *Bitmap) CleanupHardwareResources(bool) {
	if b.surface != nil {
		b.contentsLost = true
	}
	b.dropSurfaces()
	b.AbortPixelWaits(rtb.ErrDeviceLost)
}

// AbortPixelWaits fails every pending readback with err.
func (b *Bitmap) AbortPixelWaits(err error) {
	b.mu.Lock()
	pending := make([]*rtb.PixelWaitExecutor, 0, len(b.executors))
	for ex := range b.executors {
		pending = append(pending, ex)
	}
	clear(b.executors)
	retired := b.retired
	b.retired = nil
	b.mu.Unlock()

	for _, ex := range pending {
		ex.Abort(err)
	}
	for _, s := range retired {
		release(s)
	}
}

// Data returns the render request.
func (b *Bitmap) Data() rtb.ElementData { return &b.data }

// AddPixelWaitExecutor tracks a readback issued for b.
func (b *Bitmap) AddPixelWaitExecutor(e *rtb.PixelWaitExecutor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return rtb.ErrClosed
	}
	b.executors[e] = struct{}{}
	return nil
}

// RemovePixelWaitExecutor stops tracking a finished readback.
func (b *Bitmap) RemovePixelWaitExecutor(e *rtb.PixelWaitExecutor) {
	b.mu.Lock()
	delete(b.executors, e)
	s := e.Surface()
	free := slices.Contains(b.retired, s) && !b.readingLocked(s)
	if free {
		b.retired = slices.DeleteFunc(b.retired, func(r rtb.ByteSurface) bool { return r == s })
	}
	b.mu.Unlock()

	if free {
		release(s)
	}
}

// retire releases s once no readback reads it.
func (b *Bitmap) retire(s rtb.ByteSurface) {
	if s == nil {
		return
	}
	b.mu.Lock()
	busy := b.readingLocked(s)
	if busy {
		b.retired = append(b.retired, s)
	}
	b.mu.Unlock()
	if !busy {
		release(s)
	}
}

func (b *Bitmap) readingLocked(s rtb.ByteSurface) bool {
	for ex := range b.executors {
		if ex.Surface() == s {
			return true
		}
	}
	return false
}

func (b *Bitmap) pendingReadbacks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.executors)
}

func (b *Bitmap) dropSurfaces() {
	release(b.surface)
	release(b.inflight)
	b.surface = nil
	b.inflight = nil
}

func release(s rtb.ByteSurface) {
	if r, ok := s.(releaser); ok {
		r.Release()
	}
}

var (
	_ rtb.Element         = (*Bitmap)(nil)
	_ rtb.ExecutorControl = (*Bitmap)(nil)
)
