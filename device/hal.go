//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rtb"
)

const (
	// copyPitchAlignment is the row alignment of texture-to-buffer copies.
	copyPitchAlignment = 256

	// submissionPollStep bounds the sleep between completion polls.
	submissionPollStep = time.Millisecond
)

// HAL is a GPU device backed by wgpu HAL. Completion handles track queue
// submission indices; readback surfaces are staging buffers the host's
// renderer copies captures into.
//
// The host submits its composition work through Submit so that handles
// created afterwards cover it. HAL borrows the device and queue; it never
// destroys them.
type HAL struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat

	mu        sync.Mutex
	lost      bool
	submitted uint64

	// spare holds released staging buffers by size for reuse.
	spare map[uint64][]hal.Buffer
}

// NewHAL creates a device from a host provider. The provider must expose
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func NewHAL(p Provider) (*HAL, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrUnavailable)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrUnavailable)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrUnavailable)
	}
	d := NewHALFromDevice(device, queue, surfaceFormat(p))
	rtb.Logger().Info("device: hal device created", "format", d.format)
	return d, nil
}

// NewHALFromDevice wraps an existing HAL device and queue.
func NewHALFromDevice(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) *HAL {
	return &HAL{
		device: device,
		queue:  queue,
		format: format,
		spare:  make(map[uint64][]hal.Buffer),
	}
}

// Submit submits command buffers and records the submission index.
// A device-lost failure marks the device lost.
func (d *HAL) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	if lost, _ := d.IsLost(); lost {
		return 0, lostError("Submit")
	}
	idx, err := d.queue.Submit(cmds)
	if err != nil {
		if errors.Is(err, hal.ErrDeviceLost) {
			d.MarkLost()
			return 0, &rtb.Error{Kind: rtb.KindDeviceLost, Op: "device.Submit", Err: err}
		}
		return 0, fmt.Errorf("device: submit: %w", err)
	}
	d.mu.Lock()
	if idx > d.submitted {
		d.submitted = idx
	}
	d.mu.Unlock()
	return idx, nil
}

// CreateEventAndEnqueueWait returns a handle that is signaled once the
// queue completes everything submitted so far.
func (d *HAL) CreateEventAndEnqueueWait() (rtb.WaitHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, lostError("CreateEventAndEnqueueWait")
	}
	return &submissionHandle{d: d, index: d.submitted}, nil
}

// Commit reports loss; the host's renderer submits the composition work.
func (d *HAL) Commit() error {
	if lost, _ := d.IsLost(); lost {
		return lostError("Commit")
	}
	return nil
}

// IsLost reports whether the device was lost.
func (d *HAL) IsLost() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost, nil
}

// MarkLost records device loss reported by the host.
func (d *HAL) MarkLost() {
	d.mu.Lock()
	already := d.lost
	d.lost = true
	d.mu.Unlock()
	if !already {
		rtb.Logger().Warn("device: hal device lost")
	}
}

// ReleaseScratchResources destroys the spare staging buffers.
func (d *HAL) ReleaseScratchResources() error {
	d.mu.Lock()
	spare := d.spare
	d.spare = make(map[uint64][]hal.Buffer)
	d.mu.Unlock()

	n := 0
	for _, bufs := range spare {
		for _, b := range bufs {
			d.device.DestroyBuffer(b)
			n++
		}
	}
	if n > 0 {
		rtb.Logger().Debug("device: staging buffers released", "count", n)
	}
	return nil
}

// spareCount returns the number of pooled staging buffers.
func (d *HAL) spareCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, bufs := range d.spare {
		n += len(bufs)
	}
	return n
}

// NewReadbackSurface allocates a staging buffer for a width x height
// capture, reusing a released one of the same size.
func (d *HAL) NewReadbackSurface(width, height int) (*ReadbackSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("device: invalid readback size %dx%d", width, height)
	}
	if lost, _ := d.IsLost(); lost {
		return nil, lostError("NewReadbackSurface")
	}

	//nolint:gosec // G115: positive ints checked above
	bytesPerRow := uint32(width) * 4
	aligned := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	size := uint64(aligned) * uint64(height)

	buf := d.takeSpare(size)
	if buf == nil {
		var err error
		buf, err = d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "rtb_readback",
			Size:  size,
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("device: create staging buffer: %w", err)
		}
	}
	return &ReadbackSurface{
		d:           d,
		buf:         buf,
		size:        size,
		width:       width,
		height:      height,
		bytesPerRow: aligned,
		format:      d.format,
	}, nil
}

func (d *HAL) takeSpare(size uint64) hal.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	bufs := d.spare[size]
	if len(bufs) == 0 {
		return nil
	}
	b := bufs[len(bufs)-1]
	d.spare[size] = bufs[:len(bufs)-1]
	return b
}

func (d *HAL) putSpare(size uint64, b hal.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spare[size] = append(d.spare[size], b)
}

// submissionHandle is signaled when the queue has completed index.
type submissionHandle struct {
	d     *HAL
	index uint64

	mu     sync.Mutex
	closed bool
}

func (h *submissionHandle) done() bool {
	return h.index == 0 || h.d.queue.PollCompleted() >= h.index
}

func (h *submissionHandle) Wait(timeout time.Duration) (bool, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return false, rtb.ErrHandleClosed
	}

	deadline := time.Now().Add(timeout)
	for {
		if h.done() {
			return true, nil
		}
		if lost, _ := h.d.IsLost(); lost {
			return false, lostError("Wait")
		}
		left := time.Until(deadline)
		if left <= 0 {
			return false, nil
		}
		time.Sleep(min(left, submissionPollStep))
	}
}

func (h *submissionHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// ReadbackSurface is a capture surface in a HAL staging buffer. The host
// copies the captured texture into Buffer with rows of BytesPerRow.
type ReadbackSurface struct {
	d           *HAL
	buf         hal.Buffer
	size        uint64
	width       int
	height      int
	bytesPerRow uint32
	format      gputypes.TextureFormat

	mu       sync.Mutex
	released bool
}

// Width returns the surface width in pixels.
func (s *ReadbackSurface) Width() int { return s.width }

// Height returns the surface height in pixels.
func (s *ReadbackSurface) Height() int { return s.height }

// Format returns the format of the captured texture.
func (s *ReadbackSurface) Format() gputypes.TextureFormat { return s.format }

// Buffer returns the staging buffer to copy into.
func (s *ReadbackSurface) Buffer() hal.Buffer { return s.buf }

// BytesPerRow returns the aligned row pitch of Buffer.
func (s *ReadbackSurface) BytesPerRow() uint32 { return s.bytesPerRow }

// Valid reports whether the buffer is live on a live device.
func (s *ReadbackSurface) Valid() bool {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return false
	}
	lost, _ := s.d.IsLost()
	return !lost
}

// ReadBytes maps the staging buffer and returns tightly packed RGBA rows.
// BGRA captures are swizzled.
func (s *ReadbackSurface) ReadBytes() ([]byte, error) {
	if !s.Valid() {
		return nil, lostError("ReadBytes")
	}
	m, err := s.d.device.MapBuffer(s.buf, 0, s.size)
	if err != nil {
		if errors.Is(err, hal.ErrDeviceLost) {
			s.d.MarkLost()
			return nil, &rtb.Error{Kind: rtb.KindDeviceLost, Op: "device.ReadBytes", Err: err}
		}
		return nil, fmt.Errorf("device: map staging buffer: %w", err)
	}
	defer func() { _ = s.d.device.UnmapBuffer(s.buf) }()

	raw := unsafe.Slice((*byte)(m.Ptr), s.size)
	tightRow := s.width * 4
	out := make([]byte, tightRow*s.height)
	for y := 0; y < s.height; y++ {
		src := int(s.bytesPerRow) * y
		copy(out[y*tightRow:(y+1)*tightRow], raw[src:src+tightRow])
	}
	if s.format == gputypes.TextureFormatBGRA8Unorm {
		swizzleBGRA(out)
	}
	return out, nil
}

// Release returns the staging buffer to the device's spare pool.
func (s *ReadbackSurface) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()
	s.d.putSpare(s.size, s.buf)
}

// swizzleBGRA converts BGRA pixels to RGBA in place.
func swizzleBGRA(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}

func init() {
	Register("hal", 100, func(opts Options) (rtb.Device, error) {
		if opts.Provider == nil {
			return nil, fmt.Errorf("%w: no provider", ErrUnavailable)
		}
		return NewHAL(opts.Provider)
	})
}

var (
	_ rtb.Device      = (*HAL)(nil)
	_ rtb.ByteSurface = (*ReadbackSurface)(nil)
	_ rtb.WaitHandle  = (*submissionHandle)(nil)
)
