// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"context"
	"image"
	"sync"

	"github.com/gogpu/rtb"
)

// Software is a CPU device. Work queued with Enqueue runs on the next
// Commit; completion handles created while work is queued fire after it.
//
// Software is safe for concurrent use.
type Software struct {
	mu sync.Mutex

	lost       bool
	generation uint64

	jobs    []func()
	waiters []*rtb.Event

	// scratch is the intermediate image reused between captures.
	scratch         *image.RGBA
	scratchReleases int
	commits         int
}

// NewSoftware creates a software device.
func NewSoftware() *Software {
	rtb.Logger().Info("device: software device created")
	return &Software{}
}

// Enqueue queues job for the next Commit.
func (d *Software) Enqueue(job func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return lostError("Enqueue")
	}
	d.jobs = append(d.jobs, job)
	return nil
}

// CreateEventAndEnqueueWait returns a handle signaled once every job queued
// so far has run. With nothing queued it is already signaled.
func (d *Software) CreateEventAndEnqueueWait() (rtb.WaitHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, lostError("CreateEventAndEnqueueWait")
	}
	ev := rtb.NewEvent()
	if len(d.jobs) == 0 {
		ev.Signal()
		return ev, nil
	}
	d.waiters = append(d.waiters, ev)
	return ev, nil
}

// Commit runs the queued jobs in order and fires the handles waiting on them.
func (d *Software) Commit() error {
	d.mu.Lock()
	if d.lost {
		d.mu.Unlock()
		return lostError("Commit")
	}
	jobs, waiters := d.jobs, d.waiters
	d.jobs, d.waiters = nil, nil
	d.commits++
	d.mu.Unlock()

	for _, job := range jobs {
		job()
	}
	for _, ev := range waiters {
		ev.Signal()
	}
	if len(jobs) > 0 {
		rtb.Logger().Debug("device: software commit", "jobs", len(jobs))
	}
	return nil
}

// IsLost reports whether Lose was called without a following Restore.
func (d *Software) IsLost() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost, nil
}

// Lose simulates device loss: queued jobs are dropped, surfaces created so
// far become invalid and waiting handles fire so their owners observe the
// loss.
func (d *Software) Lose() {
	d.mu.Lock()
	d.lost = true
	d.generation++
	d.jobs = nil
	waiters := d.waiters
	d.waiters = nil
	d.scratch = nil
	d.mu.Unlock()

	for _, ev := range waiters {
		ev.Signal()
	}
	rtb.Logger().Warn("device: software device lost")
}

// Restore brings a lost device back. Surfaces from before the loss stay
// invalid.
func (d *Software) Restore() {
	d.mu.Lock()
	d.lost = false
	d.mu.Unlock()
}

// WaitForResourceCreation fails while the device is lost.
func (d *Software) WaitForResourceCreation(ctx context.Context) error {
	if lost, _ := d.IsLost(); lost {
		return lostError("WaitForResourceCreation")
	}
	return ctx.Err()
}

// ReleaseScratchResources drops the intermediate capture image.
func (d *Software) ReleaseScratchResources() error {
	d.mu.Lock()
	d.scratch = nil
	d.scratchReleases++
	d.mu.Unlock()
	return nil
}

// ScratchReleases returns how often scratch resources were released.
func (d *Software) ScratchReleases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scratchReleases
}

// Commits returns the number of successful commits.
func (d *Software) Commits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commits
}

// NewSurface allocates a surface tied to the device's current generation.
func (d *Software) NewSurface(width, height int) (*MemorySurface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, lostError("NewSurface")
	}
	s := NewMemorySurface(width, height)
	s.dev = d
	s.gen = d.generation
	return s, nil
}

// valid reports whether a surface of generation gen is still backed.
func (d *Software) valid(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.lost && d.generation == gen
}

// scratchImage returns an image of at least the given size, reusing the
// retained one when it is large enough. The returned image is sub-sliced to
// the exact size and cleared.
func (d *Software) scratchImage(width, height int) *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scratch == nil || d.scratch.Rect.Dx() < width || d.scratch.Rect.Dy() < height {
		d.scratch = image.NewRGBA(image.Rect(0, 0, width, height))
		return d.scratch
	}
	img := d.scratch.SubImage(image.Rect(0, 0, width, height)).(*image.RGBA)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		clear(row)
	}
	return img
}

func lostError(op string) error {
	return &rtb.Error{Kind: rtb.KindDeviceLost, Op: "device." + op}
}

var (
	_ rtb.Device         = (*Software)(nil)
	_ rtb.ResourceWaiter = (*Software)(nil)
)
