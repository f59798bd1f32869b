// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bitmap

import (
	"image"

	"github.com/gogpu/rtb"
)

// bounded is implemented by visuals that know their natural pixel size.
type bounded interface {
	Bounds() image.Rectangle
}

// renderData is the request half of a Bitmap.
type renderData struct {
	b *Bitmap

	root          rtb.Visual
	width, height int

	// pixels is the expected capture size, refreshed by UpdateMetrics.
	pixels image.Point
	resets int
}

func (d *renderData) RenderRoot() rtb.Visual { return d.root }

// ResetState drops the capture recorded for a frame that was demoted.
func (d *renderData) ResetState() {
	release(d.b.inflight)
	d.b.inflight = nil
	d.resets++
}

// CleanupDeviceResources drops the cached capture the device discarded.
func (d *renderData) CleanupDeviceResources() {
	if d.b.surface != nil {
		d.b.contentsLost = true
	}
	d.b.dropSurfaces()
}

// UpdateMetrics recomputes the expected pixel size. A zero dimension
// selects the natural size of bounded roots; other roots keep the
// requested size.
func (d *renderData) UpdateMetrics() error {
	w, h := d.width, d.height
	if b, ok := d.root.(bounded); ok && (w == 0 || h == 0) {
		r := b.Bounds()
		w, h = r.Dx(), r.Dy()
	}
	d.pixels = image.Pt(w, h)
	return nil
}
