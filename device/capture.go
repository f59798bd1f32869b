// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/rtb"
)

// Painter is a visual that can draw itself. Bounds is its natural size.
type Painter interface {
	Bounds() image.Rectangle
	Paint(dst *image.RGBA)
}

// ErrNotPaintable is returned when a render root does not implement Painter.
var ErrNotPaintable = errors.New("device: visual cannot paint")

// SoftwareCapturer records Painter visuals on a Software device.
type SoftwareCapturer struct {
	dev    *Software
	scaler xdraw.Scaler
}

// NewSoftwareCapturer creates a capturer scaling with Catmull-Rom.
func NewSoftwareCapturer(dev *Software) *SoftwareCapturer {
	return &SoftwareCapturer{dev: dev, scaler: xdraw.CatmullRom}
}

// WithScaler returns a copy of c using s for resampling.
func (c *SoftwareCapturer) WithScaler(s xdraw.Scaler) *SoftwareCapturer {
	cp := *c
	cp.scaler = s
	return &cp
}

// Capture allocates the destination surface and queues the paint on the
// device. The pixels are filled, and done signaled, on the next Commit.
// A non-positive width or height uses the visual's natural size.
func (c *SoftwareCapturer) Capture(_ rtb.Frame, root rtb.Visual, width, height int, done *rtb.Event) (rtb.ByteSurface, error) {
	p, ok := root.(Painter)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotPaintable, root)
	}
	natural := p.Bounds()
	if natural.Empty() {
		return nil, fmt.Errorf("device: empty visual bounds %v", natural)
	}
	if width <= 0 || height <= 0 {
		width, height = natural.Dx(), natural.Dy()
	}

	dst, err := c.dev.NewSurface(width, height)
	if err != nil {
		return nil, err
	}

	err = c.dev.Enqueue(func() {
		c.paint(p, natural, dst)
		if done != nil {
			done.Signal()
		}
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

func (c *SoftwareCapturer) paint(p Painter, natural image.Rectangle, dst *MemorySurface) {
	src := c.dev.scratchImage(natural.Dx(), natural.Dy())
	p.Paint(src)

	dst.Draw(func(img *image.RGBA) {
		if src.Bounds().Size() == img.Bounds().Size() {
			xdraw.Draw(img, img.Bounds(), src, src.Bounds().Min, xdraw.Src)
			return
		}
		c.scaler.Scale(img, img.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	})
}
