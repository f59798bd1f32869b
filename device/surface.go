// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/rtb"
)

// MemorySurface is a CPU-backed capture surface using *image.RGBA.
//
// A surface created by Software.NewSurface becomes invalid when that
// device is lost. Standalone surfaces stay valid until Invalidate.
//
// MemorySurface is safe for concurrent use.
type MemorySurface struct {
	mu          sync.RWMutex
	img         *image.RGBA
	invalidated bool

	dev *Software
	gen uint64
}

// NewMemorySurface creates a standalone surface.
func NewMemorySurface(width, height int) *MemorySurface {
	return &MemorySurface{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Width returns the surface width in pixels.
func (s *MemorySurface) Width() int {
	return s.img.Bounds().Dx()
}

// Height returns the surface height in pixels.
func (s *MemorySurface) Height() int {
	return s.img.Bounds().Dy()
}

// Format returns the pixel format (RGBA8).
func (s *MemorySurface) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Valid reports whether the pixels are still backed by a live device.
func (s *MemorySurface) Valid() bool {
	s.mu.RLock()
	invalidated := s.invalidated
	s.mu.RUnlock()
	if invalidated {
		return false
	}
	return s.dev == nil || s.dev.valid(s.gen)
}

// Invalidate marks the surface as discarded.
func (s *MemorySurface) Invalidate() {
	s.mu.Lock()
	s.invalidated = true
	s.mu.Unlock()
}

// ReadBytes copies the pixels out, tightly packed RGBA rows.
func (s *MemorySurface) ReadBytes() ([]byte, error) {
	if !s.Valid() {
		return nil, lostError("ReadBytes")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, h := s.Width(), s.Height()
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		copy(out[y*w*4:(y+1)*w*4], s.img.Pix[y*s.img.Stride:y*s.img.Stride+w*4])
	}
	return out, nil
}

// Draw runs fn with exclusive access to the backing image.
func (s *MemorySurface) Draw(fn func(dst *image.RGBA)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.img)
}

// Clear fills the surface with c.
func (s *MemorySurface) Clear(c color.Color) {
	r, g, b, a := c.RGBA()
	//nolint:gosec // G115: shifted 16-bit values fit in uint8
	rgba := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}

	s.mu.Lock()
	defer s.mu.Unlock()
	bounds := s.img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			s.img.SetRGBA(x, y, rgba)
		}
	}
}

// At returns the color at (x, y).
func (s *MemorySurface) At(x, y int) color.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img.RGBAAt(x, y)
}

var _ rtb.ByteSurface = (*MemorySurface)(nil)
