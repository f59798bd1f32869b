// Command rtbdemo captures a small visual tree through the rtb pipeline and
// writes the pixels to a PNG file.
package main

import (
	"context"
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/rtb"
	"github.com/gogpu/rtb/bitmap"
	"github.com/gogpu/rtb/device"
)

func main() {
	var (
		width   = flag.Int("width", 0, "capture width (0 = natural size)")
		height  = flag.Int("height", 0, "capture height (0 = natural size)")
		output  = flag.String("output", "capture.png", "output file")
		backend = flag.String("backend", "", "device backend (default: best available)")
		verbose = flag.Bool("v", false, "log pipeline activity")
	)
	flag.Parse()

	if *verbose {
		rtb.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	dev, err := openDevice(*backend)
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	sw, ok := dev.(*device.Software)
	if !ok {
		log.Fatalf("Backend %T needs a host renderer; use -backend software", dev)
	}

	root := &scene{kind: rtb.KindRoot, size: image.Pt(640, 400)}
	panel := &scene{parent: root, size: image.Pt(320, 200)}

	m, err := rtb.New(&host{root: root}, rtb.WithDevice(sw))
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	defer m.Close()

	b := bitmap.New(m, device.NewSoftwareCapturer(sw))
	defer func() { _ = b.Release() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	render, err := b.RenderAsync(panel, *width, *height)
	if err != nil {
		log.Fatalf("Failed to request capture: %v", err)
	}
	if err := run(ctx, m, render.Done()); err != nil {
		log.Fatalf("Capture failed: %v", err)
	}
	size, err := render.Wait(ctx)
	if err != nil {
		log.Fatalf("Capture failed: %v", err)
	}

	pixels, err := b.GetPixelsAsync()
	if err != nil {
		log.Fatalf("Failed to request pixels: %v", err)
	}
	if err := run(ctx, m, pixels.Done()); err != nil {
		log.Fatalf("Readback failed: %v", err)
	}
	pix, err := pixels.Wait(ctx)
	if err != nil {
		log.Fatalf("Readback failed: %v", err)
	}

	img := &image.RGBA{Pix: pix, Stride: size.X * 4, Rect: image.Rectangle{Max: size}}
	if err := savePNG(*output, img); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	st := m.Stats()
	p := message.NewPrinter(language.English)
	log.Print(p.Sprintf("Capture saved to %s (%dx%d, %d bytes, %d frames)",
		*output, size.X, size.Y, len(pix), st.Frames))
}

func openDevice(name string) (rtb.Device, error) {
	if name == "" {
		return device.Open(device.Options{})
	}
	return device.OpenByName(name, device.Options{})
}

// run plays the UI loop: one tick per frame, draining completions between
// frames, until done is closed.
func run(ctx context.Context, m *rtb.Manager, done <-chan struct{}) error {
	frame := time.NewTicker(16 * time.Millisecond)
	defer frame.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-m.Queue().Ready():
			m.Queue().Drain()
		case <-frame.C:
			if _, err := m.Tick(ctx); err != nil {
				return err
			}
		}
	}
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// host is a minimal embedding framework with one always-live tree.
type host struct {
	root rtb.Visual
}

func (h *host) MainRoot() rtb.Visual       { return h.root }
func (h *host) IsSettingRootVisual() bool  { return false }
func (h *host) IsBackgroundTask() bool     { return false }
func (h *host) PendingDecodeCount() int    { return 0 }
func (h *host) FlushDecodeRequests() error { return nil }
func (h *host) IsDestroying() bool         { return false }

// scene is a visual that paints a gradient with a disc in the middle.
type scene struct {
	parent rtb.Visual
	kind   rtb.VisualKind
	size   image.Point
}

func (s *scene) Parent() rtb.Visual             { return s.parent }
func (s *scene) IsActive() bool                 { return s.kind != rtb.KindRoot }
func (s *scene) IsVisible() bool                { return true }
func (s *scene) Kind() rtb.VisualKind           { return s.kind }
func (s *scene) ReadyForCapture() (bool, error) { return true, nil }
func (s *scene) Bounds() image.Rectangle        { return image.Rectangle{Max: s.size} }

func (s *scene) Paint(dst *image.RGBA) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	cx, cy := w/2, h/2
	r := min(w, h) / 3
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{
				R: uint8(40 + 160*x/w),
				G: uint8(60 + 120*y/h),
				B: 160,
				A: 255,
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				c = color.RGBA{R: 255, G: 200, B: 0, A: 255}
			}
			dst.SetRGBA(b.Min.X+x, b.Min.Y+y, c)
		}
	}
}
