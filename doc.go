// Package rtb schedules asynchronous captures of UI subtrees into bitmaps.
//
// # Overview
//
// A capture request (an Element) moves through a per-frame pipeline driven
// by the UI goroutine:
//
//	Idle → Preparing → Rendering → Rendered → Committed → Drawing → Idle
//
// The Manager keeps one list per pipeline stage and moves elements between
// them as their state changes. Draw completion is observed off the UI
// goroutine: each PreCommit queues a WaitExecutor on a worker, which blocks
// on a completion handle and dispatches the result back to the UI goroutine
// through a Dispatcher. Pixel readbacks follow the same path with a
// PixelWaitExecutor.
//
// # Quick Start
//
//	dev := device.NewSoftware()
//	m, err := rtb.New(core, rtb.WithDevice(dev))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer m.Close()
//
//	bmp := bitmap.New(m, device.NewSoftwareCapturer(dev))
//	done := bmp.RenderAsync(root, 256, 256)
//
//	for !done.Completed() {
//		m.Tick(ctx)
//		<-m.Queue().Ready()
//		m.Queue().Drain()
//	}
//
// # Threading
//
// Manager methods are called on the UI goroutine only and take no locks.
// Workers only wait. Results never block the UI goroutine.
//
// # Device loss
//
// CleanupDeviceRelatedResources requeues live requests to Preparing and drops
// cached results; NeedsSurfaceContentsLost tells the framework to raise a
// contents-lost notification. CheckForLostSurfaceContent does the same for
// results the device discarded on its own.
//
// # Logging
//
// rtb logs through log/slog and is silent by default. See SetLogger.
package rtb
