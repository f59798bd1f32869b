package rtb

import (
	"context"
	"time"

	"github.com/gogpu/gputypes"
)

// Core is the slice of the embedding framework the Manager consults.
type Core interface {
	// MainRoot returns the root visual of the main tree.
	MainRoot() Visual

	// IsSettingRootVisual reports whether the application is in the middle
	// of replacing its root content. Pickup is suppressed meanwhile.
	IsSettingRootVisual() bool

	// IsBackgroundTask reports whether the host has no on-screen tree.
	IsBackgroundTask() bool

	// PendingDecodeCount returns the number of outstanding image decodes.
	PendingDecodeCount() int

	// FlushDecodeRequests submits queued decode requests.
	FlushDecodeRequests() error

	// IsDestroying reports whether the core is being torn down.
	IsDestroying() bool
}

// FrameReason tags a frame request for diagnostics.
type FrameReason int

const (
	// FrameReasonCaptureRetry requests a frame to retry a demoted capture.
	FrameReasonCaptureRetry FrameReason = iota + 1
)

// FrameScheduler schedules UI ticks.
type FrameScheduler interface {
	// RequestAdditionalFrame asks for another tick after delay.
	RequestAdditionalFrame(delay time.Duration, reason FrameReason) error
}

// WaitHandle is a waitable completion signal.
type WaitHandle interface {
	// Wait blocks for at most timeout. It returns true if the handle was
	// signaled, false on timeout.
	Wait(timeout time.Duration) (bool, error)

	// Close releases the handle. Close is idempotent.
	Close() error
}

// Device is the narrow slice of the GPU device used by the pipeline.
type Device interface {
	// CreateEventAndEnqueueWait returns a handle that is signaled once the
	// device has finished all work submitted so far.
	CreateEventAndEnqueueWait() (WaitHandle, error)

	// ReleaseScratchResources frees staging memory kept between captures.
	ReleaseScratchResources() error

	// Commit submits the frame's composition batch.
	Commit() error

	// IsLost probes for device loss.
	IsLost() (bool, error)
}

// ResourceWaiter is implemented by devices that recreate resources after
// loss. The Manager waits for it before queueing a draw wait so recovery
// does not starve the worker pool.
type ResourceWaiter interface {
	WaitForResourceCreation(ctx context.Context) error
}

// ByteSurface gives CPU access to captured pixels.
type ByteSurface interface {
	Width() int
	Height() int
	Format() gputypes.TextureFormat

	// Valid reports whether the surface still holds device-backed data.
	Valid() bool

	// ReadBytes copies the pixels out. A device-loss failure wraps
	// ErrDeviceLost.
	ReadBytes() ([]byte, error)
}

// ExecutorControl tracks the pixel readbacks issued for one element so they
// can be aborted together.
type ExecutorControl interface {
	AddPixelWaitExecutor(e *PixelWaitExecutor) error
	RemovePixelWaitExecutor(e *PixelWaitExecutor)
}

// WorkItem is a unit of background work created by a WorkItemFactory.
type WorkItem interface {
	Submit() error
}

// WorkItemFactory creates background work items. The function runs on a
// worker goroutine; ctx is canceled when the pool shuts down.
type WorkItemFactory interface {
	CreateWorkItem(fn func(ctx context.Context) error) (WorkItem, error)
}

// Frame identifies the UI tick in which PreCommit runs.
type Frame struct {
	// Seq increases by one per Manager.Tick.
	Seq uint64

	// Device is the manager's device.
	Device Device
}
