package rtb

import (
	"errors"
	"fmt"
)

// ErrorKind classifies capture failures by how they propagate.
type ErrorKind int

const (
	// KindUnknown is reported for errors that did not originate in rtb.
	KindUnknown ErrorKind = iota

	// KindIneligible means the render root cannot be captured right now
	// (inactive, invisible, wrong ancestor type, or itself a capture root).
	// The request is consumed through Element.FailRender.
	KindIneligible

	// KindNotReady means the subtree is mid-layout or waiting on decodes.
	// The manager retries it on the next frame; it never escapes.
	KindNotReady

	// KindDeviceLost means the GPU device became invalid. Recoverable:
	// live requests are requeued, cached results raise contents-lost.
	KindDeviceLost

	// KindFatal means an unrecoverable failure (broken list invariant,
	// resource exhaustion). It propagates out of the frame.
	KindFatal

	// KindReadback means a single pixel readback failed. It is reported
	// only through that request's PixelsOperation.
	KindReadback
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindIneligible:
		return "Ineligible"
	case KindNotReady:
		return "NotReady"
	case KindDeviceLost:
		return "DeviceLost"
	case KindFatal:
		return "Fatal"
	case KindReadback:
		return "Readback"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Error is a classified capture failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := "rtb: " + e.Kind.String()
	if e.Op != "" {
		msg = "rtb: " + e.Op + ": " + e.Kind.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package sentinels work
// with errors.Is regardless of Op and cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinel kinds, for use with errors.Is.
var (
	ErrIneligible = &Error{Kind: KindIneligible}
	ErrNotReady   = &Error{Kind: KindNotReady}
	ErrDeviceLost = &Error{Kind: KindDeviceLost}
	ErrFatal      = &Error{Kind: KindFatal}
	ErrReadback   = &Error{Kind: KindReadback}
)

// Plain sentinels.
var (
	// ErrClosed is returned by operations on a closed Manager or Queue.
	ErrClosed = errors.New("rtb: closed")

	// ErrHandleClosed is returned by waits on a closed WaitHandle.
	ErrHandleClosed = errors.New("rtb: wait handle closed")

	// ErrQueueFull is returned when the work-item pool rejects a wait.
	ErrQueueFull = errors.New("rtb: work queue full")

	// ErrInvalidTransition is wrapped in a KindFatal error when an element
	// reports a state its lists cannot reach.
	ErrInvalidTransition = errors.New("rtb: invalid state transition")
)

// newError wraps err with a kind and operation name.
func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
// Errors wrapping ErrClosed are reported as KindFatal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrClosed) {
		return KindFatal
	}
	return KindUnknown
}

// IsDeviceLost reports whether err signals GPU device loss.
func IsDeviceLost(err error) bool {
	return errors.Is(err, ErrDeviceLost)
}
