package rtb

// Element is one capture request as seen by the Manager.
//
// The embedding framework owns elements. SetState must store the new state
// and then call Manager.OnSetCurrentState so the manager's lists follow the
// state. An element must be removed with Manager.RemoveRenderTargetElement
// before its owner drops it.
//
// All methods are called on the UI goroutine.
type Element interface {
	// State returns the current state.
	State() State

	// SetState stores s and notifies the manager.
	SetState(s State) error

	// HasHardwareResources reports whether GPU-backed capture data is cached.
	HasHardwareResources() bool

	// HasLostHardwareResources reports whether cached data was discarded by
	// the device (for example across suspend).
	HasLostHardwareResources() bool

	// RequiresContentsLostNotification reports whether losing the cached
	// data must be surfaced to listeners.
	RequiresContentsLostNotification() bool

	// PreCommit starts the composition/capture path for this frame.
	// The element (or its back-end) signals completion when the draw is done.
	PreCommit(f Frame, completion *Event) error

	// PostDraw finishes a capture. It normally moves the element to Idle.
	PostDraw() error

	// FailRender aborts the request and moves the element to Idle.
	FailRender(err error)

	// CleanupHardwareResources releases every device resource held by the
	// element after device loss.
	CleanupHardwareResources(cleanupComposition bool)

	// AbortPixelWaits fails every pending pixel readback with err.
	AbortPixelWaits(err error)

	// Data returns the per-request render data. It may be nil.
	Data() ElementData
}

// ElementData carries the per-request render state of an Element.
type ElementData interface {
	// RenderRoot returns the subtree being captured.
	RenderRoot() Visual

	// ResetState discards partially recorded render state before a retry.
	ResetState()

	// CleanupDeviceResources drops cached device resources only, without
	// the exhaustive walk done on device loss.
	CleanupDeviceResources()

	// UpdateMetrics refreshes size/scale metrics of a pending request.
	UpdateMetrics() error
}

// VisualKind is the node type of a Visual, as far as capture eligibility
// is concerned.
type VisualKind int

const (
	// KindElement is an ordinary UI element.
	KindElement VisualKind = iota

	// KindRoot is a root visual. Roots are never active; only the core's
	// main root may appear in a captured ancestor chain.
	KindRoot

	// KindCaptureRoot is the root of a capture output tree. Capturing it
	// would recurse.
	KindCaptureRoot

	// KindPopup is a UI element whose subtree is composed separately and
	// cannot be captured through.
	KindPopup

	// KindForeign is a node that is not a UI element (a resource owner or
	// host object). It may not parent a captured element.
	KindForeign
)

// Visual is a node of the live scene graph.
type Visual interface {
	// Parent returns the parent node, or nil at the top of the tree.
	Parent() Visual

	// IsActive reports whether the node is in the live tree.
	IsActive() bool

	// IsVisible reports whether the node is rendered.
	IsVisible() bool

	// Kind returns the node type.
	Kind() VisualKind

	// ReadyForCapture reports whether the subtree's layout and decodes are
	// complete enough to record this frame.
	ReadyForCapture() (bool, error)
}
