package rtb

import (
	"log/slog"
	"time"
)

// DefaultPollInterval is how long a wait loop blocks before re-checking
// whether the manager is still alive.
const DefaultPollInterval = 200 * time.Millisecond

// Option configures a Manager during creation.
//
// Example:
//
//	m, err := rtb.New(core,
//		rtb.WithDevice(device.NewSoftware()),
//		rtb.WithWorkers(2),
//	)
type Option func(*options)

// options holds optional configuration for Manager creation.
type options struct {
	device     Device
	factory    WorkItemFactory
	workers    int
	queueSize  int
	scheduler  FrameScheduler
	dispatcher Dispatcher
	poll       time.Duration
	shared     bool
	logger     *slog.Logger
}

// defaultOptions returns the default manager options.
func defaultOptions() options {
	return options{
		workers:   0, // GOMAXPROCS
		queueSize: 64,
		poll:      DefaultPollInterval,
	}
}

// WithDevice sets the device the manager probes, commits and reads back
// from. Required.
func WithDevice(d Device) Option {
	return func(o *options) {
		o.device = d
	}
}

// WithWorkItemFactory runs wait loops on an external work-item facility
// instead of the manager's own worker pool.
func WithWorkItemFactory(f WorkItemFactory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithWorkers sizes the manager's own worker pool. Ignored when a
// WorkItemFactory is set. Zero or less means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithFrameScheduler sets where capture retries request their next frame.
func WithFrameScheduler(s FrameScheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithDispatcher routes completions through d. Without it the manager
// creates a Queue, available from Manager.Queue, that the UI loop drains.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// WithPollInterval sets the wait loop timeout. Non-positive values keep
// DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.poll = d
		}
	}
}

// WithSharedCompletion makes PreCommit use one completion event per frame
// for all Rendered elements, for back-ends that complete a frame's captures
// as one batch.
func WithSharedCompletion(shared bool) Option {
	return func(o *options) {
		o.shared = shared
	}
}

// WithLogger sets the manager's logger. Without it the package logger
// (see SetLogger) is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
