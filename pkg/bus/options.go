package bus

import (
	"github.com/fluxorio/arquebus/pkg/core"
	"github.com/fluxorio/arquebus/pkg/worker"
)

// ListenerConfig configures a listener's internal queue
type ListenerConfig struct {
	// QueueCapacity bounds the queue; 0 means unbounded.
	// A publish to a full listener waits until space frees or its context is done.
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity"`
}

// Option configures a Bus
type Option func(*options)

type options struct {
	logger          core.Logger
	observer        Observer
	executor        worker.Executor
	faultIsolation  bool
	atomicOnce      bool
	defaultCapacity int
}

func defaultOptions() options {
	return options{
		logger:   core.NewLogger(core.LoggerConfig{Level: "ERROR"}),
		executor: worker.NewGoExecutor(),
	}
}

// WithLogger sets the logger
func WithLogger(logger core.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver sets the activity observer (metrics, tracing)
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithExecutor sets the executor callbacks run on.
// Defaults to one goroutine per callback.
func WithExecutor(executor worker.Executor) Option {
	return func(o *options) {
		if executor != nil {
			o.executor = executor
		}
	}
}

// WithFaultIsolation keeps delivering to later subscribers after one fails.
// Publish then returns every failure combined into one error.
func WithFaultIsolation() Option {
	return func(o *options) {
		o.faultIsolation = true
	}
}

// WithAtomicOnce guards SubscribeOnce handlers so they run at most once,
// even when publishes to the same target overlap.
func WithAtomicOnce() Option {
	return func(o *options) {
		o.atomicOnce = true
	}
}

// WithDefaultQueueCapacity sets the capacity used by listeners created with a nil config
func WithDefaultQueueCapacity(capacity int) Option {
	return func(o *options) {
		o.defaultCapacity = capacity
	}
}
