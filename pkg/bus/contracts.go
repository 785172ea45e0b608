package bus

import (
	"context"
	"time"

	"github.com/fluxorio/arquebus/pkg/reactive"
)

// Handler handles one published message.
// A returned error (or a panic) propagates to the publisher.
type Handler[M any] func(ctx context.Context, msg M) error

// Kind distinguishes the two subscription variants
type Kind string

const (
	KindCallback Kind = "callback"
	KindListener Kind = "listener"
)

// Subscription is one registered consumer of a target.
type Subscription[K comparable, M any] interface {
	// Handle returns the handle identifying this subscription
	Handle() *Handle[K]

	// Run delivers data published to target and returns once delivery completes
	Run(ctx context.Context, target K, data M) error

	// Kind reports which variant this is
	Kind() Kind
}

// Listener is a pull-style subscription that buffers deliveries.
//
// Usage pattern:
//
//	l, err := b.CreateListener(target, nil)
//	if err != nil { ... }
//	defer l.Close()
//	msg, err := l.ListenContext(ctx)
type Listener[K comparable, M any] interface {
	Subscription[K, M]

	// Listen waits for the next message
	Listen() (M, error)

	// ListenContext waits for the next message or until ctx is done
	ListenContext(ctx context.Context) (M, error)

	// TryListen returns the next queued message without waiting
	TryListen() (M, bool)

	// Close unsubscribes the listener from its bus. Safe to call more than once.
	Close() error
}

// Unsubscriber removes a subscription by handle.
// Listeners hold one to deregister themselves on Close.
type Unsubscriber[K comparable] interface {
	Unsubscribe(h *Handle[K]) error
}

// EventBus provides strongly typed publish-subscribe within a process.
//
// Thread-safety: All methods are safe for concurrent use.
//
// Error handling: argument validation happens synchronously at the call
// boundary, before any delivery starts. Errors raised by a subscriber during
// a publish propagate to the publisher.
type EventBus[K comparable, M any] interface {
	Unsubscriber[K]

	// Subscribe registers handler for every future publish to target
	Subscribe(target K, handler Handler[M]) (*Handle[K], error)

	// SubscribeOnce registers handler for the next publish to target only
	SubscribeOnce(target K, handler Handler[M]) (*Handle[K], error)

	// UnsubscribeAll removes every subscription registered for target
	UnsubscribeAll(target K) error

	// Publish delivers data to every subscription of target and waits for completion
	Publish(ctx context.Context, target K, data M) error

	// PublishAsync starts delivery and returns a future resolving to the number of deliveries
	PublishAsync(ctx context.Context, target K, data M) (*reactive.Future[int], error)

	// PublishValue publishes a value that must be assignable to M
	PublishValue(ctx context.Context, target K, data interface{}) error

	// PublishValueAsync is the asynchronous form of PublishValue
	PublishValueAsync(ctx context.Context, target K, data interface{}) (*reactive.Future[int], error)

	// CreateListener registers a new listener for target. A nil cfg uses the bus default capacity.
	CreateListener(target K, cfg *ListenerConfig) (Listener[K, M], error)

	// Listen collects every message published to target until ctx is done
	Listen(ctx context.Context, target K, cfg *ListenerConfig) ([]M, error)

	// ListenAsync is the asynchronous form of Listen
	ListenAsync(ctx context.Context, target K, cfg *ListenerConfig) (*reactive.Future[[]M], error)

	// ListenFixedTimes collects up to times messages, or fewer if ctx is done first
	ListenFixedTimes(ctx context.Context, target K, times int, cfg *ListenerConfig) ([]M, error)

	// ListenFixedTimesAsync is the asynchronous form of ListenFixedTimes
	ListenFixedTimesAsync(ctx context.Context, target K, times int, cfg *ListenerConfig) (*reactive.Future[[]M], error)

	// IsSubscribed reports whether the subscription identified by h is registered
	IsSubscribed(h *Handle[K]) bool

	// HasSubscriptions reports whether target has at least one subscription
	HasSubscriptions(target K) bool
}

// Observer receives notifications about bus activity.
// Targets are rendered with fmt.Sprint. Implementations must be safe for concurrent use.
type Observer interface {
	// Published is called once per publish with the number of subscriptions resolved
	Published(target string, subscribers int)

	// Delivered is called after each delivery attempt
	Delivered(target string, kind Kind, elapsed time.Duration, err error)

	// Subscribed is called after a subscription is registered
	Subscribed(target string, kind Kind)

	// Unsubscribed is called after a subscription is removed
	Unsubscribed(target string, kind Kind)
}
