package bus

import (
	"context"
	"errors"

	"github.com/fluxorio/arquebus/pkg/core"
	"github.com/fluxorio/arquebus/pkg/core/concurrency"
	"github.com/fluxorio/arquebus/pkg/core/fsm"
)

// ListenerState is the lifecycle state of a listener
type ListenerState string

const (
	ListenerActive   ListenerState = "ACTIVE"
	ListenerReleased ListenerState = "RELEASED"
)

type listenerEvent string

const eventRelease listenerEvent = "release"

// ListenerSubscription queues deliveries for a consumer that pulls them
// with Listen. Messages are received in the order they were delivered.
type ListenerSubscription[K comparable, M any] struct {
	handle  *Handle[K]
	owner   Unsubscriber[K]
	mailbox concurrency.Mailbox[M]
	state   *fsm.Machine[ListenerState, listenerEvent]
}

// NewListener creates a listener for target that deregisters itself from owner on Close.
// A nil cfg means an unbounded queue.
func NewListener[K comparable, M any](target K, owner Unsubscriber[K], cfg *ListenerConfig) (*ListenerSubscription[K, M], error) {
	if err := core.ValidateTarget(target); err != nil {
		return nil, err
	}
	if err := core.ValidateNotNil("owner", owner); err != nil {
		return nil, err
	}
	capacity := 0
	if cfg != nil {
		capacity = cfg.QueueCapacity
	}
	if err := core.ValidateCapacity(capacity); err != nil {
		return nil, err
	}

	l := &ListenerSubscription[K, M]{
		handle:  NewHandle(target),
		owner:   owner,
		mailbox: concurrency.NewMailbox[M](capacity),
		state:   fsm.New[ListenerState, listenerEvent](ListenerActive),
	}
	l.state.
		AddTransition(ListenerActive, eventRelease, ListenerReleased).
		OnEnter(ListenerReleased, func(ListenerState, listenerEvent) {
			l.mailbox.Close()
		})
	return l, nil
}

func (l *ListenerSubscription[K, M]) Handle() *Handle[K] {
	return l.handle
}

func (l *ListenerSubscription[K, M]) Kind() Kind {
	return KindListener
}

// Run enqueues data. On a full bounded queue it waits for room or for ctx.
func (l *ListenerSubscription[K, M]) Run(ctx context.Context, target K, data M) error {
	if err := core.ValidateContext(ctx); err != nil {
		return err
	}
	if err := core.ValidateTarget(target); err != nil {
		return err
	}
	if l.state.Is(ListenerReleased) {
		return core.ErrListenerReleased
	}
	return released(l.mailbox.SendContext(ctx, data))
}

func (l *ListenerSubscription[K, M]) Listen() (M, error) {
	return l.ListenContext(context.Background())
}

func (l *ListenerSubscription[K, M]) ListenContext(ctx context.Context) (M, error) {
	if err := core.ValidateContext(ctx); err != nil {
		var zero M
		return zero, err
	}
	if l.state.Is(ListenerReleased) {
		var zero M
		return zero, core.ErrListenerReleased
	}
	msg, err := l.mailbox.Receive(ctx)
	return msg, released(err)
}

func (l *ListenerSubscription[K, M]) TryListen() (M, bool) {
	return l.mailbox.TryReceive()
}

// Close releases the listener. Only the first call unsubscribes; queued
// messages are dropped and blocked Listen calls return ErrListenerReleased.
func (l *ListenerSubscription[K, M]) Close() error {
	if err := l.state.Trigger(eventRelease); err != nil {
		return nil
	}
	return l.owner.Unsubscribe(l.handle)
}

// State returns the lifecycle state
func (l *ListenerSubscription[K, M]) State() ListenerState {
	return l.state.Current()
}

// Len returns the number of queued messages
func (l *ListenerSubscription[K, M]) Len() int {
	return l.mailbox.Len()
}

// Cap returns the queue capacity, 0 for unbounded
func (l *ListenerSubscription[K, M]) Cap() int {
	return l.mailbox.Cap()
}

func released(err error) error {
	if errors.Is(err, concurrency.ErrMailboxClosed) {
		return core.ErrListenerReleased
	}
	return err
}
