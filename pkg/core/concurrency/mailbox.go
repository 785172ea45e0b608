// Package concurrency hides channel plumbing behind small queue abstractions.
package concurrency

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrMailboxFull   = errors.New("mailbox is full")
	ErrMailboxClosed = errors.New("mailbox is closed")
)

// Mailbox is a FIFO queue shared by producers and consumers.
//
// All methods are safe for concurrent use. After Close, pending and future
// Send/Receive calls return ErrMailboxClosed; queued messages are dropped.
type Mailbox[T any] interface {
	// Send enqueues msg without blocking; ErrMailboxFull if a bounded mailbox has no room
	Send(msg T) error

	// SendContext enqueues msg, waiting for room until ctx is done or the mailbox closes
	SendContext(ctx context.Context, msg T) error

	// Receive dequeues the oldest message, waiting until one arrives, ctx is done or the mailbox closes
	Receive(ctx context.Context) (T, error)

	// TryReceive dequeues the oldest message without waiting
	TryReceive() (T, bool)

	// Close closes the mailbox. Safe to call more than once.
	Close()

	// IsClosed reports whether Close has been called
	IsClosed() bool

	// Len returns the number of queued messages
	Len() int

	// Cap returns the capacity, 0 for unbounded
	Cap() int
}

// boundedMailbox is backed by a buffered channel
type boundedMailbox[T any] struct {
	ch        chan T
	closed    chan struct{}
	closeOnce sync.Once
}

// NewBoundedMailbox creates a mailbox holding at most capacity messages.
// Panics if capacity is not positive.
func NewBoundedMailbox[T any](capacity int) Mailbox[T] {
	validateCapacity(capacity)
	return &boundedMailbox[T]{
		ch:     make(chan T, capacity),
		closed: make(chan struct{}),
	}
}

func (m *boundedMailbox[T]) Send(msg T) error {
	if m.IsClosed() {
		return ErrMailboxClosed
	}
	select {
	case m.ch <- msg:
		return nil
	case <-m.closed:
		return ErrMailboxClosed
	default:
		return ErrMailboxFull
	}
}

func (m *boundedMailbox[T]) SendContext(ctx context.Context, msg T) error {
	if m.IsClosed() {
		return ErrMailboxClosed
	}
	select {
	case m.ch <- msg:
		return nil
	case <-m.closed:
		return ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *boundedMailbox[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	if m.IsClosed() {
		return zero, ErrMailboxClosed
	}
	select {
	case msg := <-m.ch:
		return msg, nil
	case <-m.closed:
		return zero, ErrMailboxClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (m *boundedMailbox[T]) TryReceive() (T, bool) {
	var zero T
	if m.IsClosed() {
		return zero, false
	}
	select {
	case msg := <-m.ch:
		return msg, true
	default:
		return zero, false
	}
}

func (m *boundedMailbox[T]) Close() {
	m.closeOnce.Do(func() {
		close(m.closed)
	})
}

func (m *boundedMailbox[T]) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *boundedMailbox[T]) Len() int {
	return len(m.ch)
}

func (m *boundedMailbox[T]) Cap() int {
	return cap(m.ch)
}

// unboundedMailbox is a growable slice with a wake-up signal
type unboundedMailbox[T any] struct {
	mu        sync.Mutex
	items     []T
	ready     chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewUnboundedMailbox creates a mailbox that never rejects or blocks a sender
func NewUnboundedMailbox[T any]() Mailbox[T] {
	return &unboundedMailbox[T]{
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// NewMailbox creates a bounded mailbox for capacity > 0 and an unbounded one for 0
func NewMailbox[T any](capacity int) Mailbox[T] {
	if capacity == 0 {
		return NewUnboundedMailbox[T]()
	}
	return NewBoundedMailbox[T](capacity)
}

func (m *unboundedMailbox[T]) Send(msg T) error {
	m.mu.Lock()
	if m.IsClosed() {
		m.mu.Unlock()
		return ErrMailboxClosed
	}
	m.items = append(m.items, msg)
	m.mu.Unlock()

	m.signal()
	return nil
}

func (m *unboundedMailbox[T]) SendContext(ctx context.Context, msg T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Send(msg)
}

func (m *unboundedMailbox[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	for {
		m.mu.Lock()
		if m.IsClosed() {
			m.mu.Unlock()
			return zero, ErrMailboxClosed
		}
		if len(m.items) > 0 {
			msg := m.items[0]
			m.items[0] = zero
			m.items = m.items[1:]
			more := len(m.items) > 0
			m.mu.Unlock()

			// pass the wake-up on so a second receiver sees the remaining items
			if more {
				m.signal()
			}
			return msg, nil
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-m.closed:
			return zero, ErrMailboxClosed
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func (m *unboundedMailbox[T]) TryReceive() (T, bool) {
	var zero T
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IsClosed() || len(m.items) == 0 {
		return zero, false
	}
	msg := m.items[0]
	m.items[0] = zero
	m.items = m.items[1:]
	return msg, true
}

func (m *unboundedMailbox[T]) signal() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *unboundedMailbox[T]) Close() {
	m.closeOnce.Do(func() {
		close(m.closed)
		m.mu.Lock()
		m.items = nil
		m.mu.Unlock()
	})
}

func (m *unboundedMailbox[T]) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *unboundedMailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *unboundedMailbox[T]) Cap() int {
	return 0
}
