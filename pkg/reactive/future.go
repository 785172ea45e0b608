// Package reactive provides awaitable asynchronous results.
// Inspired by Vert.x reactive patterns.
package reactive

import (
	"context"
	"sync"
)

// Result represents the outcome of a future
type Result[T any] struct {
	Value T
	Error error
}

// Future represents an asynchronous computation producing a T.
//
// A Future settles exactly once, with either a value or an error. It doubles as
// its own Promise: the producer calls Complete or Fail, consumers Await or
// register handlers.
type Future[T any] struct {
	done            chan struct{}
	once            sync.Once
	mu              sync.Mutex
	completed       bool
	result          Result[T]
	successHandlers []func(T)
	failureHandlers []func(error)
}

// NewFuture creates a new pending future
func NewFuture[T any]() *Future[T] {
	return &Future[T]{
		done: make(chan struct{}),
	}
}

// Go runs fn on its own goroutine and returns a future for its result.
// When fn fails, the future keeps the partial value alongside the error.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		v, err := fn()
		f.settle(Result[T]{Value: v, Error: err})
	}()
	return f
}

// Complete completes the future with a result. No-op if already settled.
func (f *Future[T]) Complete(v T) {
	f.settle(Result[T]{Value: v})
}

// Fail fails the future with an error. No-op if already settled.
func (f *Future[T]) Fail(err error) {
	f.settle(Result[T]{Error: err})
}

func (f *Future[T]) settle(r Result[T]) bool {
	settled := false
	f.once.Do(func() {
		f.mu.Lock()
		f.completed = true
		f.result = r
		success, failure := f.successHandlers, f.failureHandlers
		f.successHandlers, f.failureHandlers = nil, nil
		f.mu.Unlock()

		close(f.done)

		if r.Error == nil {
			for _, handler := range success {
				handler(r.Value)
			}
		} else {
			for _, handler := range failure {
				handler(r.Error)
			}
		}
		settled = true
	})
	return settled
}

// Done returns a channel closed once the future settles
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsCompleted reports whether the future has settled
func (f *Future[T]) IsCompleted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Result returns the outcome and whether the future has settled
func (f *Future[T]) Result() (Result[T], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.completed
}

// Await blocks until the future settles or ctx is done
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		r, _ := f.Result()
		return r.Value, r.Error
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get blocks until the future settles
func (f *Future[T]) Get() (T, error) {
	<-f.done
	r, _ := f.Result()
	return r.Value, r.Error
}

// OnSuccess registers a success handler
func (f *Future[T]) OnSuccess(handler func(T)) *Future[T] {
	f.mu.Lock()
	if f.completed {
		r := f.result
		f.mu.Unlock()
		if r.Error == nil {
			handler(r.Value)
		}
		return f
	}
	f.successHandlers = append(f.successHandlers, handler)
	f.mu.Unlock()
	return f
}

// OnFailure registers a failure handler
func (f *Future[T]) OnFailure(handler func(error)) *Future[T] {
	f.mu.Lock()
	if f.completed {
		r := f.result
		f.mu.Unlock()
		if r.Error != nil {
			handler(r.Error)
		}
		return f
	}
	f.failureHandlers = append(f.failureHandlers, handler)
	f.mu.Unlock()
	return f
}

// Map transforms the result
func Map[T, U any](f *Future[T], fn func(T) U) *Future[U] {
	mapped := NewFuture[U]()

	f.OnSuccess(func(v T) {
		mapped.Complete(fn(v))
	})

	f.OnFailure(func(err error) {
		mapped.Fail(err)
	})

	return mapped
}
