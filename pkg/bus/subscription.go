package bus

import (
	"context"
	"fmt"

	"github.com/fluxorio/arquebus/pkg/core"
	"github.com/fluxorio/arquebus/pkg/worker"
)

// CallbackSubscription invokes a handler for every delivery
type CallbackSubscription[K comparable, M any] struct {
	handle   *Handle[K]
	handler  Handler[M]
	executor worker.Executor
}

// NewCallbackSubscription creates a callback subscription.
// A nil executor runs the handler on a fresh goroutine.
func NewCallbackSubscription[K comparable, M any](handle *Handle[K], handler Handler[M], executor worker.Executor) (*CallbackSubscription[K, M], error) {
	if handle == nil {
		return nil, core.NullArgument("handle")
	}
	if handler == nil {
		return nil, core.NullArgument("handler")
	}
	if executor == nil {
		executor = worker.NewGoExecutor()
	}
	return &CallbackSubscription[K, M]{
		handle:   handle,
		handler:  handler,
		executor: executor,
	}, nil
}

func (s *CallbackSubscription[K, M]) Handle() *Handle[K] {
	return s.handle
}

func (s *CallbackSubscription[K, M]) Kind() Kind {
	return KindCallback
}

// Run schedules the handler on the executor and waits for it to finish.
// A panic in the handler is returned as ErrCallbackPanic.
func (s *CallbackSubscription[K, M]) Run(ctx context.Context, target K, data M) error {
	if err := core.ValidateContext(ctx); err != nil {
		return err
	}
	if err := core.ValidateTarget(target); err != nil {
		return err
	}

	done := make(chan error, 1)
	if err := s.executor.Submit(func() {
		done <- s.invoke(ctx, data)
	}); err != nil {
		return err
	}
	return <-done
}

func (s *CallbackSubscription[K, M]) invoke(ctx context.Context, data M) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.EventBusError{
				Code:    core.CodeCallbackPanic,
				Message: fmt.Sprintf("callback %s panicked: %v", s.handle, r),
			}
		}
	}()
	return s.handler(ctx, data)
}
