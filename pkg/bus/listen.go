package bus

import (
	"context"
	"errors"

	"github.com/fluxorio/arquebus/pkg/core"
	"github.com/fluxorio/arquebus/pkg/reactive"
)

// ListenAs waits for the next message on l and converts it to Out
func ListenAs[Out any, K comparable, M any](l Listener[K, M]) (Out, error) {
	return ListenAsContext[Out](context.Background(), l)
}

// ListenAsContext waits for the next message on l, or until ctx is done, and converts it to Out
func ListenAsContext[Out any, K comparable, M any](ctx context.Context, l Listener[K, M]) (Out, error) {
	if err := core.ValidateNotNil("listener", l); err != nil {
		var zero Out
		return zero, err
	}
	msg, err := l.ListenContext(ctx)
	if err != nil {
		var zero Out
		return zero, err
	}
	return As[Out](msg)
}

// ListenAsyncAs registers a listener on target before returning, then collects
// every message converted to Out until ctx is done. Absent messages are dropped.
func ListenAsyncAs[Out any, K comparable, M any](ctx context.Context, b *Bus[K, M], target K, cfg *ListenerConfig) (*reactive.Future[[]Out], error) {
	return startCollect[Out](ctx, b, target, 0, cfg)
}

// ListenFixedTimesAsyncAs is ListenAsyncAs stopping after times receives
func ListenFixedTimesAsyncAs[Out any, K comparable, M any](ctx context.Context, b *Bus[K, M], target K, times int, cfg *ListenerConfig) (*reactive.Future[[]Out], error) {
	if err := core.ValidateTarget(target); err != nil {
		return nil, err
	}
	if err := core.ValidateTimes(times); err != nil {
		return nil, err
	}
	return startCollect[Out](ctx, b, target, times, cfg)
}

func startCollect[Out any, K comparable, M any](ctx context.Context, b *Bus[K, M], target K, times int, cfg *ListenerConfig) (*reactive.Future[[]Out], error) {
	if b == nil {
		return nil, core.NullArgument("bus")
	}
	if err := core.ValidateContext(ctx); err != nil {
		return nil, err
	}
	l, err := b.CreateListener(target, cfg)
	if err != nil {
		return nil, err
	}
	return reactive.Go(func() ([]Out, error) {
		defer l.Close()
		return collect[Out](ctx, l, times)
	}), nil
}

// collect receives until ctx is done or, when times > 0, after times receives.
// Cancellation ends collection without error, keeping messages already queued.
func collect[Out any, K comparable, M any](ctx context.Context, l Listener[K, M], times int) ([]Out, error) {
	results := make([]Out, 0)
	for i := 0; times == 0 || i < times; i++ {
		if ctx.Err() != nil {
			return drain[Out](l, results, times-i)
		}
		msg, err := l.ListenContext(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return drain[Out](l, results, times-i)
			}
			return results, err
		}
		if results, err = appendAs(results, msg); err != nil {
			return results, err
		}
	}
	return results, nil
}

// drain appends up to limit queued messages without waiting; limit <= 0 means all
func drain[Out any, K comparable, M any](l Listener[K, M], results []Out, limit int) ([]Out, error) {
	for n := 0; limit <= 0 || n < limit; n++ {
		msg, ok := l.TryListen()
		if !ok {
			break
		}
		var err error
		if results, err = appendAs(results, msg); err != nil {
			return results, err
		}
	}
	return results, nil
}

// appendAs appends msg converted to Out, skipping absent messages
func appendAs[Out any, M any](results []Out, msg M) ([]Out, error) {
	if core.IsNil(msg) {
		return results, nil
	}
	out, err := As[Out](msg)
	if err != nil {
		return results, err
	}
	return append(results, out), nil
}
