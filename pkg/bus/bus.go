// Package bus provides a strongly typed, in-process publish-subscribe bus.
//
// Messages of type M are published to targets of type K. Each target has its
// own set of subscriptions, which are either callbacks (pushed to) or
// listeners (pulled from).
package bus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/fluxorio/arquebus/pkg/core"
	"github.com/fluxorio/arquebus/pkg/reactive"
)

// TargetInfo summarises the subscriptions registered for one target
type TargetInfo struct {
	Target    string `json:"target"`
	Callbacks int    `json:"callbacks"`
	Listeners int    `json:"listeners"`
}

type registration[K comparable, M any] struct {
	seq uint64
	sub Subscription[K, M]
}

type entry[K comparable, M any] struct {
	subs map[uuid.UUID]*registration[K, M]
}

// Bus implements EventBus
type Bus[K comparable, M any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[K, M]
	seq     atomic.Uint64
	opts    options
	logger  core.Logger
}

var _ EventBus[string, interface{}] = (*Bus[string, interface{}])(nil)

// New creates an empty bus
func New[K comparable, M any](opts ...Option) *Bus[K, M] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Bus[K, M]{
		entries: make(map[K]*entry[K, M]),
		opts:    o,
		logger:  o.logger,
	}
}

// Subscribe registers handler for every future publish to target
func (b *Bus[K, M]) Subscribe(target K, handler Handler[M]) (*Handle[K], error) {
	if err := core.ValidateTarget(target); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, core.NullArgument("handler")
	}

	sub, err := NewCallbackSubscription(NewHandle(target), handler, b.opts.executor)
	if err != nil {
		return nil, err
	}
	b.add(target, sub)
	return sub.Handle(), nil
}

// SubscribeOnce registers handler for the next publish to target.
// The subscription removes itself before the handler runs. Unless the bus was
// built WithAtomicOnce, overlapping publishes may each run the handler.
func (b *Bus[K, M]) SubscribeOnce(target K, handler Handler[M]) (*Handle[K], error) {
	if err := core.ValidateTarget(target); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, core.NullArgument("handler")
	}

	handle := NewHandle(target)
	var fired atomic.Bool
	once := func(ctx context.Context, msg M) error {
		if b.opts.atomicOnce && !fired.CompareAndSwap(false, true) {
			return nil
		}
		if err := b.Unsubscribe(handle); err != nil {
			return err
		}
		return handler(ctx, msg)
	}

	sub, err := NewCallbackSubscription(handle, Handler[M](once), b.opts.executor)
	if err != nil {
		return nil, err
	}
	b.add(target, sub)
	return handle, nil
}

// Unsubscribe removes the subscription identified by h. Unknown handles are ignored.
func (b *Bus[K, M]) Unsubscribe(h *Handle[K]) error {
	if h == nil {
		return core.NullArgument("handle")
	}

	b.mu.Lock()
	var reg *registration[K, M]
	if e, ok := b.entries[h.target]; ok {
		reg = e.subs[h.id]
		delete(e.subs, h.id)
	}
	b.mu.Unlock()

	if reg != nil {
		b.unsubscribed(h.target, reg.sub)
	}
	return nil
}

// UnsubscribeAll removes every subscription of target.
// Listeners removed this way stay open until closed by their owner.
func (b *Bus[K, M]) UnsubscribeAll(target K) error {
	if err := core.ValidateTarget(target); err != nil {
		return err
	}

	b.mu.Lock()
	e, ok := b.entries[target]
	delete(b.entries, target)
	b.mu.Unlock()

	if !ok {
		return nil
	}
	for _, reg := range e.subs {
		b.unsubscribed(target, reg.sub)
	}
	return nil
}

// Publish delivers data to every subscription of target on the calling goroutine
func (b *Bus[K, M]) Publish(ctx context.Context, target K, data M) error {
	if err := b.validatePublish(ctx, target); err != nil {
		return err
	}
	return b.publish(ctx, target, data)
}

// PublishAsync resolves the subscriptions of target and delivers data on a new goroutine.
// The future resolves to the number of successful deliveries.
func (b *Bus[K, M]) PublishAsync(ctx context.Context, target K, data M) (*reactive.Future[int], error) {
	if err := b.validatePublish(ctx, target); err != nil {
		return nil, err
	}
	return b.publishAsync(ctx, target, data), nil
}

// PublishValue publishes data after converting it to M
func (b *Bus[K, M]) PublishValue(ctx context.Context, target K, data interface{}) error {
	if err := b.validatePublish(ctx, target); err != nil {
		return err
	}
	msg, err := As[M](data)
	if err != nil {
		return err
	}
	return b.publish(ctx, target, msg)
}

// PublishValueAsync is the asynchronous form of PublishValue
func (b *Bus[K, M]) PublishValueAsync(ctx context.Context, target K, data interface{}) (*reactive.Future[int], error) {
	if err := b.validatePublish(ctx, target); err != nil {
		return nil, err
	}
	msg, err := As[M](data)
	if err != nil {
		return nil, err
	}
	return b.publishAsync(ctx, target, msg), nil
}

// CreateListener registers a listener for target.
// The caller owns it and must Close it to unsubscribe.
func (b *Bus[K, M]) CreateListener(target K, cfg *ListenerConfig) (Listener[K, M], error) {
	if err := core.ValidateTarget(target); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &ListenerConfig{QueueCapacity: b.opts.defaultCapacity}
	}
	l, err := NewListener[K, M](target, b, cfg)
	if err != nil {
		return nil, err
	}
	b.add(target, l)
	return l, nil
}

// Listen collects messages published to target until ctx is done
func (b *Bus[K, M]) Listen(ctx context.Context, target K, cfg *ListenerConfig) ([]M, error) {
	f, err := b.ListenAsync(ctx, target, cfg)
	if err != nil {
		return nil, err
	}
	return f.Get()
}

// ListenAsync registers a listener immediately and collects messages on a new goroutine
func (b *Bus[K, M]) ListenAsync(ctx context.Context, target K, cfg *ListenerConfig) (*reactive.Future[[]M], error) {
	return ListenAsyncAs[M](ctx, b, target, cfg)
}

// ListenFixedTimes collects up to times messages published to target
func (b *Bus[K, M]) ListenFixedTimes(ctx context.Context, target K, times int, cfg *ListenerConfig) ([]M, error) {
	f, err := b.ListenFixedTimesAsync(ctx, target, times, cfg)
	if err != nil {
		return nil, err
	}
	return f.Get()
}

// ListenFixedTimesAsync is the asynchronous form of ListenFixedTimes
func (b *Bus[K, M]) ListenFixedTimesAsync(ctx context.Context, target K, times int, cfg *ListenerConfig) (*reactive.Future[[]M], error) {
	return ListenFixedTimesAsyncAs[M](ctx, b, target, times, cfg)
}

// IsSubscribed reports whether the subscription identified by h is registered
func (b *Bus[K, M]) IsSubscribed(h *Handle[K]) bool {
	if h == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[h.target]
	if !ok {
		return false
	}
	_, ok = e.subs[h.id]
	return ok
}

// HasSubscriptions reports whether target has at least one subscription
func (b *Bus[K, M]) HasSubscriptions(target K) bool {
	return b.SubscriptionCount(target) > 0
}

// SubscriptionCount returns the number of subscriptions of target
func (b *Bus[K, M]) SubscriptionCount(target K) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.entries[target]; ok {
		return len(e.subs)
	}
	return 0
}

// Targets returns every target that has been touched and not cleared by UnsubscribeAll
func (b *Bus[K, M]) Targets() []K {
	b.mu.RLock()
	defer b.mu.RUnlock()
	targets := make([]K, 0, len(b.entries))
	for target := range b.entries {
		targets = append(targets, target)
	}
	return targets
}

// Snapshot returns per-target subscription counts ordered by target name
func (b *Bus[K, M]) Snapshot() []TargetInfo {
	b.mu.RLock()
	infos := make([]TargetInfo, 0, len(b.entries))
	for target, e := range b.entries {
		info := TargetInfo{Target: fmt.Sprint(target)}
		for _, reg := range e.subs {
			if reg.sub.Kind() == KindListener {
				info.Listeners++
			} else {
				info.Callbacks++
			}
		}
		infos = append(infos, info)
	}
	b.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Target < infos[j].Target
	})
	return infos
}

func (b *Bus[K, M]) validatePublish(ctx context.Context, target K) error {
	if err := core.ValidateContext(ctx); err != nil {
		return err
	}
	return core.ValidateTarget(target)
}

// publish and publishAsync deliver already validated arguments
func (b *Bus[K, M]) publish(ctx context.Context, target K, data M) error {
	_, err := b.dispatch(ctx, target, data, b.resolve(target))
	return err
}

func (b *Bus[K, M]) publishAsync(ctx context.Context, target K, data M) *reactive.Future[int] {
	regs := b.resolve(target)
	return reactive.Go(func() (int, error) {
		return b.dispatch(ctx, target, data, regs)
	})
}

func (b *Bus[K, M]) add(target K, sub Subscription[K, M]) {
	reg := &registration[K, M]{seq: b.seq.Add(1), sub: sub}

	b.mu.Lock()
	e := b.entryLocked(target)
	e.subs[sub.Handle().id] = reg
	b.mu.Unlock()

	if b.opts.observer != nil {
		b.opts.observer.Subscribed(fmt.Sprint(target), sub.Kind())
	}
	b.logger.WithFields(map[string]interface{}{
		"target": fmt.Sprint(target),
		"handle": sub.Handle().String(),
		"kind":   string(sub.Kind()),
	}).Debug("subscribed")
}

func (b *Bus[K, M]) unsubscribed(target K, sub Subscription[K, M]) {
	if b.opts.observer != nil {
		b.opts.observer.Unsubscribed(fmt.Sprint(target), sub.Kind())
	}
	b.logger.WithFields(map[string]interface{}{
		"target": fmt.Sprint(target),
		"handle": sub.Handle().String(),
		"kind":   string(sub.Kind()),
	}).Debug("unsubscribed")
}

// entryLocked returns the entry for target, creating it. Caller holds b.mu.
func (b *Bus[K, M]) entryLocked(target K) *entry[K, M] {
	e, ok := b.entries[target]
	if !ok {
		e = &entry[K, M]{subs: make(map[uuid.UUID]*registration[K, M])}
		b.entries[target] = e
	}
	return e
}

// resolve snapshots the live subscriptions of target in registration order
func (b *Bus[K, M]) resolve(target K) []*registration[K, M] {
	b.mu.RLock()
	e, ok := b.entries[target]
	if !ok {
		b.mu.RUnlock()
		b.mu.Lock()
		e = b.entryLocked(target)
		b.mu.Unlock()
		b.mu.RLock()
	}
	regs := make([]*registration[K, M], 0, len(e.subs))
	for _, reg := range e.subs {
		regs = append(regs, reg)
	}
	b.mu.RUnlock()

	sort.Slice(regs, func(i, j int) bool {
		return regs[i].seq < regs[j].seq
	})
	return regs
}

// dispatch delivers data to regs one at a time. Without fault isolation the
// first failure stops delivery. Listeners released since resolve are skipped.
func (b *Bus[K, M]) dispatch(ctx context.Context, target K, data M, regs []*registration[K, M]) (int, error) {
	label := fmt.Sprint(target)
	if b.opts.observer != nil {
		b.opts.observer.Published(label, len(regs))
	}

	var errs error
	delivered := 0
	for _, reg := range regs {
		start := time.Now()
		err := reg.sub.Run(ctx, target, data)
		if errors.Is(err, core.ErrListenerReleased) {
			continue
		}
		if b.opts.observer != nil {
			b.opts.observer.Delivered(label, reg.sub.Kind(), time.Since(start), err)
		}
		if err == nil {
			delivered++
			continue
		}

		b.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"target": label,
			"handle": reg.sub.Handle().String(),
			"kind":   string(reg.sub.Kind()),
		}).Error(fmt.Sprintf("delivery failed: %v", err))

		if !b.opts.faultIsolation {
			return delivered, err
		}
		errs = multierr.Append(errs, err)
	}
	return delivered, errs
}
