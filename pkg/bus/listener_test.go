package bus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fluxorio/arquebus/pkg/bus"
	"github.com/fluxorio/arquebus/pkg/core"
)

func TestListener_ReceivesInOrder(t *testing.T) {
	b := newBus[ActionTest, interface{}]()
	ctx := context.Background()

	l, err := b.CreateListener(Test1, nil)
	if err != nil {
		t.Fatalf("CreateListener() error = %v", err)
	}
	defer l.Close()

	for _, v := range []int{1, 2, 3} {
		if err := b.Publish(ctx, Test1, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range []int{1, 2, 3} {
		got, err := bus.ListenAs[int](l)
		if err != nil {
			t.Fatalf("ListenAs() error = %v", err)
		}
		if got != want {
			t.Errorf("ListenAs() = %d, want %d", got, want)
		}
	}
}

func TestListener_ListenAsTypeMismatch(t *testing.T) {
	b := newBus[ActionTest, interface{}]()
	l, _ := b.CreateListener(Test1, nil)
	defer l.Close()

	if err := b.Publish(context.Background(), Test1, "not a model"); err != nil {
		t.Fatal(err)
	}
	_, err := bus.ListenAs[*TestModel](l)
	if !errors.Is(err, core.ErrTypeMismatch) {
		t.Errorf("ListenAs() error = %v, want ErrTypeMismatch", err)
	}
}

func TestListener_ListenContextTimeout(t *testing.T) {
	b := newBus[ActionTest, int]()
	l, _ := b.CreateListener(Test1, nil)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.ListenContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ListenContext() error = %v, want DeadlineExceeded", err)
	}
}

func TestListener_Close(t *testing.T) {
	b := newBus[ActionTest, int]()
	l, _ := b.CreateListener(Test1, nil)
	h := l.Handle()

	blocked := make(chan error, 1)
	go func() {
		_, err := l.Listen()
		blocked <- err
	}()
	time.Sleep(10 * time.Millisecond)

	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case err := <-blocked:
		if !errors.Is(err, core.ErrListenerReleased) {
			t.Errorf("blocked Listen() error = %v, want ErrListenerReleased", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake the blocked listener")
	}

	if b.IsSubscribed(h) {
		t.Error("closed listener should be unsubscribed")
	}
	if _, err := l.Listen(); !errors.Is(err, core.ErrListenerReleased) {
		t.Errorf("Listen() after Close error = %v, want ErrListenerReleased", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if s := l.(*bus.ListenerSubscription[ActionTest, int]).State(); s != bus.ListenerReleased {
		t.Errorf("State() = %s, want %s", s, bus.ListenerReleased)
	}
}

func TestListener_BoundedQueueBlocksPublisher(t *testing.T) {
	b := newBus[string, int]()
	ctx := context.Background()

	l, err := b.CreateListener("bounded", &bus.ListenerConfig{QueueCapacity: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if err := b.Publish(ctx, "bounded", 1); err != nil {
		t.Fatal(err)
	}
	f, err := b.PublishAsync(ctx, "bounded", 2)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)
	if f.IsCompleted() {
		t.Fatal("publish to a full listener should wait")
	}

	if v, _ := l.Listen(); v != 1 {
		t.Errorf("Listen() = %d, want 1", v)
	}
	if n, err := f.Get(); err != nil || n != 1 {
		t.Errorf("pending publish = (%d, %v), want (1, nil)", n, err)
	}
	if v, _ := l.Listen(); v != 2 {
		t.Errorf("Listen() = %d, want 2", v)
	}
}

func TestListener_BoundedQueuePublishTimeout(t *testing.T) {
	b := newBus[string, int](bus.WithDefaultQueueCapacity(1))
	l, _ := b.CreateListener("bounded", nil)
	defer l.Close()

	if err := b.Publish(context.Background(), "bounded", 1); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Publish(ctx, "bounded", 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Publish() error = %v, want DeadlineExceeded", err)
	}
}

func TestListener_ReleasedDuringDispatchIsSkipped(t *testing.T) {
	b := newBus[string, int]()

	var l bus.Listener[string, int]
	b.Subscribe("t", func(context.Context, int) error {
		return l.Close()
	})
	l, _ = b.CreateListener("t", nil)

	f, err := b.PublishAsync(context.Background(), "t", 1)
	if err != nil {
		t.Fatal(err)
	}
	n, err := f.Get()
	if err != nil {
		t.Fatalf("publish error = %v, released listener should be skipped", err)
	}
	if n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}
}

func TestNewListener_Validation(t *testing.T) {
	if _, err := bus.NewListener[string, int]("t", nil, nil); !errors.Is(err, core.ErrNullArgument) {
		t.Errorf("nil owner error = %v, want ErrNullArgument", err)
	}

	b := newBus[string, int]()
	if _, err := bus.NewListener[string, int]("t", b, &bus.ListenerConfig{QueueCapacity: -1}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("negative capacity error = %v, want ErrInvalidArgument", err)
	}
	if _, err := b.CreateListener("t", &bus.ListenerConfig{QueueCapacity: -1}); !errors.Is(err, core.ErrInvalidArgument) {
		t.Errorf("CreateListener negative capacity error = %v, want ErrInvalidArgument", err)
	}

	l, err := bus.NewListener[string, int]("t", b, &bus.ListenerConfig{QueueCapacity: 4})
	if err != nil {
		t.Fatal(err)
	}
	if l.Cap() != 4 || l.State() != bus.ListenerActive {
		t.Errorf("Cap()/State() = %d/%s, want 4/%s", l.Cap(), l.State(), bus.ListenerActive)
	}
	// not registered, so publishes to "t" do not reach it
	if b.IsSubscribed(l.Handle()) {
		t.Error("NewListener must not register itself")
	}
}

func TestListenFixedTimes(t *testing.T) {
	b := newBus[ActionTest, interface{}]()
	ctx := context.Background()

	f, err := bus.ListenFixedTimesAsyncAs[int](ctx, b, Test1, 1, nil)
	if err != nil {
		t.Fatalf("ListenFixedTimesAsyncAs() error = %v", err)
	}
	if !b.HasSubscriptions(Test1) {
		t.Fatal("listener should be registered before the call returns")
	}

	if err := b.Publish(ctx, Test1, 33); err != nil {
		t.Fatal(err)
	}
	got, err := f.Get()
	if err != nil {
		t.Fatalf("future error = %v", err)
	}
	if len(got) != 1 || got[0] != 33 {
		t.Errorf("got %v, want [33]", got)
	}

	// the listener is released once collection ends
	deadline := time.Now().Add(time.Second)
	for b.HasSubscriptions(Test1) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if b.HasSubscriptions(Test1) {
		t.Error("listener should be unsubscribed after collection")
	}
}

func TestListen_CollectsUntilCancelled(t *testing.T) {
	b := newBus[ActionTest, interface{}]()
	ctx, cancel := context.WithCancel(context.Background())

	f, err := bus.ListenAsyncAs[int](ctx, b, Test1, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int{33, 34} {
		if err := b.Publish(context.Background(), Test1, v); err != nil {
			t.Fatal(err)
		}
	}
	cancel()

	got, err := f.Get()
	if err != nil {
		t.Fatalf("cancellation should not be an error, got %v", err)
	}
	if len(got) != 2 || got[0] != 33 || got[1] != 34 {
		t.Errorf("got %v, want [33 34]", got)
	}
}

func TestListen_SkipsNilMessages(t *testing.T) {
	b := newBus[ActionTest, *TestModel]()
	ctx, cancel := context.WithCancel(context.Background())

	f, err := b.ListenAsync(ctx, Test1, nil)
	if err != nil {
		t.Fatal(err)
	}
	model := &TestModel{IntValue: 1}
	b.Publish(context.Background(), Test1, nil)
	b.Publish(context.Background(), Test1, model)
	b.Publish(context.Background(), Test1, nil)
	cancel()

	got, err := f.Get()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != model {
		t.Errorf("got %v, want only the non-nil model", got)
	}
}

func TestListenFixedTimes_NilCountsAsReceive(t *testing.T) {
	b := newBus[ActionTest, *TestModel]()
	ctx := context.Background()

	f, err := b.ListenFixedTimesAsync(ctx, Test2, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	b.Publish(ctx, Test2, nil)
	b.Publish(ctx, Test2, &TestModel{IntValue: 2})

	got, err := f.Get()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].IntValue != 2 {
		t.Errorf("got %v, want one model", got)
	}
}

func TestListenFixedTimes_CancelledEarly(t *testing.T) {
	b := newBus[ActionTest, int]()
	ctx, cancel := context.WithCancel(context.Background())

	f, err := b.ListenFixedTimesAsync(ctx, Test1, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	b.Publish(context.Background(), Test1, 5)
	cancel()

	got, err := f.Get()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 5 {
		t.Errorf("got %v, want [5]", got)
	}
}

func TestListen_TypeMismatchFailsCollection(t *testing.T) {
	b := newBus[ActionTest, interface{}]()
	ctx := context.Background()

	f, err := bus.ListenFixedTimesAsyncAs[int](ctx, b, Test1, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	b.Publish(ctx, Test1, 1)
	b.Publish(ctx, Test1, "two")

	got, err := f.Get()
	if !errors.Is(err, core.ErrTypeMismatch) {
		t.Errorf("error = %v, want ErrTypeMismatch", err)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("partial result = %v, want [1]", got)
	}
}

func TestListen_Blocking(t *testing.T) {
	b := newBus[string, string]()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go func() {
		// wait until Listen has registered its listener
		for !b.HasSubscriptions("greetings") {
			time.Sleep(time.Millisecond)
		}
		b.Publish(context.Background(), "greetings", "hello")
	}()

	got, err := b.Listen(ctx, "greetings", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("Listen() = %v, want [hello]", got)
	}
}
