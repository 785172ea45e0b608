package concurrency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMailbox_FIFO(t *testing.T) {
	for _, mb := range []struct {
		name string
		box  Mailbox[int]
	}{
		{"bounded", NewBoundedMailbox[int](8)},
		{"unbounded", NewUnboundedMailbox[int]()},
	} {
		t.Run(mb.name, func(t *testing.T) {
			defer mb.box.Close()
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				if err := mb.box.Send(i); err != nil {
					t.Fatalf("Send(%d) error = %v", i, err)
				}
			}
			if mb.box.Len() != 5 {
				t.Errorf("expected Len 5, got %d", mb.box.Len())
			}
			for i := 0; i < 5; i++ {
				got, err := mb.box.Receive(ctx)
				if err != nil {
					t.Fatalf("Receive() error = %v", err)
				}
				if got != i {
					t.Errorf("expected %d, got %d", i, got)
				}
			}
		})
	}
}

func TestBoundedMailbox_Full(t *testing.T) {
	box := NewBoundedMailbox[string](1)
	defer box.Close()

	if err := box.Send("a"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := box.Send("b"); !errors.Is(err, ErrMailboxFull) {
		t.Errorf("expected ErrMailboxFull, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := box.SendContext(ctx, "b"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestBoundedMailbox_SendUnblocksOnReceive(t *testing.T) {
	box := NewBoundedMailbox[int](1)
	defer box.Close()
	_ = box.Send(1)

	sent := make(chan error, 1)
	go func() {
		sent <- box.SendContext(context.Background(), 2)
	}()

	select {
	case <-sent:
		t.Fatal("SendContext should block while the mailbox is full")
	case <-time.After(50 * time.Millisecond):
	}

	if got, _ := box.Receive(context.Background()); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}

	select {
	case err := <-sent:
		if err != nil {
			t.Errorf("SendContext() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("SendContext did not unblock")
	}
}

func TestBoundedMailbox_CloseUnblocksSender(t *testing.T) {
	box := NewBoundedMailbox[int](1)
	_ = box.Send(1)

	sent := make(chan error, 1)
	go func() {
		sent <- box.SendContext(context.Background(), 2)
	}()

	time.Sleep(20 * time.Millisecond)
	box.Close()

	select {
	case err := <-sent:
		if !errors.Is(err, ErrMailboxClosed) {
			t.Errorf("expected ErrMailboxClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("SendContext did not unblock on Close")
	}
}

func TestMailbox_ReceiveCancelled(t *testing.T) {
	for _, box := range []Mailbox[int]{NewBoundedMailbox[int](2), NewUnboundedMailbox[int]()} {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		_, err := box.Receive(ctx)
		cancel()
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
		box.Close()
		box.Close()
		if !box.IsClosed() {
			t.Error("expected mailbox to be closed")
		}
		if err := box.Send(1); !errors.Is(err, ErrMailboxClosed) {
			t.Errorf("expected ErrMailboxClosed, got %v", err)
		}
		if _, err := box.Receive(context.Background()); !errors.Is(err, ErrMailboxClosed) {
			t.Errorf("expected ErrMailboxClosed, got %v", err)
		}
	}
}

func TestUnboundedMailbox_ConcurrentReceivers(t *testing.T) {
	box := NewUnboundedMailbox[int]()
	defer box.Close()

	const n = 200
	var wg sync.WaitGroup
	results := make(chan int, n)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			for {
				v, err := box.Receive(ctx)
				if err != nil {
					return
				}
				results <- v
				if len(results) == n {
					return
				}
			}
		}()
	}

	for i := 0; i < n; i++ {
		if err := box.Send(i); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	deadline := time.After(3 * time.Second)
	seen := make(map[int]bool)
	for len(seen) < n {
		select {
		case v := <-results:
			seen[v] = true
		case <-deadline:
			t.Fatalf("received %d of %d messages", len(seen), n)
		}
	}
	box.Close()
	wg.Wait()
}

func TestNewMailbox(t *testing.T) {
	if NewMailbox[int](0).Cap() != 0 {
		t.Error("capacity 0 should build an unbounded mailbox")
	}
	if NewMailbox[int](3).Cap() != 3 {
		t.Error("capacity 3 should build a bounded mailbox")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("NewBoundedMailbox(0) should panic")
		}
	}()
	NewBoundedMailbox[int](0)
}

func TestMailbox_TryReceive(t *testing.T) {
	for name, mb := range map[string]Mailbox[int]{
		"bounded":   NewBoundedMailbox[int](2),
		"unbounded": NewUnboundedMailbox[int](),
	} {
		t.Run(name, func(t *testing.T) {
			if _, ok := mb.TryReceive(); ok {
				t.Fatal("TryReceive() on an empty mailbox should fail")
			}
			mb.Send(1)
			mb.Send(2)
			if v, ok := mb.TryReceive(); !ok || v != 1 {
				t.Errorf("TryReceive() = (%d, %v), want (1, true)", v, ok)
			}
			mb.Close()
			if _, ok := mb.TryReceive(); ok {
				t.Error("TryReceive() after Close should fail")
			}
		})
	}
}
