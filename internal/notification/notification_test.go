package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sanbank/core/internal/logging"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []Message
	release  chan struct{}
}

func (r *recordingNotifier) Send(_ context.Context, m Message) error {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func TestAsyncDeliversAndDrainsOnClose(t *testing.T) {
	next := &recordingNotifier{}
	async := NewAsync(next, 8, logging.Discard())

	for i := 0; i < 5; i++ {
		if err := async.Send(context.Background(), Message{Kind: KindTransfer, UserID: "u1"}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := async.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if next.count() != 5 {
		t.Fatalf("expected 5 delivered, got %d", next.count())
	}

	// sends after close are dropped, not panics
	if err := async.Send(context.Background(), Message{Kind: KindTransfer}); err != nil {
		t.Fatalf("send after close: %v", err)
	}
}

func TestAsyncDropsWhenFull(t *testing.T) {
	next := &recordingNotifier{release: make(chan struct{})}
	async := NewAsync(next, 1, logging.Discard())

	for i := 0; i < 10; i++ {
		_ = async.Send(context.Background(), Message{Kind: KindTransfer})
	}
	close(next.release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := async.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := next.count(); got == 0 || got > 2 {
		t.Fatalf("expected one or two delivered messages, got %d", got)
	}
}

func TestStoreNotifierInbox(t *testing.T) {
	store := NewMemoryStore()
	n := NewStoreNotifier(store)
	ctx := context.Background()

	if err := n.Send(ctx, Message{UserID: "u1", Title: "first"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	time.Sleep(time.Millisecond)
	if err := n.Send(ctx, Message{UserID: "u1", Title: "second", Type: TypeSuccess}); err != nil {
		t.Fatalf("send: %v", err)
	}

	list, err := store.ListByUser(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Title != "second" || list[1].Type != TypeInfo {
		t.Fatalf("unexpected inbox %+v", list)
	}

	if err := store.MarkRead(ctx, "u2", list[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
	if err := store.MarkAllRead(ctx, "u1"); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	list, _ = store.ListByUser(ctx, "u1", 0)
	for _, m := range list {
		if !m.Read {
			t.Fatalf("expected all read")
		}
	}
}
