package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sendTimeout = 5 * time.Second

// Fanout delivers each message to every notifier and returns the first error.
type Fanout []Notifier

// Send implements Notifier.
func (f Fanout) Send(ctx context.Context, message Message) error {
	var first error
	for _, n := range f {
		if err := n.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Async delivers notifications from a background goroutine so that callers
// never wait on, or fail because of, the downstream notifier. Messages are
// dropped with a warning when the buffer is full.
type Async struct {
	next   Notifier
	logger *slog.Logger
	queue  chan Message

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync starts the delivery goroutine with a buffer of size messages.
func NewAsync(next Notifier, size int, logger *slog.Logger) *Async {
	if size <= 0 {
		size = 64
	}
	a := &Async{next: next, logger: logger, queue: make(chan Message, size), done: make(chan struct{})}
	go a.run()
	return a
}

// Send enqueues message. It never blocks and never returns an error.
func (a *Async) Send(_ context.Context, message Message) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.logger.Warn("notification dropped, notifier closed", "kind", message.Kind, "user_id", message.UserID)
		return nil
	}
	select {
	case a.queue <- message:
	default:
		a.logger.Warn("notification dropped, queue full", "kind", message.Kind, "user_id", message.UserID)
	}
	return nil
}

// Close stops accepting messages and waits until the queue is drained or
// ctx is done.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Async) run() {
	defer close(a.done)
	for message := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := a.next.Send(ctx, message); err != nil {
			a.logger.Warn("notification delivery failed", "kind", message.Kind, "user_id", message.UserID, "error", err)
		}
		cancel()
	}
}
