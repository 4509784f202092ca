package infra

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryConnectSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retryConnect(context.Background(), func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 dials, got %d", calls)
	}
}

func TestRetryConnectStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := retryConnect(ctx, func(context.Context) error { return errors.New("down") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
