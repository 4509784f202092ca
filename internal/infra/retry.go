package infra

import (
	"context"
	"time"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// retryConnect calls dial until it succeeds, doubling the pause between
// attempts. The ledger starts alongside its database in most deployments,
// so the first few dials are expected to fail.
func retryConnect(ctx context.Context, dial func(context.Context) error) error {
	wait := connectBackoff
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = dial(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
