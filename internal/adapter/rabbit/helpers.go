package rabbit

import (
	"context"
	"errors"
	"time"
)

// requeue reports whether a failed delivery gets one more attempt.
// Only transient failures are retried, and only once.
func requeue(err error, redelivered bool) bool {
	if redelivered {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrDeliveryFailed)
}

// retry calls fn up to attempts times, doubling the pause after each failure.
func retry(ctx context.Context, attempts int, pause time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(pause):
			pause *= 2
		}
	}
	return err
}
