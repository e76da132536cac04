package rabbit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequeue(t *testing.T) {
	assert.True(t, requeue(fmt.Errorf("ws write: %w", ErrDeliveryFailed), false))
	assert.True(t, requeue(context.DeadlineExceeded, false))
	assert.False(t, requeue(ErrDeliveryFailed, true), "second failure is dropped")
	assert.False(t, requeue(errors.New("bad payload"), false))
}

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("nope")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, calls)
}

func TestRetry_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry(ctx, 5, time.Hour, func() error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}
