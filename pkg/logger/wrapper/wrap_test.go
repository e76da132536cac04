package wrap

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithFields(t *testing.T) {
	ctx := WithAction(context.Background(), "settle")
	ctx = WithRideID(ctx, "r1")
	ctx = WithDriverID(ctx, "d1")

	lc := fromCtx(ctx)
	assert.Equal(t, LogCtx{Action: "settle", RideID: "r1", DriverID: "d1"}, lc)

	// parent context is not mutated
	_ = WithRideID(ctx, "r2")
	assert.Equal(t, "r1", fromCtx(ctx).RideID)
}

func TestError_KeepsFirstContext(t *testing.T) {
	base := errors.New("boom")
	inner := WithRideID(context.Background(), "inner")
	outer := WithRideID(context.Background(), "outer")

	err := Error(outer, fmt.Errorf("settle: %w", Error(inner, base)))
	require.ErrorIs(t, err, base)

	restored := ErrorCtx(context.Background(), err)
	assert.Equal(t, "inner", fromCtx(restored).RideID)
}

func TestErrorCtx_PlainError(t *testing.T) {
	ctx := WithUserID(context.Background(), "u1")
	assert.Equal(t, ctx, ErrorCtx(ctx, errors.New("plain")))
	assert.Nil(t, Error(ctx, nil))
}
