package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_InjectsContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "dispatch", LevelInfo)

	ctx := wrap.WithAction(context.Background(), "settle")
	ctx = wrap.WithRideID(ctx, "r1")
	l.Error(ctx, "settlement failed", errors.New("no funds"), "attempt", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "settlement failed", rec["message"])
	assert.Equal(t, "dispatch", rec["service"])
	assert.Equal(t, "settle", rec["action"])
	assert.Equal(t, "r1", rec["ride_id"])
	assert.NotContains(t, rec, "driver_id")
	assert.Equal(t, map[string]any{"msg": "no funds"}, rec["error"])
	assert.EqualValues(t, 2, rec["attempt"])
	assert.Contains(t, rec, "timestamp")
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "dispatch", LevelWarn)

	l.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	l.Warn(context.Background(), "shown")
	assert.NotZero(t, buf.Len())
}

func TestValidateLogLevel(t *testing.T) {
	assert.True(t, ValidateLogLevel(LevelDebug))
	assert.False(t, ValidateLogLevel("TRACE"))
}
