package ws

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	written []any
	closed  bool
	failErr error
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.written = append(f.written, v)
	return nil
}

func (f *fakeConn) ReadJSON(any) error                        { return io.EOF }
func (f *fakeConn) WriteControl(int, []byte, time.Time) error { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error          { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func testHub() *ConnectionHub {
	return NewConnHub(logger.New(io.Discard, "test", logger.LevelError))
}

func TestHub_DeliverToConnectedUser(t *testing.T) {
	hub := testHub()
	userID := uuid.New()
	fc := &fakeConn{}
	require.NoError(t, hub.Add(newConn(context.Background(), userID, fc)))

	n := models.Notification{UserID: userID, Title: "Ride accepted"}
	require.NoError(t, hub.Deliver(context.Background(), n))

	require.Len(t, fc.written, 1)
	assert.Equal(t, n, fc.written[0])
}

func TestHub_DeliverToOfflineUserIsDropped(t *testing.T) {
	hub := testHub()
	assert.NoError(t, hub.Deliver(context.Background(), models.Notification{UserID: uuid.New()}))
	assert.ErrorIs(t, hub.SendTo(uuid.New(), "x"), ErrConnIsNotFound)
}

func TestHub_AddReplacesPreviousConnection(t *testing.T) {
	hub := testHub()
	userID := uuid.New()
	first, second := &fakeConn{}, &fakeConn{}

	c1 := newConn(context.Background(), userID, first)
	require.NoError(t, hub.Add(c1))
	require.NoError(t, hub.Add(newConn(context.Background(), userID, second)))

	assert.True(t, first.closed)
	assert.Equal(t, 1, hub.Len())

	// the stale connection must not unregister its replacement
	hub.Remove(c1)
	assert.Equal(t, 1, hub.Len())

	require.NoError(t, hub.SendTo(userID, "hello"))
	assert.Len(t, second.written, 1)
}

func TestHub_FailedSendRemovesConnection(t *testing.T) {
	hub := testHub()
	userID := uuid.New()
	fc := &fakeConn{failErr: errors.New("broken pipe")}
	require.NoError(t, hub.Add(newConn(context.Background(), userID, fc)))

	assert.Error(t, hub.SendTo(userID, "x"))
	assert.Zero(t, hub.Len())
	assert.True(t, fc.closed)
}

func TestConn_SendAfterClose(t *testing.T) {
	c := newConn(context.Background(), uuid.New(), &fakeConn{})
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send("x"), ErrConnClosed)
	assert.ErrorIs(t, c.Health(), ErrConnClosed)
}

func TestHub_CloseClosesEverything(t *testing.T) {
	hub := testHub()
	conns := []*fakeConn{{}, {}, {}}
	for _, fc := range conns {
		require.NoError(t, hub.Add(newConn(context.Background(), uuid.New(), fc)))
	}

	hub.Close()

	assert.Zero(t, hub.Len())
	for _, fc := range conns {
		assert.True(t, fc.closed)
	}
}
