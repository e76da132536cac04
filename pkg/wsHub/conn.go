package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 3 * time.Second

var ErrConnClosed = errors.New("connection closed")

// wsConn is the part of *websocket.Conn the hub needs.
type wsConn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Conn struct {
	conn    wsConn
	userID  uuid.UUID
	doneCtx context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
}

func NewConn(ctx context.Context, userID uuid.UUID, conn *websocket.Conn) *Conn {
	return newConn(ctx, userID, conn)
}

func newConn(ctx context.Context, userID uuid.UUID, conn wsConn) *Conn {
	ctx, cancel := context.WithCancel(ctx)

	return &Conn{
		conn:    conn,
		userID:  userID,
		doneCtx: ctx,
		cancel:  cancel,
	}
}

func (c *Conn) UserID() uuid.UUID { return c.userID }

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} { return c.doneCtx.Done() }

// Health pings the peer.
func (c *Conn) Health() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ping()
}

// ping expects c.mu held.
func (c *Conn) ping() error {
	select {
	case <-c.doneCtx.Done():
		return ErrConnClosed
	default:
	}

	if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (c *Conn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.doneCtx.Done():
		return ErrConnClosed
	default:
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return c.conn.WriteJSON(msg)
}

// Listen reads JSON frames until the peer goes away or the connection is closed.
func (c *Conn) Listen(handler func(msg map[string]any) error) error {
	for {
		select {
		case <-c.doneCtx.Done():
			return ErrConnClosed
		default:
		}

		var msg map[string]any
		if err := c.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
		if err := handler(msg); err != nil {
			return fmt.Errorf("handler failed: %w", err)
		}
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.doneCtx.Done():
		return nil
	default:
	}

	c.cancel()
	return c.conn.Close()
}
