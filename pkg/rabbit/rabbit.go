package rabbit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	heartbeat        = 10 * time.Second
	prefetch         = 16
	reconnectRetries = 5
)

var ErrClosed = errors.New("rabbitmq client closed")

// RabbitMQ holds one connection and one channel. A dropped connection is
// re-established lazily by EnsureConnection; Close is final.
type RabbitMQ struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
	dsn    string

	log logger.Logger
}

// New creates rabbitMQ client
func New(ctx context.Context, dsn string, log logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{dsn: dsn, log: log}

	conn, ch, err := r.dial()
	if err != nil {
		return nil, err
	}
	r.conn, r.ch = conn, ch

	log.Info(wrap.WithAction(ctx, types.ActionRabbitMQConnected), "connected to rabbitMQ")
	return r, nil
}

// dial opens a connection and a channel with prefetch set, and starts watching both.
func (r *RabbitMQ) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(r.dsn, amqp.Config{Heartbeat: heartbeat})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to set prefetch: %w", err)
	}

	go r.watch(conn.NotifyClose(make(chan *amqp.Error, 1)), "connection")
	go r.watch(ch.NotifyClose(make(chan *amqp.Error, 1)), "channel")

	return conn, ch, nil
}

// watch logs why the connection or the channel went away.
func (r *RabbitMQ) watch(done <-chan *amqp.Error, what string) {
	closeErr, ok := <-done
	ctx := wrap.WithAction(context.Background(), types.ActionRabbitConnectionClosed)
	if ok && closeErr != nil {
		r.log.Error(ctx, "RabbitMQ "+what+" closed", closeErr)
		return
	}
	r.log.Debug(ctx, "RabbitMQ "+what+" closed gracefully")
}

// IsConnectionClosed checks if the connection is closed
func (r *RabbitMQ) IsConnectionClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.brokenLocked()
}

func (r *RabbitMQ) brokenLocked() bool {
	return r.closed || r.conn == nil || r.ch == nil || r.conn.IsClosed() || r.ch.IsClosed()
}

// EnsureConnection reconnects with linear backoff if the connection dropped.
func (r *RabbitMQ) EnsureConnection(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if !r.brokenLocked() {
		return nil
	}

	r.log.Warn(ctx, "rabbit connection closed, reconnecting...")
	var err error
	for i := range reconnectRetries {
		var (
			conn *amqp.Connection
			ch   *amqp.Channel
		)
		if conn, ch, err = r.dial(); err == nil {
			r.conn, r.ch = conn, ch
			r.log.Info(wrap.WithAction(ctx, types.ActionRabbitReconnected), "RabbitMQ reconnected successfully")
			return nil
		}

		wait := time.Duration(i+1) * 2 * time.Second
		r.log.Debug(ctx, "reconnect attempt failed", "attempt", i+1, "retry_in", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
}

// Close closes the channel, then the connection. Calls after the first are no-ops.
func (r *RabbitMQ) Close(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitConnectionClosing)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ch, conn := r.ch, r.conn
	r.ch, r.conn = nil, nil
	r.mu.Unlock()

	if ch != nil {
		if err := closeWithCtx(ctx, ch.Close); err != nil && ctx.Err() == nil && !errors.Is(err, amqp.ErrClosed) {
			r.log.Warn(ctx, "error closing channel", "error", err.Error())
		}
	}
	if conn != nil {
		if err := closeWithCtx(ctx, conn.Close); err != nil && !errors.Is(err, amqp.ErrClosed) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitConnectionClosed), "rabbitMQ closed")
	return nil
}

// closeWithCtx stops waiting for fn when ctx is done; fn keeps running in the background.
func closeWithCtx(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeclareTopic declares a durable topic exchange on the current channel.
func (r *RabbitMQ) DeclareTopic(name string) error {
	ch := r.Chan()
	if ch == nil {
		return fmt.Errorf("declare exchange %s: channel is closed", name)
	}

	return ch.ExchangeDeclare(
		name,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}

// Chan returns the current channel. It can be nil after Close.
func (r *RabbitMQ) Chan() *amqp.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch
}
