package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/rabbit"
)

const (
	NotificationExchange = "notifications"
	QueueNotifications   = "notifications_delivery"
)

// ErrDeliveryFailed marks a handler failure worth requeueing.
var ErrDeliveryFailed = errors.New("notification delivery failed")

type NotificationBroker struct {
	client   *rabbit.RabbitMQ
	exchange string

	l logger.Logger
}

func NewNotificationBroker(client *rabbit.RabbitMQ, log logger.Logger) *NotificationBroker {
	return &NotificationBroker{
		client:   client,
		exchange: NotificationExchange,

		l: log,
	}
}

// Setup declares the exchange and the delivery queue bound to every notification key.
func (b *NotificationBroker) Setup() error {
	if err := b.client.DeclareTopic(b.exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	ch := b.client.Chan()
	if ch == nil {
		return errors.New("channel is closed")
	}
	if _, err := ch.QueueDeclare(QueueNotifications, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(QueueNotifications, "notify.#", b.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// routingKey, example: "notify.RIDE_ACCEPTED"
func routingKey(n models.Notification) string {
	return "notify." + n.Category.String()
}

// PublishNotification implements notify.Publisher.
// отправляет в exchange 'notifications' с ключом 'notify.{category}'.
func (b *NotificationBroker) PublishNotification(ctx context.Context, n models.Notification) error {
	ctx = wrap.WithAction(ctx, types.ActionNotify)

	if err := b.client.EnsureConnection(ctx); err != nil {
		return wrap.Error(ctx, err)
	}

	body, err := json.Marshal(n)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal notification: %w", err))
	}

	err = retry(ctx, 3, 500*time.Millisecond, func() error {
		ch := b.client.Chan()
		if ch == nil {
			return errors.New("channel is closed")
		}
		return ch.PublishWithContext(
			ctx,
			b.exchange,    // exchange
			routingKey(n), // routing key
			false,         // mandatory
			false,         // immediate
			amqp091.Publishing{
				ContentType: "application/json",
				MessageId:   n.UserID.String(),
				Body:        body,
				Timestamp:   n.CreatedAt,
			},
		)
	})
	metrics.RecordRabbitMQPublish(b.exchange, err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to publish notification: %w", err))
	}

	return nil
}

type NotificationHandler func(ctx context.Context, n models.Notification) error

// ConsumeNotifications feeds queued notifications to handler until ctx is done.
func (b *NotificationBroker) ConsumeNotifications(ctx context.Context, handler NotificationHandler) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_notifications")

	for {
		if ctx.Err() != nil {
			b.l.Debug(ctx, "notification consumer stopped by context")
			return nil
		}

		// Проверяем и восстанавливаем соединение
		if err := b.client.EnsureConnection(ctx); err != nil {
			b.l.Error(ctx, "ensure connection failed", err)
			sleep(ctx, 2*time.Second)
			continue
		}

		ch := b.client.Chan()
		if ch == nil {
			sleep(ctx, 2*time.Second)
			continue
		}
		msgs, err := ch.Consume(QueueNotifications, "", false, false, false, false, nil)
		if err != nil {
			b.l.Error(ctx, "consume failed", err)
			sleep(ctx, 2*time.Second)
			continue
		}

		b.l.Info(ctx, "start consuming notifications", "queue", QueueNotifications)

		if done := b.drain(ctx, msgs, handler); done {
			return nil
		}
	}
}

// drain reads msgs until the channel closes (false) or ctx is done (true).
func (b *NotificationBroker) drain(ctx context.Context, msgs <-chan amqp091.Delivery, handler NotificationHandler) bool {
	for {
		select {
		case <-ctx.Done():
			b.l.Info(ctx, "notification consumer shutting down")
			return true

		case d, ok := <-msgs:
			if !ok {
				b.l.Warn(ctx, "message channel closed, reconnecting...")
				sleep(ctx, 2*time.Second)
				return false
			}

			var n models.Notification
			if err := json.Unmarshal(d.Body, &n); err != nil {
				b.l.Error(ctx, "failed to unmarshal notification", err)
				_ = d.Nack(false, false)
				continue
			}

			ctxx := wrap.WithUserID(ctx, n.UserID.String())
			err := handler(ctxx, n)
			metrics.RecordRabbitMQConsume(QueueNotifications, err)
			if err != nil {
				b.l.Warn(ctxx, "failed to deliver notification", "category", n.Category.String(), "reason", err.Error())
				// если ошибка восстановимая, повторно помещаем в очередь
				_ = d.Nack(false, requeue(err, d.Redelivered))
				continue
			}

			if err := d.Ack(false); err != nil {
				b.l.Error(ctx, "failed to ack message", err)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
