package notify

import (
	"context"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

// Publisher delivers one notification to the transport.
type Publisher interface {
	PublishNotification(ctx context.Context, n models.Notification) error
}

// Async sends notifications in the background with a timeout. There is no
// retry and no delivery guarantee: a failed send is logged and dropped.
type Async struct {
	pub     Publisher
	timeout time.Duration
	l       logger.Logger
}

func NewAsync(pub Publisher, timeout time.Duration, l logger.Logger) *Async {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Async{pub: pub, timeout: timeout, l: l}
}

func (a *Async) Notify(ctx context.Context, n models.Notification) {
	ctx = wrap.WithAction(context.WithoutCancel(ctx), types.ActionNotify)

	go func() {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		if err := a.pub.PublishNotification(ctx, n); err != nil {
			a.l.Warn(ctx, "notification dropped",
				"user_id", n.UserID.String(),
				"category", n.Category.String(),
				"reason", err.Error(),
			)
		}
	}()
}

// LogPublisher writes notifications to the log. Used when no broker is configured.
type LogPublisher struct {
	L logger.Logger
}

func (p LogPublisher) PublishNotification(ctx context.Context, n models.Notification) error {
	p.L.Info(ctx, "notification",
		"user_id", n.UserID.String(),
		"category", n.Category.String(),
		"title", n.Title,
	)
	return nil
}
