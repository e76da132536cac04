package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
	"github.com/gorilla/websocket"
)

const pingPeriod = 30 * time.Second

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}

// Notifications upgrades to a websocket and registers the caller in the hub.
// Notifications consumed from the broker are pushed through the hub.
type Notifications struct {
	hub      *ws.ConnectionHub
	verifier TokenVerifier
	upgrader websocket.Upgrader
	l        logger.Logger
}

func NewNotifications(hub *ws.ConnectionHub, verifier TokenVerifier, l logger.Logger) *Notifications {
	return &Notifications{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		l: l,
	}
}

// Connect godoc
// @Summary      Notification stream
// @Description  Websocket delivering ride and wallet notifications of the caller. Browsers pass the token as ?token=.
// @Tags         Notifications
// @Param        token  query  string  false  "Access token when the Authorization header cannot be set"
// @Success      101
// @Failure      401  {object}  map[string]any
// @Router       /ws/notifications [get]
func (h *Notifications) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "ws_notifications_connect")

	user := models.UserFromContext(ctx)
	if user.IsAnonymous() {
		token := r.URL.Query().Get("token")
		if token == "" {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		u, err := h.verifier.Verify(ctx, token)
		if err != nil {
			h.l.Warn(ctx, "failed to authenticate websocket", "error", err.Error())
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		user = u
	}
	ctx = wrap.WithUserID(ctx, user.ID.String())

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже записал ответ
		h.l.Warn(ctx, "websocket upgrade failed", "error", err.Error())
		return
	}

	// соединение живёт дольше HTTP запроса
	conn := ws.NewConn(context.WithoutCancel(ctx), user.ID, raw)
	if err := h.hub.Add(conn); err != nil {
		h.l.Error(ctx, "failed to register websocket", err)
		_ = raw.Close()
		return
	}
	defer h.hub.Remove(conn)

	go h.keepAlive(ctx, conn)

	h.l.Info(ctx, "websocket connected")
	// клиент ничего не шлёт, читаем только чтобы заметить закрытие
	err = conn.Listen(func(map[string]any) error { return nil })
	h.l.Info(ctx, "websocket disconnected", "reason", err.Error())
}

func (h *Notifications) keepAlive(ctx context.Context, conn *ws.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-conn.Done():
			return
		case <-ticker.C:
			if err := conn.Health(); err != nil {
				h.l.Debug(ctx, "websocket ping failed", "error", err.Error())
				h.hub.Remove(conn)
				return
			}
		}
	}
}
