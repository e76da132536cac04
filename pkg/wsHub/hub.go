package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
	"github.com/google/uuid"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub хранит активные WebSocket соединения, одно на пользователя
type ConnectionHub struct {
	clients map[uuid.UUID]*Conn
	l       logger.Logger
	mu      sync.Mutex
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]*Conn),
		l:       l,
	}
}

// Add регистрирует соединение.
// Если у пользователя уже есть соединение, старое закрывается.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	existing, ok := h.clients[newConn.userID]
	h.clients[newConn.userID] = newConn
	h.mu.Unlock()

	if ok {
		ctx := wrap.WithUserID(wrap.WithAction(context.Background(), "add_ws_connection"), existing.userID.String())
		h.l.Warn(ctx, "replacing existing connection")
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx, "failed to close existing conn", "err", err.Error())
		}
		return nil
	}

	metrics.WebSocketConnectionsGauge.Inc()
	return nil
}

// Remove закрывает соединение, если оно всё ещё зарегистрировано за пользователем.
func (h *ConnectionHub) Remove(conn *Conn) {
	h.mu.Lock()
	current, ok := h.clients[conn.userID]
	if ok && current == conn {
		delete(h.clients, conn.userID)
		metrics.WebSocketConnectionsGauge.Dec()
	}
	h.mu.Unlock()

	_ = conn.Close()
}

// SendTo отправляет сообщение пользователю.
// Возвращает ErrConnIsNotFound, если пользователь не подключён.
func (h *ConnectionHub) SendTo(userID uuid.UUID, msg any) error {
	h.mu.Lock()
	conn, ok := h.clients[userID]
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	if err := conn.Send(msg); err != nil {
		h.Remove(conn)
		return err
	}
	return nil
}

// Deliver pushes a notification to its recipient. Offline users are skipped.
func (h *ConnectionHub) Deliver(ctx context.Context, n models.Notification) error {
	err := h.SendTo(n.UserID, n)
	if errors.Is(err, ErrConnIsNotFound) {
		h.l.Debug(ctx, "recipient not connected, notification dropped", "user_id", n.UserID, "category", n.Category)
		return nil
	}
	return err
}

// Len is the number of connected users.
func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close закрывает все соединения
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	// копируем клиентов под локом, закрываем вне лока
	h.mu.Lock()
	clients := make([]*Conn, 0, len(h.clients))
	for _, conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()

	for _, conn := range clients {
		h.Remove(conn)
	}

	h.l.Info(ctx, "all websocket connections closed gracefully")
}
