package models

import (
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

// Notification is delivered best effort. Nothing in the core waits for delivery.
type Notification struct {
	UserID    uuid.UUID                  `json:"user_id"`
	Title     string                     `json:"title"`
	Message   string                     `json:"message"`
	Category  types.NotificationCategory `json:"category"`
	CreatedAt time.Time                  `json:"created_at"`
}
