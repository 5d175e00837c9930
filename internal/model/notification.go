package model

import "time"

// Notification severities mirrored to the frontend.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Notification is a persisted user-facing message.  Delivery beyond the
// database row (websocket push, broker fan-out) is fire-and-forget; the
// core never observes delivery success.
type Notification struct {
	ID        uint64    `json:"id"`         // notifications.id
	UserID    uint64    `json:"user_id"`    // notifications.user_id
	Title     string    `json:"title"`      // notifications.title
	Body      string    `json:"body"`       // notifications.body
	Severity  string    `json:"severity"`   // notifications.severity
	IsRead    bool      `json:"is_read"`    // notifications.is_read
	CreatedAt time.Time `json:"created_at"` // notifications.created_at
}
