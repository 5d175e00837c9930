package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// NotificationRepo persists per-user notifications.  Rows are the durable
// record; the broadcast over the queue is best-effort on top of them.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts a notification row and fills in its generated ID.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, title, body, severity) VALUES (?, ?, ?, ?)`,
		n.UserID, n.Title, n.Body, n.Severity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListByUser returns the newest notifications for a user, most recent first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, body, severity, is_read, created_at
		   FROM notifications
		  WHERE user_id = ?
		  ORDER BY id DESC
		  LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Severity, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead stamps a user's notification as read.  Scoping by user keeps one
// user from acknowledging another's notifications.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`,
		id, userID)
	return err
}
