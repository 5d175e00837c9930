// Package notify turns domain events into user notifications.  The database
// row is the durable record; the broker broadcast rides on top and may be
// lost without affecting reservation state.
package notify

import (
	"context"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/logger"
	"github.com/iliyamo/library-seat-reservation/internal/model"
	"github.com/iliyamo/library-seat-reservation/internal/queue"
	"github.com/iliyamo/library-seat-reservation/internal/repository"
)

// Notifier persists notifications and fans them out over the queue.
type Notifier struct {
	repo *repository.NotificationRepo
}

func New(repo *repository.NotificationRepo) *Notifier { return &Notifier{repo: repo} }

// Notify stores a notification for the user and broadcasts it.  Failures are
// logged and swallowed; notification delivery never blocks a state change.
func (n *Notifier) Notify(ctx context.Context, userID uint64, severity, title, body string) {
	log := logger.Get()

	row := &model.Notification{
		UserID:   userID,
		Title:    title,
		Body:     body,
		Severity: severity,
	}
	if err := n.repo.Create(ctx, row); err != nil {
		log.Warn("notification persist failed", "user_id", userID, "title", title, "err", err)
	}

	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue.Publish(pctx, queue.ReservationEvent{
			Kind:       queue.KindAlert,
			UserID:     userID,
			Status:     severity,
			Message:    title + ": " + body,
			OccurredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}()
}
