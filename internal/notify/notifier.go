// Package notify implements the notification collaborator: it
// persists notification rows and publishes a dispatch event per row to
// the message queue for asynchronous delivery. Failures are logged and
// never propagated to the operation that produced the batch.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/model"
	"github.com/iliyamo/room-reservation/internal/queue"
	"github.com/iliyamo/room-reservation/internal/repository"
)

// Notifier satisfies the booking service's Notifier interface.
type Notifier struct {
	repo    *repository.NotificationRepo
	log     *zap.Logger
	amqpURL string
}

// New constructs a Notifier over the notification repository.  amqpURL
// may be empty; the queue package then resolves the broker from the
// environment.
func New(repo *repository.NotificationRepo, log *zap.Logger, amqpURL string) *Notifier {
	if repo == nil {
		panic("nil repository passed to notify.New")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{repo: repo, log: log, amqpURL: amqpURL}
}

// NotifyAll persists each notification in the batch and publishes a
// dispatch event for it. A failed row is logged and skipped; the rest
// of the batch still goes through.
func (n *Notifier) NotifyAll(ctx context.Context, batch []model.Notification) {
	for i := range batch {
		msg := &batch[i]
		if err := n.repo.Create(ctx, msg); err != nil {
			n.log.Error("notification write failed",
				zap.Uint64("user_id", msg.UserID), zap.String("kind", msg.Kind), zap.Error(err))
			continue
		}
		ev := queue.NotificationDispatchEvent{
			EventID:        uuid.NewString(),
			NotificationID: msg.ID,
			UserID:         msg.UserID,
			Kind:           msg.Kind,
			Title:          msg.Title,
			Message:        msg.Message,
			BookingID:      msg.BookingID,
			RoomID:         msg.RoomID,
			CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		}
		if err := queue.PublishNotificationDispatch(ctx, n.amqpURL, ev); err != nil {
			// The row is already persisted; delivery will be picked up by
			// the next poll or left to the in-app listing.
			n.log.Warn("notification dispatch publish failed",
				zap.Uint64("notification_id", msg.ID), zap.Error(err))
		}
	}
}
