package service

import (
	"context"
	"time"

	"github.com/iliyamo/room-reservation/internal/model"
)

// Store is the persistence surface the booking service depends on.
// The MySQL implementation lives in internal/repository; tests supply
// an in-memory fake.
type Store interface {
	// InRoomTx runs fn inside a transaction that serializes every
	// scan-then-write sequence targeting the same room.  Concurrent
	// callers for one room observe each other's committed writes, which
	// closes the race between the conflict scan and the insert.  fn
	// returning an error rolls the transaction back.
	InRoomTx(ctx context.Context, roomID uint64, fn func(tx Tx) error) error

	GetRoom(ctx context.Context, id uint64) (model.Room, error)
	GetBooking(ctx context.Context, id uint64) (model.Booking, error)
	GetGroup(ctx context.Context, id uint64) (model.RecurrenceGroup, error)
	DeleteBooking(ctx context.Context, id uint64) error

	// ListConfirmedOverlapping exists outside transactions too, for
	// read-only availability queries.
	ListConfirmedOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error)
}

// Tx is the transactional slice of Store handed to InRoomTx closures.
type Tx interface {
	ListConfirmedOverlapping(ctx context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Booking, error)
	// ListConfirmedByGroup returns the confirmed occurrences of a
	// recurrence group starting at or after the given instant.
	ListConfirmedByGroup(ctx context.Context, groupID uint64, from time.Time) ([]model.Booking, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	InsertBookings(ctx context.Context, bs []*model.Booking) error
	InsertGroup(ctx context.Context, g *model.RecurrenceGroup) error
	UpdateBooking(ctx context.Context, b model.Booking) error
	// MarkCancelled flips status to CANCELLED and stamps the canceller,
	// instant and reason.  It touches no other column, so cancellation
	// succeeds even when the remaining fields would fail re-validation.
	MarkCancelled(ctx context.Context, bookingID, cancelledBy uint64, at time.Time, reason string) error
	DeactivateGroup(ctx context.Context, groupID uint64) error
}

// UserDirectory exposes the user lookups the service needs for
// notifications and email delivery.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	ListAdminIDs(ctx context.Context) ([]uint64, error)
}

// Notifier accepts batches of notification commands produced by a
// completed operation.  Implementations persist the rows and dispatch
// them asynchronously; failures are logged, never surfaced.
type Notifier interface {
	NotifyAll(ctx context.Context, batch []model.Notification)
}

// Mailer sends best-effort email.  Errors are logged by callers and
// never fail the primary operation.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// RoomEventPublisher pushes real-time events to subscribers of a room.
// Delivery is best effort and has no bearing on correctness.
type RoomEventPublisher interface {
	PublishRoomEvent(ctx context.Context, roomID uint64, event any) error
}
