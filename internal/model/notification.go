package model

import "time"

// Notification kinds written to notifications.kind.  Delivery is
// asynchronous: rows are persisted synchronously and a dispatch event
// is published to the message queue for downstream consumers.
const (
	NotifyBookingCreated   = "booking-created"
	NotifyBookingCancelled = "booking-cancelled"
	NotifyBookingUpdated   = "booking-updated"
	NotifyAdminOverride    = "admin-override"
	NotifyMeetingScheduled = "meeting-scheduled"
	NotifyUserActionAlert  = "user-action-alert"
	NotifyRoomCreated      = "room-created"
	NotifyRoomUpdated      = "room-updated"
	NotifyRoomDeleted      = "room-deleted"
)

// Notification is an in-app message for a single user, optionally tied
// to a booking and/or a room.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – recipient.
//  Kind      – one of the Notify* constants above.
//  Title     – short headline.
//  Message   – body text.
//  BookingID – related booking (nullable).
//  RoomID    – related room (nullable).
//  IsRead    – whether the recipient has read the notification.
//  CreatedAt – creation timestamp.
type Notification struct {
	ID        uint64    // notifications.id
	UserID    uint64    // notifications.user_id
	Kind      string    // notifications.kind
	Title     string    // notifications.title
	Message   string    // notifications.message
	BookingID *uint64   // notifications.booking_id (nullable)
	RoomID    *uint64   // notifications.room_id (nullable)
	IsRead    bool      // notifications.is_read
	CreatedAt time.Time // notifications.created_at
}
