// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationDispatchEvent is published whenever a notification row is
// written. It carries enough information for downstream consumers to
// deliver, log or aggregate without querying the primary database.
// EventID is a UUID that consumers can use for deduplication.
type NotificationDispatchEvent struct {
	EventID        string  `json:"event_id"`
	NotificationID uint64  `json:"notification_id"`
	UserID         uint64  `json:"user_id"`
	Kind           string  `json:"kind"`
	Title          string  `json:"title"`
	Message        string  `json:"message"`
	BookingID      *uint64 `json:"booking_id,omitempty"`
	RoomID         *uint64 `json:"room_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}
