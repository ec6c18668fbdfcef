package model

import "time"

// Booking statuses stored in the bookings.status column.  COMPLETED is
// never written: it is derived on read for confirmed bookings whose end
// time has passed (see EffectiveStatus).
const (
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingCompleted = "COMPLETED"
)

// Booking records a reservation of a single room for a time interval.
// A booking either stands alone or is one materialized occurrence of a
// RecurrenceGroup, in which case RecurrenceGroupID is set.  Each
// occurrence is an independent row so it can be cancelled without
// affecting its siblings.
//
// Fields:
//  ID                – primary key identifier.
//  RoomID            – room being reserved.
//  OrganizerID       – user who created the booking.
//  Title             – short subject line.
//  Description       – optional free-text details.
//  StartTime         – start instant (UTC); always strictly before EndTime.
//  EndTime           – end instant (UTC).
//  Status            – CONFIRMED or CANCELLED.
//  RecurrenceGroupID – owning recurrence group, nil for standalone bookings.
//  CancelledBy       – user who cancelled the booking (nullable).
//  CancelledAt       – when the booking was cancelled (nullable).
//  CancelReason      – free-text cancellation reason (nullable).
//  AttendeeIDs       – users attending; populated from booking_attendees.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Booking struct {
	ID                uint64     // bookings.id
	RoomID            uint64     // bookings.room_id
	OrganizerID       uint64     // bookings.organizer_id
	Title             string     // bookings.title
	Description       *string    // bookings.description (nullable)
	StartTime         time.Time  // bookings.start_time
	EndTime           time.Time  // bookings.end_time
	Status            string     // bookings.status
	RecurrenceGroupID *uint64    // bookings.recurrence_group_id (nullable)
	CancelledBy       *uint64    // bookings.cancelled_by (nullable)
	CancelledAt       *time.Time // bookings.cancelled_at (nullable)
	CancelReason      *string    // bookings.cancel_reason (nullable)
	AttendeeIDs       []uint64   // booking_attendees.user_id, ordered
	CreatedAt         time.Time  // bookings.created_at
	UpdatedAt         time.Time  // bookings.updated_at
}

// EffectiveStatus returns the status as seen by callers at the given
// instant.  A confirmed booking whose end time has passed reads as
// COMPLETED even though the stored status remains CONFIRMED.
func (b Booking) EffectiveStatus(now time.Time) string {
	if b.Status == BookingConfirmed && b.EndTime.Before(now) {
		return BookingCompleted
	}
	return b.Status
}

// IsPast reports whether the booking's end time has passed at the
// given instant.  Past bookings are eligible for administrative
// deletion regardless of status.
func (b Booking) IsPast(now time.Time) bool {
	return b.EndTime.Before(now)
}
