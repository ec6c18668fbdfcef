package model

import "time"

// Room represents a bookable meeting room as stored in the `rooms`
// table.  Capacity bounds the attendee count of any booking made
// against the room; inactive rooms are hidden from listings and
// reject new bookings.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique room name.
//  Capacity  – maximum number of attendees (always positive).
//  Location  – optional free-text location (building, floor).
//  IsActive  – whether the room accepts new bookings.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Room struct {
	ID        uint64    // rooms.id
	Name      string    // rooms.name
	Capacity  uint32    // rooms.capacity
	Location  *string   // rooms.location (nullable)
	IsActive  bool      // rooms.is_active
	CreatedAt time.Time // rooms.created_at
	UpdatedAt time.Time // rooms.updated_at
}
