package model

import "time"

// PatternWeekly is the only recurrence pattern supported.  The column
// exists so that additional patterns can be added without a migration.
const PatternWeekly = "weekly"

// RecurrenceGroup is the template from which weekly booking
// occurrences are generated: a target weekday, a date range and a pair
// of wall-clock times applied to every occurrence date.  Occurrences
// are materialized eagerly as bookings rows in the same transaction
// that creates the group.
//
// Fields:
//  ID            – primary key identifier.
//  CreatorID     – user who created the group.
//  RoomID        – room every occurrence reserves.
//  Pattern       – always "weekly".
//  Weekday       – target weekday, 0 (Sunday) through 6 (Saturday).
//  StartDate     – first calendar date considered for expansion.
//  EndDate       – last calendar date considered (inclusive).
//  BaseStartTime – occurrence start time of day, "HH:MM".
//  BaseEndTime   – occurrence end time of day, "HH:MM".
//  Title         – title applied to every occurrence.
//  Description   – optional description applied to every occurrence.
//  IsActive      – whether the group participates in conflict scans.
//  CreatedAt     – creation timestamp.
type RecurrenceGroup struct {
	ID            uint64    // recurrence_groups.id
	CreatorID     uint64    // recurrence_groups.creator_id
	RoomID        uint64    // recurrence_groups.room_id
	Pattern       string    // recurrence_groups.pattern
	Weekday       int       // recurrence_groups.weekday (0=Sunday .. 6=Saturday)
	StartDate     time.Time // recurrence_groups.start_date
	EndDate       time.Time // recurrence_groups.end_date
	BaseStartTime string    // recurrence_groups.base_start_time ("HH:MM")
	BaseEndTime   string    // recurrence_groups.base_end_time ("HH:MM")
	Title         string    // recurrence_groups.title
	Description   *string   // recurrence_groups.description (nullable)
	IsActive      bool      // recurrence_groups.is_active
	CreatedAt     time.Time // recurrence_groups.created_at
}
