// Package schedule holds the pure scheduling primitives the booking
// service is built on: the interval overlap predicate, weekly
// recurrence expansion and wall-clock time combination.  Nothing in
// this package touches storage or the network, which keeps the
// functions deterministic and trivially testable.
package schedule

import (
	"fmt"
	"time"
)

// Overlaps reports whether the intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.  Both inequalities are strict, so two
// bookings that merely touch at an endpoint do not conflict.  This is
// the single overlap predicate used everywhere two intervals are
// compared.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ExpandWeekly returns every calendar date between anchor and end
// (inclusive) that falls on the given weekday.  It advances from the
// anchor day by day until the weekday matches, then steps in exact
// 7-day increments.  The result is empty when the first matching
// weekday already lies past end.  Dates keep the anchor's location and
// are truncated to midnight.
func ExpandWeekly(anchor, end time.Time, weekday time.Weekday) []time.Time {
	cur := atMidnight(anchor)
	last := atMidnight(end)
	for cur.Weekday() != weekday {
		cur = cur.AddDate(0, 0, 1)
	}
	var dates []time.Time
	for !cur.After(last) {
		dates = append(dates, cur)
		cur = cur.AddDate(0, 0, 7)
	}
	return dates
}

// ParseTimeOfDay parses a wall-clock "HH:MM" string into hour and
// minute components.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// FormatTimeOfDay renders an instant's wall-clock time as "HH:MM".
func FormatTimeOfDay(t time.Time) string {
	return t.Format("15:04")
}

// CombineAt attaches a wall-clock "HH:MM" time to a calendar date.
// The date's location is preserved; no timezone conversion happens.
func CombineAt(date time.Time, timeOfDay string) (time.Time, error) {
	h, m, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := date.Date()
	return time.Date(y, mo, d, h, m, 0, 0, date.Location()), nil
}

func atMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
