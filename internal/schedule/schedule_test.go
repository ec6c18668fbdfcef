package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 2, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"start during other", at(10, 30), at(12, 0), at(10, 0), at(11, 0), true},
		{"end during other", at(9, 0), at(10, 30), at(10, 0), at(11, 0), true},
		{"contains other", at(9, 0), at(12, 0), at(10, 0), at(11, 0), true},
		{"contained by other", at(10, 15), at(10, 45), at(10, 0), at(11, 0), true},
		{"identical intervals", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
		{"touching at end", at(9, 0), at(10, 0), at(10, 0), at(11, 0), false},
		{"touching at start", at(11, 0), at(12, 0), at(10, 0), at(11, 0), false},
		{"disjoint before", at(7, 0), at(8, 0), at(10, 0), at(11, 0), false},
		{"disjoint after", at(12, 0), at(13, 0), at(10, 0), at(11, 0), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			// The predicate must be symmetric.
			assert.Equal(t, tc.want, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd))
		})
	}
}

func TestOverlapsSelf(t *testing.T) {
	assert.True(t, Overlaps(at(10, 0), at(11, 0), at(10, 0), at(11, 0)))
}

func TestExpandWeekly(t *testing.T) {
	// 2026-03-02 is a Monday.
	anchor := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)

	t.Run("anchor on target weekday", func(t *testing.T) {
		dates := ExpandWeekly(anchor, end, time.Monday)
		require.Len(t, dates, 5)
		assert.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), dates[0])
		for i, d := range dates {
			assert.Equal(t, time.Monday, d.Weekday())
			if i > 0 {
				assert.Equal(t, 7*24*time.Hour, d.Sub(dates[i-1]))
			}
			assert.False(t, d.After(end))
		}
	})

	t.Run("anchor before target weekday", func(t *testing.T) {
		dates := ExpandWeekly(anchor, end, time.Thursday)
		require.Len(t, dates, 4)
		assert.Equal(t, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC), dates[0])
	})

	t.Run("deterministic", func(t *testing.T) {
		first := ExpandWeekly(anchor, end, time.Friday)
		second := ExpandWeekly(anchor, end, time.Friday)
		assert.Equal(t, first, second)
	})

	t.Run("empty when first match past end", func(t *testing.T) {
		// Anchor Monday, range ends Wednesday, target Friday.
		shortEnd := time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)
		assert.Empty(t, ExpandWeekly(anchor, shortEnd, time.Friday))
	})

	t.Run("single occurrence", func(t *testing.T) {
		dates := ExpandWeekly(anchor, anchor, time.Monday)
		require.Len(t, dates, 1)
	})

	t.Run("anchor time of day ignored", func(t *testing.T) {
		late := time.Date(2026, time.March, 2, 23, 45, 0, 0, time.UTC)
		dates := ExpandWeekly(late, end, time.Monday)
		require.NotEmpty(t, dates)
		assert.Equal(t, 0, dates[0].Hour())
	})
}

func TestCombineAt(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	date := time.Date(2026, time.March, 5, 0, 0, 0, 0, loc)

	got, err := CombineAt(date, "09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Hour())
	assert.Equal(t, 30, got.Minute())
	// The date's zone is preserved; no conversion to UTC.
	assert.Equal(t, loc, got.Location())

	_, err = CombineAt(date, "25:00")
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, err := ParseTimeOfDay("14:05")
	require.NoError(t, err)
	assert.Equal(t, 14, h)
	assert.Equal(t, 5, m)

	_, _, err = ParseTimeOfDay("2pm")
	assert.Error(t, err)
}

func TestFormatTimeOfDay(t *testing.T) {
	assert.Equal(t, "08:05", FormatTimeOfDay(at(8, 5)))
}
