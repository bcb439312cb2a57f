// Package timeutil resolves "now" in the fixed Melbourne time zone and
// formats the date and clock-time strings used throughout the schedule
// tables.  All schedule comparisons happen in this zone regardless of where
// the server or the performer's browser is located.
package timeutil

import (
	"fmt"
	"time"
)

// ZoneName is the fixed target time zone for every schedule comparison.
const ZoneName = "Australia/Melbourne"

// DateLayout is the calendar-date format stored in schedule rows.
const DateLayout = "2006-01-02"

// ClockLayout is the clock-time format stored in schedule rows.  Times carry
// no date component; the row's date column supplies it.
const ClockLayout = "15:04"

var melbourne = mustZone()

func mustZone() *time.Location {
	loc, err := time.LoadLocation(ZoneName)
	if err != nil {
		// The zone is compiled into the tzdata shipped with Go toolchains
		// and present on any reasonable host; fall back to a fixed offset
		// rather than crash (AEST, no DST).
		return time.FixedZone("AEST", 10*60*60)
	}
	return loc
}

// Zone returns the Melbourne location.
func Zone() *time.Location { return melbourne }

// InZone converts an instant to Melbourne local time.
func InZone(t time.Time) time.Time { return t.In(melbourne) }

// FormatDate renders a calendar date in the row format, in Melbourne time.
func FormatDate(t time.Time) string { return t.In(melbourne).Format(DateLayout) }

// FormatClock renders a clock time in the row format, in Melbourne time.
func FormatClock(t time.Time) string { return t.In(melbourne).Format(ClockLayout) }

// ParseClock parses an "HH:MM" string into hour and minute components.
func ParseClock(s string) (hour, min int, err error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

// OnDate combines a Melbourne calendar day with an "HH:MM" clock string into
// a concrete Melbourne instant.  The day is taken from t's Melbourne date.
func OnDate(t time.Time, clock string) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	local := t.In(melbourne)
	return time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, melbourne), nil
}
