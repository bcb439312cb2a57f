package schedule

import (
	"errors"
	"time"

	"github.com/buskabout/buskabout/internal/model"
	"github.com/buskabout/buskabout/internal/timeutil"
)

// Validation failures surfaced to the client.  The wording matches what the
// schedule form shows the performer.
var (
	ErrTimesRequired    = errors.New("please set both start and end times")
	ErrStartOutOfWindow = errors.New("start time must be between now and 1 hour from now")
	ErrTooLong          = errors.New("end time cannot be more than 3 hours after start time")
	ErrEndNotAfterStart = errors.New("end time must be after start time")
)

// IsValidationErr reports whether err is one of the time-window validation
// sentinels, so handlers can map it to a 400 rather than a 500.
func IsValidationErr(err error) bool {
	return errors.Is(err, ErrTimesRequired) ||
		errors.Is(err, ErrStartOutOfWindow) ||
		errors.Is(err, ErrTooLong) ||
		errors.Is(err, ErrEndNotAfterStart)
}

// maxWindow bounds a performance window; startWindow bounds how far ahead a
// new schedule may start.
const (
	maxWindow   = 3 * time.Hour
	startWindow = time.Hour
)

// validateWindow checks a start/end clock-time pair against the rules for a
// schedule on the current Melbourne date:
//
//  1. both times present;
//  2. when requireStartSoon, the start moment lies between now and one hour
//     from now (creation only — edits keep a start fixed earlier);
//  3. an end clock earlier than the start clock is taken to fall on the next
//     calendar day (overnight window);
//  4. the end must be after the start and no more than three hours later.
//
// It returns the resolved start and end instants on success.
func validateWindow(now time.Time, startClock, endClock string, requireStartSoon bool) (start, end time.Time, err error) {
	if startClock == "" || endClock == "" {
		return time.Time{}, time.Time{}, ErrTimesRequired
	}
	start, err = timeutil.OnDate(now, startClock)
	if err != nil {
		return time.Time{}, time.Time{}, ErrTimesRequired
	}
	if requireStartSoon && (start.Before(now) || start.After(now.Add(startWindow))) {
		return time.Time{}, time.Time{}, ErrStartOutOfWindow
	}
	end, err = timeutil.OnDate(now, endClock)
	if err != nil {
		return time.Time{}, time.Time{}, ErrTimesRequired
	}
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	if end.Sub(start) > maxWindow {
		return time.Time{}, time.Time{}, ErrTooLong
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, ErrEndNotAfterStart
	}
	return start, end, nil
}

// expired reports whether a schedule row has passed its end, evaluated in
// Melbourne time.  A row expires when its date is before today, or when it
// is dated today and the clock has passed its end time.  An overnight
// window therefore lapses at the date change, matching how rows are listed
// on the map.
func expired(s model.Schedule, now time.Time) bool {
	today := timeutil.FormatDate(now)
	if s.Date < today {
		return true
	}
	if s.Date > today {
		return false
	}
	return s.EndTime <= timeutil.FormatClock(now)
}
