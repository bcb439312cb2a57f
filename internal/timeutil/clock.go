package timeutil

import "time"

// Clock allows injecting time into the schedule engine.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystemClock returns a clock backed by time.Now.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

type fixedClock struct {
	now time.Time
}

// NewFixedClock returns a clock that always reports the same instant
// (useful for tests).
func NewFixedClock(t time.Time) Clock {
	return fixedClock{now: t}
}

func (f fixedClock) Now() time.Time {
	return f.now
}
