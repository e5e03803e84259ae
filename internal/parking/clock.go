package parking

import "time"

// Clock is the time source of a ParkingLot.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// within reports whether now is at or before ts+d. A missing timestamp never
// satisfies the window.
func within(ts *time.Time, d time.Duration, now time.Time) bool {
	if ts == nil {
		return false
	}
	return !now.After(ts.Add(d))
}
