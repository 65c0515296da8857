package utils

import "time"

// DaysBetween returns the calendar-day difference between two instants,
// ignoring the time-of-day component. released 2020-01-01, installed
// 2020-01-15 yields 14 regardless of the hours involved.
func DaysBetween(released, installed time.Time) int {
	r := truncateToDay(released)
	i := truncateToDay(installed)
	return int(i.Sub(r).Hours() / 24)
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UTCToLocal reinterprets a timestamp reported in UTC by the low-level
// configuration endpoint as local wall-clock time.
func UTCToLocal(t time.Time) time.Time {
	return t.UTC().Local()
}
