package domain

import "time"

// DateLayout is the calendar-date format used for storage keys and API payloads.
const DateLayout = "2006-01-02"

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateIn places the calendar date of t at midnight in loc. Unlike t.In(loc),
// the year, month and day are kept as written.
func DateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DateKey returns the calendar date of t as YYYY-MM-DD.
func DateKey(t time.Time) string { return t.Format(DateLayout) }

// At returns the wall-clock time clock on the calendar day of day, in day's
// location. On daylight-saving days this differs from midnight plus clock.
func At(day time.Time, clock time.Duration) time.Time {
	y, m, d := day.Date()
	h := int(clock / time.Hour)
	mins := int(clock % time.Hour / time.Minute)
	secs := int(clock % time.Minute / time.Second)
	return time.Date(y, m, d, h, mins, secs, 0, day.Location())
}

// SameDay reports whether a and b fall on the same calendar date, each read
// in its own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseDate parses a YYYY-MM-DD string as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
