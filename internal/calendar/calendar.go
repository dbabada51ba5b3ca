// Package calendar holds the date arithmetic shared by schedule expansion and
// workload aggregation. All helpers keep the location of their argument.
package calendar

import "time"

// DateLayout is the date-only format used for course dates and custom ranges.
const DateLayout = "2006-01-02"

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last second of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 0, t.Location())
}

// StartOfWeek returns Monday 00:00 of the week containing t.
// Sunday belongs to the week of the preceding Monday.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	diff := 1 - int(day.Weekday())
	if day.Weekday() == time.Sunday {
		diff = -6
	}
	return day.AddDate(0, 0, diff)
}

// StartOfMonth returns the first day of t's month at midnight.
func StartOfMonth(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last day of t's month at midnight.
func EndOfMonth(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, DaysInMonth(month, year), 0, 0, 0, 0, t.Location())
}

// DaysInMonth reports the number of days in the given month.
func DaysInMonth(month time.Month, year int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ISOWeek returns the ISO-8601 week number of t's calendar date.
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// SameDay reports whether a and b fall on the same calendar date.
// Callers convert both values into the location they want compared.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, raw, loc)
}
