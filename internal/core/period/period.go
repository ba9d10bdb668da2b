// Package period derives the UTC calendar-month window used to deduplicate
// meter readings: one reading per customer, type, and month
package period

import "time"

// Window returns the half-open UTC interval [monthStart, nextMonthStart)
// containing t. time.Date normalizes month 13 to January of the next year,
// so the December rollover needs no special casing
func Window(t time.Time) (start, end time.Time) {
	u := t.UTC()
	start = time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(u.Year(), u.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return start, end
}

// Same reports whether a and b fall into the same month window
func Same(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.Month() == bu.Month()
}

// Key returns a stable "2006-01" month key, handy for logs
func Key(t time.Time) string {
	return t.UTC().Format("2006-01")
}
